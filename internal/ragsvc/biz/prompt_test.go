package biz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ai-nk/rag-service/pkg/llm"

	"github.com/ai-nk/rag-service/internal/model"
)

func TestPromptBuilderStructure(t *testing.T) {
	b := NewPromptBuilder()

	candidates := []model.ContextCandidate{
		{Doc: "ГОСТ 2.105-2019", Section: "4.1", Page: 7, Snippet: "Текст фрагмента."},
	}
	history := []model.Turn{
		{Role: "user", Content: "Первый вопрос"},
		{Role: "assistant", Content: "Первый ответ"},
	}

	messages := b.Build("Второй вопрос", candidates, history)
	require.Len(t, messages, 4)

	assert.Equal(t, llm.RoleSystem, messages[0].Role)
	assert.Equal(t, llm.RoleUser, messages[1].Role)
	assert.Equal(t, llm.RoleAssistant, messages[2].Role)
	assert.Equal(t, llm.RoleUser, messages[3].Role)

	last := messages[3].Content
	assert.Contains(t, last, "ГОСТ 2.105-2019")
	assert.Contains(t, last, "раздел 4.1")
	assert.Contains(t, last, "стр. 7")
	assert.Contains(t, last, "Текст фрагмента.")
	assert.Contains(t, last, "Второй вопрос")
}

// Normative text is full of braces and percent signs; the builder must pass
// them through untouched.
func TestPromptBuilderSpecialCharactersSafe(t *testing.T) {
	b := NewPromptBuilder()

	snippet := `Формула: {x} = 100%s от %d{значения} %(v)`
	question := `Что значит {параметр} и %прочее%?`

	messages := b.Build(question, []model.ContextCandidate{
		{Doc: "СП 70.13330", Section: "3", Snippet: snippet},
	}, nil)

	last := messages[len(messages)-1].Content
	assert.Contains(t, last, snippet)
	assert.Contains(t, last, question)
}

func TestPromptBuilderIncludesSummaryTopic(t *testing.T) {
	b := NewPromptBuilder()

	messages := b.Build("вопрос", []model.ContextCandidate{
		{
			Doc:     "ГОСТ 1.0",
			Snippet: "фрагмент",
			Summary: &model.CandidateSummary{Topic: "маркировка изделий"},
		},
	}, nil)

	assert.Contains(t, messages[len(messages)-1].Content, "Тема: маркировка изделий")
}
