package biz

import (
	"strconv"
	"strings"

	"github.com/ai-nk/rag-service/pkg/llm"

	"github.com/ai-nk/rag-service/internal/model"
)

const consultationSystemPrompt = "Ты — эксперт по нормативной документации. " +
	"Отвечай на вопросы, опираясь только на приведённые фрагменты нормативных документов. " +
	"Указывай документ и раздел, на которые ссылаешься. " +
	"Если в фрагментах нет ответа, прямо скажи об этом."

// PromptBuilder assembles consultation prompts. Retrieved snippets and user
// questions are appended as discrete blocks, never run through format
// strings, so brace or percent characters in normative text cannot corrupt
// the prompt.
type PromptBuilder struct {
	system string
}

// NewPromptBuilder creates a builder with the default system prompt.
func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{system: consultationSystemPrompt}
}

// Build produces the message list for one consultation call.
func (b *PromptBuilder) Build(question string, candidates []model.ContextCandidate, history []model.Turn) []llm.Message {
	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: b.system})

	for _, turn := range history {
		role := llm.RoleUser
		if turn.Role == string(llm.RoleAssistant) {
			role = llm.RoleAssistant
		}
		messages = append(messages, llm.Message{Role: role, Content: turn.Content})
	}

	var sb strings.Builder
	sb.WriteString("Фрагменты нормативных документов:\n\n")
	for i, c := range candidates {
		sb.WriteString("[")
		sb.WriteString(strconv.Itoa(i + 1))
		sb.WriteString("] ")
		sb.WriteString(c.Doc)
		if c.Section != "" {
			sb.WriteString(", раздел ")
			sb.WriteString(c.Section)
		}
		if c.Page > 0 {
			sb.WriteString(", стр. ")
			sb.WriteString(strconv.Itoa(c.Page))
		}
		sb.WriteString("\n")
		sb.WriteString(c.Snippet)
		if c.Summary != nil && c.Summary.Topic != "" {
			sb.WriteString("\nТема: ")
			sb.WriteString(c.Summary.Topic)
		}
		sb.WriteString("\n\n")
	}
	sb.WriteString("Вопрос:\n")
	sb.WriteString(question)

	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: sb.String()})
	return messages
}
