// Package main is the entry point for the AI-NK RAG service.
package main

import (
	_ "go.uber.org/automaxprocs/maxprocs"

	"github.com/ai-nk/rag-service/internal/ragsvc"

	// Register LLM providers.
	_ "github.com/ai-nk/rag-service/pkg/llm/ollama"
	_ "github.com/ai-nk/rag-service/pkg/llm/openai"
)

func main() {
	ragsvc.NewApp().Run()
}
