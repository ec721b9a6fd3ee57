package rag

import (
	"fmt"
	"strings"

	"legal-rag/internal/models"
)

// BuildPrompt merges the retrieved contexts, separated by one blank line,
// with the question into the user message. The model's adherence to the
// system prompt rules is not checked here.
func BuildPrompt(contexts []string, question string) string {
	merged := strings.Join(contexts, models.ContextSeparator)
	return fmt.Sprintf(models.UserPromptTemplate, merged, question)
}

// SystemPrompt is the fixed instruction sent with every question.
func SystemPrompt() string {
	return models.SystemPrompt
}
