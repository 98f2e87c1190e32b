package llm

import (
	"context"
	"fmt"

	"rag-worker/cmd/configs"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Generator produces answers from a prompt through an OpenAI-compatible chat API
type Generator struct {
	client      llms.Model
	temperature float64
}

func NewGenerator(config *configs.Config) (*Generator, error) {
	token := config.AI.LLMToken
	if token == "" {
		token = "none"
	}

	client, err := openai.New(
		openai.WithBaseURL(config.AI.LLMHost),
		openai.WithToken(token),
		openai.WithModel(config.AI.LLMModel),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create llm client: %w", err)
	}

	return NewGeneratorFrom(client, config.AI.LLMTemperature), nil
}

// NewGeneratorFrom wraps an existing langchaingo model
func NewGeneratorFrom(client llms.Model, temperature float64) *Generator {
	return &Generator{client: client, temperature: temperature}
}

// Generate returns the model completion for prompt
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	answer, err := llms.GenerateFromSinglePrompt(ctx, g.client, prompt, llms.WithTemperature(g.temperature))
	if err != nil {
		return "", fmt.Errorf("failed to generate answer: %w", err)
	}
	return answer, nil
}
