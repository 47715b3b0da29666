package ai

import "context"

// Generator binds an OpenAI-compatible client to one chat model config so
// callers do not carry the config around.
type Generator struct {
	client *OpenAICompatibleClient
	cfg    ChatConfig
}

func NewGenerator(client *OpenAICompatibleClient, cfg ChatConfig) *Generator {
	return &Generator{client: client, cfg: cfg}
}

// GenerateText sends the prompt as a single user message and returns the
// model's reply.
func (g *Generator) GenerateText(ctx context.Context, prompt string) (string, error) {
	return g.client.Complete(ctx, g.cfg, []ChatMessage{{Role: "user", Content: prompt}})
}
