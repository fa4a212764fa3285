package ai

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
)

// ChainTextModel runs requests through an eino chain: chat template followed
// by the configured chat model (Ark in production).
type ChainTextModel struct {
	chain compose.Runnable[map[string]any, *schema.Message]
}

// NewChainTextModel compiles the template/model chain.
func NewChainTextModel(ctx context.Context, chatModel model.BaseChatModel) (*ChainTextModel, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("chat model is required")
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.UserMessage("{prompt}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile story chain: %w", err)
	}

	return &ChainTextModel{chain: runnable}, nil
}

// Generate invokes the chain and returns the message content.
func (m *ChainTextModel) Generate(ctx context.Context, req Request) (string, error) {
	input := map[string]any{
		"system": req.System,
		"prompt": req.Prompt,
	}

	msg, err := m.chain.Invoke(ctx, input)
	if err != nil {
		return "", fmt.Errorf("failed to run story chain: %w", err)
	}
	if msg == nil {
		return "", nil
	}
	return msg.Content, nil
}
