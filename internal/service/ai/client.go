// Package ai implements the model-client boundary on top of the configured
// chat model: one call for complete replies, one for incremental streaming.
package ai

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/seralis/fableforge/internal/config"
	"github.com/seralis/fableforge/internal/model/game"
)

// Client sends conversations to the chat model.
type Client struct {
	chatModel model.ChatModel
	name      string
}

// NewClient constructs the model client from configuration.
func NewClient(ctx context.Context, cfg config.AIConfig) (*Client, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("create chat model: %w", err)
	}
	return &Client{chatModel: chatModel, name: cfg.Model}, nil
}

// ModelName returns the configured model identifier.
func (c *Client) ModelName() string { return c.name }

// Complete sends the conversation and blocks for the full reply.
func (c *Client) Complete(ctx context.Context, messages []game.Message, temperature float64) (string, error) {
	response, err := c.chatModel.Generate(ctx, toSchemaMessages(messages), model.WithTemperature(float32(temperature)))
	if err != nil {
		return "", fmt.Errorf("generate reply: %w", err)
	}
	return response.Content, nil
}

// Stream sends the conversation and forwards reply fragments in order via
// onChunk before returning the concatenated final text.
func (c *Client) Stream(ctx context.Context, messages []game.Message, temperature float64, onChunk func(chunk string)) (string, error) {
	stream, err := c.chatModel.Stream(ctx, toSchemaMessages(messages), model.WithTemperature(float32(temperature)))
	if err != nil {
		return "", fmt.Errorf("stream reply: %w", err)
	}
	defer stream.Close()

	chunks := make([]*schema.Message, 0, 8)
	for {
		chunk, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			return "", fmt.Errorf("receive stream chunk: %w", recvErr)
		}
		if chunk == nil {
			continue
		}

		chunks = append(chunks, chunk)
		if chunk.Content != "" && onChunk != nil {
			onChunk(chunk.Content)
		}
	}

	response, err := schema.ConcatMessages(chunks)
	if err != nil {
		return "", fmt.Errorf("concatenate stream: %w", err)
	}
	return response.Content, nil
}

func toSchemaMessages(messages []game.Message) []*schema.Message {
	out := make([]*schema.Message, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case game.RoleSystem:
			out = append(out, schema.SystemMessage(msg.Content))
		case game.RoleUser:
			out = append(out, schema.UserMessage(msg.Content))
		case game.RoleAssistant:
			out = append(out, schema.AssistantMessage(msg.Content, nil))
		}
	}
	return out
}
