package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Generator defines the interface for one-shot text generation
type Generator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// Message is one turn of a chat conversation. Role is "user" or "model".
type Message struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// Chatter defines the interface for the chat assistant. The conversation is
// stateless on the server: the caller supplies the full history, with the
// latest user message as the final entry.
type Chatter interface {
	GenerateChat(ctx context.Context, system string, history []Message) (string, error)
}

// Client wraps the Gemini API client
type Client struct {
	genaiClient *genai.Client
	modelName   string
}

// Ensure Client implements both interfaces
var _ Generator = (*Client)(nil)
var _ Chatter = (*Client)(nil)

// NewClient creates a new Gemini client
func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}

	return &Client{
		genaiClient: client,
		modelName:   model,
	}, nil
}

// Close closes the client
func (c *Client) Close() error {
	return c.genaiClient.Close()
}

// GenerateText generates text from a prompt
func (c *Client) GenerateText(ctx context.Context, prompt string) (string, error) {
	model := c.genaiClient.GenerativeModel(c.modelName)
	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	return collectText(resp)
}

// GenerateChat runs one chat turn with a system instruction and history.
func (c *Client) GenerateChat(ctx context.Context, system string, history []Message) (string, error) {
	if len(history) == 0 {
		return "", fmt.Errorf("chat history is empty")
	}
	last := history[len(history)-1]
	if last.Role != "user" {
		return "", fmt.Errorf("last chat message must be from the user, got role %q", last.Role)
	}

	model := c.genaiClient.GenerativeModel(c.modelName)
	if system != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(system)},
		}
	}

	cs := model.StartChat()
	for _, m := range history[:len(history)-1] {
		cs.History = append(cs.History, &genai.Content{
			Role:  m.Role,
			Parts: []genai.Part{genai.Text(m.Text)},
		})
	}

	resp, err := cs.SendMessage(ctx, genai.Text(last.Text))
	if err != nil {
		return "", fmt.Errorf("failed to send chat message: %w", err)
	}
	return collectText(resp)
}

func collectText(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates returned")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	return sb.String(), nil
}
