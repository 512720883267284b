package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"mediframework/pkg"
)

const defaultOpenAIModel = "gpt-4o-mini"

// OpenAI backs the client interface with the OpenAI chat API.  Chat
// state lives client-side: each session keeps the message history and
// replays it on every turn.
type OpenAI struct {
	client *openai.Client
	model  string
}

// NewOpenAI constructs an OpenAI-backed client.
func NewOpenAI(apiKey, model string) (*OpenAI, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key is required")
	}
	if model == "" {
		model = defaultOpenAIModel
	}
	return &OpenAI{client: openai.NewClient(apiKey), model: model}, nil
}

type openAISession struct {
	client   *openai.Client
	model    string
	messages []openai.ChatCompletionMessage
}

func (o *OpenAI) NewSession(_ context.Context, systemInstruction string, history []Turn) (Session, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: systemInstruction,
	})
	for _, t := range history {
		role := openai.ChatMessageRoleUser
		if t.Role == pkg.RoleModel {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: t.Text})
	}
	return &openAISession{client: o.client, model: o.model, messages: messages}, nil
}

// SendStream sends one turn and streams the reply.  Attachments cannot
// be forwarded inline, so they are folded into the text as descriptors.
func (s *openAISession) SendStream(ctx context.Context, parts []Part, onChunk func(Chunk)) error {
	var sb strings.Builder
	for _, p := range parts {
		if p.Data != nil {
			fmt.Fprintf(&sb, "[attached file: %s (%s, %d bytes)]\n", p.Name, p.MIMEType, len(p.Data))
			continue
		}
		sb.WriteString(p.Text)
	}
	userMsg := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: sb.String()}

	stream, err := s.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:    s.model,
		Messages: append(append([]openai.ChatCompletionMessage{}, s.messages...), userMsg),
		Stream:   true,
	})
	if err != nil {
		return err
	}
	defer stream.Close()

	var reply strings.Builder
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			continue
		}
		delta := resp.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		reply.WriteString(delta)
		onChunk(Chunk{Text: delta})
	}

	s.messages = append(s.messages, userMsg, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleAssistant,
		Content: reply.String(),
	})
	return nil
}

func (o *OpenAI) GenerateOnce(ctx context.Context, prompt string, jsonMode bool) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:    o.model,
		Messages: []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleUser, Content: prompt}},
	}
	if jsonMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}
	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("empty completion response")
	}
	return resp.Choices[0].Message.Content, nil
}

func (o *OpenAI) Probe(ctx context.Context) error {
	_, err := o.client.ListModels(ctx)
	return err
}
