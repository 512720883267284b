package llm

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"mediframework/pkg"
)

const defaultGeminiModel = "gemini-2.5-flash"

// Gemini backs the client interface with the Google Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini constructs a Gemini-backed client.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	if model == "" {
		model = defaultGeminiModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return &Gemini{client: client, model: model}, nil
}

type geminiSession struct {
	chat *genai.Chat
}

// geminiRole maps a stored message role onto the provider's typed role.
func geminiRole(r pkg.MessageRole) genai.Role {
	if r == pkg.RoleModel {
		return genai.RoleModel
	}
	return genai.RoleUser
}

func (g *Gemini) NewSession(ctx context.Context, systemInstruction string, history []Turn) (Session, error) {
	contents := make([]*genai.Content, 0, len(history))
	for _, t := range history {
		contents = append(contents, genai.NewContentFromText(t.Text, geminiRole(t.Role)))
	}
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
		Tools:             []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}},
	}
	chat, err := g.client.Chats.Create(ctx, g.model, config, contents)
	if err != nil {
		return nil, fmt.Errorf("creating gemini chat: %w", err)
	}
	return &geminiSession{chat: chat}, nil
}

func (s *geminiSession) SendStream(ctx context.Context, parts []Part, onChunk func(Chunk)) error {
	out := make([]genai.Part, 0, len(parts))
	for _, p := range parts {
		if p.Data != nil {
			out = append(out, genai.Part{InlineData: &genai.Blob{MIMEType: p.MIMEType, Data: p.Data}})
			continue
		}
		out = append(out, genai.Part{Text: p.Text})
	}
	for resp, err := range s.chat.SendMessageStream(ctx, out...) {
		if err != nil {
			return err
		}
		chunk := Chunk{Text: resp.Text()}
		if len(resp.Candidates) > 0 && resp.Candidates[0].GroundingMetadata != nil {
			chunk.Grounding = convertGrounding(resp.Candidates[0].GroundingMetadata.GroundingChunks)
		}
		onChunk(chunk)
	}
	return nil
}

func convertGrounding(chunks []*genai.GroundingChunk) []pkg.GroundingChunk {
	var out []pkg.GroundingChunk
	for _, gc := range chunks {
		if gc == nil || gc.Web == nil {
			continue
		}
		out = append(out, pkg.GroundingChunk{
			Web: &pkg.WebSource{URI: gc.Web.URI, Title: gc.Web.Title},
		})
	}
	return out
}

func (g *Gemini) GenerateOnce(ctx context.Context, prompt string, jsonMode bool) (string, error) {
	var config *genai.GenerateContentConfig
	if jsonMode {
		config = &genai.GenerateContentConfig{ResponseMIMEType: "application/json"}
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), config)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

func (g *Gemini) Probe(ctx context.Context) error {
	_, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text("ping"), nil)
	return err
}
