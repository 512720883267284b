// Package llm abstracts the completion providers behind a small
// client interface: stateful streaming chat sessions for the
// conversation surface and one-shot generation for the analyzer tools.
package llm

import (
	"context"

	"mediframework/pkg"
)

// Turn is one prior exchange used to rehydrate a chat session.  Only
// text survives rehydration; attachments from earlier turns are not
// replayed.
type Turn struct {
	Role pkg.MessageRole
	Text string
}

// Part is one piece of an outgoing turn.  Text parts carry the prompt;
// parts with Data carry an inline attachment.
type Part struct {
	Text     string
	Name     string
	MIMEType string
	Data     []byte
}

// Chunk is one streamed increment of a model reply.  Grounding, when
// present, arrives with the final chunks.
type Chunk struct {
	Text      string
	Grounding []pkg.GroundingChunk
}

// Session is a stateful chat bound to one encounter's history.
type Session interface {
	// SendStream sends one turn and invokes onChunk for every streamed
	// increment until the reply completes or fails.
	SendStream(ctx context.Context, parts []Part, onChunk func(Chunk)) error
}

// Client is a completion provider.
type Client interface {
	// NewSession opens a chat primed with a system instruction and
	// prior history.
	NewSession(ctx context.Context, systemInstruction string, history []Turn) (Session, error)

	// GenerateOnce runs a single stateless completion.  With jsonMode
	// the provider is asked to emit a JSON document.
	GenerateOnce(ctx context.Context, prompt string, jsonMode bool) (string, error)

	// Probe checks that the provider is reachable with the configured
	// credentials.
	Probe(ctx context.Context) error
}
