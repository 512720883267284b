package llm

import (
	"context"
	"errors"
	"sync"

	"mediframework/pkg"
)

// FakeReply scripts one turn of a fake session: the chunks to stream,
// or an error to fail with after streaming them.
type FakeReply struct {
	Chunks    []string
	Grounding []pkg.GroundingChunk
	Err       error
}

// Fake is a scripted client for tests.  Sessions consume replies in
// order; once the script runs out, turns fail.
type Fake struct {
	mu      sync.Mutex
	replies []FakeReply

	ProbeErr error

	// GenerateFn, when set, handles GenerateOnce calls.
	GenerateFn func(prompt string, jsonMode bool) (string, error)

	// Sessions records the system instruction and history of every
	// session opened.
	Sessions []FakeSessionRecord
}

type FakeSessionRecord struct {
	SystemInstruction string
	History           []Turn
}

// Script appends replies to the script.
func (f *Fake) Script(replies ...FakeReply) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies = append(f.replies, replies...)
}

func (f *Fake) NewSession(_ context.Context, systemInstruction string, history []Turn) (Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Sessions = append(f.Sessions, FakeSessionRecord{
		SystemInstruction: systemInstruction,
		History:           append([]Turn{}, history...),
	})
	return &fakeSession{fake: f}, nil
}

func (f *Fake) GenerateOnce(_ context.Context, prompt string, jsonMode bool) (string, error) {
	if f.GenerateFn != nil {
		return f.GenerateFn(prompt, jsonMode)
	}
	return "", errors.New("no generate handler scripted")
}

func (f *Fake) Probe(_ context.Context) error { return f.ProbeErr }

type fakeSession struct {
	fake *Fake

	// Sent records the parts of every turn sent on this session.
	mu   sync.Mutex
	Sent [][]Part
}

func (s *fakeSession) SendStream(ctx context.Context, parts []Part, onChunk func(Chunk)) error {
	s.mu.Lock()
	s.Sent = append(s.Sent, append([]Part{}, parts...))
	s.mu.Unlock()

	s.fake.mu.Lock()
	if len(s.fake.replies) == 0 {
		s.fake.mu.Unlock()
		return errors.New("no reply scripted")
	}
	reply := s.fake.replies[0]
	s.fake.replies = s.fake.replies[1:]
	s.fake.mu.Unlock()

	for i, text := range reply.Chunks {
		if err := ctx.Err(); err != nil {
			return err
		}
		chunk := Chunk{Text: text}
		if i == len(reply.Chunks)-1 {
			chunk.Grounding = reply.Grounding
		}
		onChunk(chunk)
	}
	return reply.Err
}
