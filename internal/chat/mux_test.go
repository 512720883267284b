package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediframework/internal/llm"
	"mediframework/internal/registry"
	"mediframework/internal/session"
	"mediframework/internal/storage"
	"mediframework/pkg"
)

func newTestEnv(t *testing.T) (*session.Store, *llm.Fake, *Multiplexer) {
	t.Helper()
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	store := session.NewStore(log, storage.NewMemory(), registry.NewTools(log), registry.NewModules(log), nil, func() bool { return true })
	store.LoadAll(context.Background())
	fake := &llm.Fake{}
	mux := NewMultiplexer(log, store, fake, time.Minute)
	return store, fake, mux
}

func TestSendTurnStreamsAndSettles(t *testing.T) {
	ctx := context.Background()
	store, fake, mux := newTestEnv(t)
	encID := store.ActiveID()

	fake.Script(llm.FakeReply{Chunks: []string{
		"**MEDIFRAMEWORK:** Likely viral.\n",
		"---NOTES_JSON_START---\n{\"redFlags\":[],\"symptoms\":[\"cough\"],\"diagnoses\":[\"viral URI\"],\"medications\":[],\"followUp\":[],\"patientEducation\":[]}\n---NOTES_JSON_END---",
	}})

	reply, err := mux.SendTurn(ctx, encID, "Patient has a cough.", nil)
	require.NoError(t, err)

	assert.NotContains(t, reply.Text, "NOTES_JSON")
	assert.Contains(t, reply.Text, "Likely viral.")
	assert.True(t, strings.HasSuffix(reply.Text, Disclaimer))

	enc := store.Active()
	require.Len(t, enc.Messages, 2)
	assert.Equal(t, pkg.RoleUser, enc.Messages[0].Role)
	assert.Equal(t, pkg.RoleModel, enc.Messages[1].Role)
	assert.Equal(t, reply.Text, enc.Messages[1].Text)

	// Present categories replaced, absent untouched; empties cleared.
	assert.Equal(t, []string{"cough"}, enc.Notes.Symptoms)
	assert.Equal(t, []string{"viral URI"}, enc.Notes.Diagnoses)
	assert.Empty(t, enc.Notes.RedFlags)
}

func TestSendTurnDisclaimerIdempotent(t *testing.T) {
	ctx := context.Background()
	store, fake, mux := newTestEnv(t)
	encID := store.ActiveID()

	fake.Script(llm.FakeReply{Chunks: []string{"Answer.\n\n" + Disclaimer}})

	reply, err := mux.SendTurn(ctx, encID, "question", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(reply.Text, Disclaimer[:50]))
}

func TestSendTurnErrorSubstitution(t *testing.T) {
	ctx := context.Background()
	store, fake, mux := newTestEnv(t)
	encID := store.ActiveID()

	fake.Script(llm.FakeReply{Err: errors.New("upstream exploded")})

	_, err := mux.SendTurn(ctx, encID, "question", nil)
	require.Error(t, err)

	enc := store.Active()
	require.Len(t, enc.Messages, 2)
	got := enc.Messages[1].Text
	assert.True(t, strings.HasPrefix(got, "**MEDIFRAMEWORK:** I encountered an error processing your request: "))
	assert.Contains(t, got, "upstream exploded")
	assert.True(t, strings.HasSuffix(got, Disclaimer))
}

// blockingClient holds every stream open until released, so tests can
// observe an in-flight turn.
type blockingClient struct {
	started chan struct{}
	release chan struct{}
}

func (c *blockingClient) NewSession(_ context.Context, _ string, _ []llm.Turn) (llm.Session, error) {
	return c, nil
}

func (c *blockingClient) SendStream(ctx context.Context, _ []llm.Part, onChunk func(llm.Chunk)) error {
	c.started <- struct{}{}
	<-c.release
	onChunk(llm.Chunk{Text: "done"})
	return nil
}

func (c *blockingClient) GenerateOnce(context.Context, string, bool) (string, error) {
	return "", errors.New("not scripted")
}

func (c *blockingClient) Probe(context.Context) error { return nil }

func TestSendTurnRejectsConcurrentTurn(t *testing.T) {
	ctx := context.Background()
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	store := session.NewStore(log, storage.NewMemory(), registry.NewTools(log), registry.NewModules(log), nil, func() bool { return true })
	store.LoadAll(ctx)
	encID := store.ActiveID()

	client := &blockingClient{started: make(chan struct{}, 1), release: make(chan struct{})}
	mux := NewMultiplexer(log, store, client, time.Minute)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := mux.SendTurn(ctx, encID, "first", nil)
		assert.NoError(t, err)
	}()

	<-client.started
	_, err := mux.SendTurn(ctx, encID, "second", nil)
	assert.ErrorIs(t, err, pkg.ErrTurnInProgress)

	close(client.release)
	wg.Wait()

	// Once the first turn settles, new turns are admitted again.
	client.release = make(chan struct{})
	close(client.release)
	go func() { <-client.started }()
	_, err = mux.SendTurn(ctx, encID, "third", nil)
	assert.NoError(t, err)
}

func TestSendTurnFoldsPatientBackgroundOnce(t *testing.T) {
	ctx := context.Background()
	store, fake, mux := newTestEnv(t)
	encID := store.ActiveID()

	require.NoError(t, store.SetPatientCoreData(ctx, encID, pkg.PatientCoreData{
		Age:            "63",
		Gender:         "M",
		ReasonForVisit: "chest tightness",
	}))

	fake.Script(
		llm.FakeReply{Chunks: []string{"First reply."}},
		llm.FakeReply{Chunks: []string{"Second reply."}},
	)

	_, err := mux.SendTurn(ctx, encID, "Evaluate.", nil)
	require.NoError(t, err)

	enc := store.Active()
	first := enc.Messages[0].Text
	assert.Contains(t, first, "Patient Background Information:")
	assert.Contains(t, first, "- Age: 63 years")
	assert.Contains(t, first, "- Current Symptoms/Reason for Visit: chest tightness")
	assert.True(t, enc.PatientDataSentToAI)

	_, err = mux.SendTurn(ctx, encID, "Anything else?", nil)
	require.NoError(t, err)
	enc = store.Active()
	assert.NotContains(t, enc.Messages[2].Text, "Patient Background Information:")
}

func TestSendTurnPrefixesFocusedSystem(t *testing.T) {
	ctx := context.Background()
	store, fake, mux := newTestEnv(t)
	encID := store.ActiveID()

	require.NoError(t, store.SetActiveSystemTab(ctx, pkg.SystemCardiovascular))
	fake.Script(llm.FakeReply{Chunks: []string{"Reply."}})

	_, err := mux.SendTurn(ctx, encID, "Assess murmur.", nil)
	require.NoError(t, err)

	enc := store.Active()
	assert.True(t, strings.HasPrefix(enc.Messages[0].Text, "Context: Current focus is on the Cardiovascular system. "))
}

func TestSendTurnGroundingAttached(t *testing.T) {
	ctx := context.Background()
	store, fake, mux := newTestEnv(t)
	encID := store.ActiveID()

	fake.Script(llm.FakeReply{
		Chunks: []string{"Grounded reply."},
		Grounding: []pkg.GroundingChunk{
			{Web: &pkg.WebSource{URI: "https://pubmed.example", Title: "Study"}},
		},
	})

	reply, err := mux.SendTurn(ctx, encID, "Evidence?", nil)
	require.NoError(t, err)
	require.Len(t, reply.GroundingChunks, 1)
	assert.Equal(t, "Study", reply.GroundingChunks[0].Web.Title)
}

func TestSessionRehydratesFromTextHistory(t *testing.T) {
	ctx := context.Background()
	store, fake, mux := newTestEnv(t)
	encID := store.ActiveID()

	require.NoError(t, store.AppendMessage(ctx, encID, pkg.Message{ID: "u1", Role: pkg.RoleUser, Text: "earlier question"}))
	require.NoError(t, store.AppendMessage(ctx, encID, pkg.Message{ID: "m1", Role: pkg.RoleModel, Text: "earlier answer"}))

	fake.Script(llm.FakeReply{Chunks: []string{"Continued."}})
	_, err := mux.SendTurn(ctx, encID, "follow up", nil)
	require.NoError(t, err)

	require.Len(t, fake.Sessions, 1)
	rec := fake.Sessions[0]
	assert.Equal(t, SystemPrompt, rec.SystemInstruction)
	require.Len(t, rec.History, 2)
	assert.Equal(t, pkg.RoleUser, rec.History[0].Role)
	assert.Equal(t, "earlier question", rec.History[0].Text)
	assert.Equal(t, pkg.RoleModel, rec.History[1].Role)
}

func TestRebuildAfterFailureSendsTurnOnce(t *testing.T) {
	ctx := context.Background()
	store, fake, mux := newTestEnv(t)
	encID := store.ActiveID()

	fake.Script(llm.FakeReply{Err: errors.New("stream reset")})
	_, err := mux.SendTurn(ctx, encID, "first question", nil)
	require.Error(t, err)

	fake.Script(llm.FakeReply{Chunks: []string{"Recovered."}})
	_, err = mux.SendTurn(ctx, encID, "second question", nil)
	require.NoError(t, err)

	// The session rebuilt after the failure replays the stored
	// transcript only; the live turn rides as parts, never as history.
	require.Len(t, fake.Sessions, 2)
	rec := fake.Sessions[1]
	require.Len(t, rec.History, 2)
	assert.Equal(t, "first question", rec.History[0].Text)
	for _, turn := range rec.History {
		assert.NotContains(t, turn.Text, "second question")
	}
}

func TestInvalidateOnDeleteRebuildsSession(t *testing.T) {
	ctx := context.Background()
	store, fake, mux := newTestEnv(t)
	first := store.ActiveID()

	fake.Script(llm.FakeReply{Chunks: []string{"one"}})
	_, err := mux.SendTurn(ctx, first, "hi", nil)
	require.NoError(t, err)
	require.Len(t, fake.Sessions, 1)

	second, err := store.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, store.Delete(ctx, first))

	fake.Script(llm.FakeReply{Chunks: []string{"two"}})
	_, err = mux.SendTurn(ctx, second.ID, "hello", nil)
	require.NoError(t, err)
	assert.Len(t, fake.Sessions, 2)
}

func TestExtractNotesMalformedLeavesTextIntact(t *testing.T) {
	text := "Reply.\n---NOTES_JSON_START---\n{broken\n---NOTES_JSON_END---"
	_, out, found, err := ExtractNotes(text)
	assert.Error(t, err)
	assert.False(t, found)
	assert.Equal(t, text, out)

	var parseErr *pkg.ParseError
	assert.ErrorAs(t, err, &parseErr)
}
