package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"mediframework/internal/llm"
	"mediframework/internal/session"
	"mediframework/pkg"
)

const defaultTurnTimeout = 2 * time.Minute

// Multiplexer owns one provider chat session per encounter.  Sessions
// are created lazily from the stored transcript and dropped when the
// encounter is deleted or a turn fails, so the next turn rebuilds from
// persisted history.
type Multiplexer struct {
	log     *logrus.Logger
	store   *session.Store
	client  llm.Client
	timeout time.Duration

	mu       sync.Mutex
	sessions map[string]llm.Session
	inFlight map[string]bool
}

// NewMultiplexer wires the multiplexer to the session store and
// registers itself for encounter-deletion eviction.  A non-positive
// timeout selects the default per-turn deadline.
func NewMultiplexer(log *logrus.Logger, store *session.Store, client llm.Client, timeout time.Duration) *Multiplexer {
	if timeout <= 0 {
		timeout = defaultTurnTimeout
	}
	m := &Multiplexer{
		log:      log,
		store:    store,
		client:   client,
		timeout:  timeout,
		sessions: make(map[string]llm.Session),
		inFlight: make(map[string]bool),
	}
	store.RegisterDropHandler(m.Invalidate)
	return m
}

// Invalidate drops the cached session for an encounter.
func (m *Multiplexer) Invalidate(encounterID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, encounterID)
}

// RehydrateAll pre-opens a session for every stored encounter so the
// first turn after startup does not pay the rebuild cost.  Failures are
// logged; the session will be retried lazily.
func (m *Multiplexer) RehydrateAll(ctx context.Context) {
	for _, enc := range m.store.List() {
		if _, err := m.sessionFor(ctx, enc.ID); err != nil {
			m.log.WithError(err).WithField("encounter", enc.ID).Warn("rehydrating chat session failed")
		}
	}
}

// sessionFor returns the cached session for an encounter, creating one
// from its persisted transcript when absent.  Only message text is
// replayed; attachment bytes from prior turns are gone and their
// descriptors already live inside the stored user text.
func (m *Multiplexer) sessionFor(ctx context.Context, encounterID string) (llm.Session, error) {
	m.mu.Lock()
	if sess, ok := m.sessions[encounterID]; ok {
		m.mu.Unlock()
		return sess, nil
	}
	m.mu.Unlock()

	history, err := m.store.MessageHistory(encounterID)
	if err != nil {
		return nil, err
	}
	turns := make([]llm.Turn, 0, len(history))
	for _, msg := range history {
		if msg.Text == "" {
			continue
		}
		turns = append(turns, llm.Turn{Role: msg.Role, Text: msg.Text})
	}
	sess, err := m.client.NewSession(ctx, SystemPrompt, turns)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.sessions[encounterID] = sess
	m.mu.Unlock()
	return sess, nil
}

// SendTurn runs one full conversation turn against an encounter: fold
// in pending patient background and the focused system, append the
// user message, stream the reply into a model message, then settle the
// reply (notes extraction, disclaimer) and persist.  At most one turn
// per encounter may be in flight; a second call is rejected with
// ErrTurnInProgress.  The returned message is the settled model reply.
func (m *Multiplexer) SendTurn(ctx context.Context, encounterID, text string, files []llm.Part) (pkg.Message, error) {
	m.mu.Lock()
	if m.inFlight[encounterID] {
		m.mu.Unlock()
		return pkg.Message{}, fmt.Errorf("%w: encounter %s", pkg.ErrTurnInProgress, encounterID)
	}
	m.inFlight[encounterID] = true
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		delete(m.inFlight, encounterID)
		m.mu.Unlock()
	}()

	enc, err := m.store.Get(encounterID)
	if err != nil {
		return pkg.Message{}, err
	}

	combined := text
	if !enc.PatientDataSentToAI && !enc.PatientCoreData.IsEmpty() {
		if background := FormatPatientBackground(enc.PatientCoreData); background != "" {
			combined = background + combined
			if err := m.store.MarkPatientDataSent(ctx, encounterID); err != nil {
				m.log.WithError(err).Warn("marking patient data sent failed")
			}
		}
	}
	if m.store.ActiveID() == encounterID {
		if tab := m.store.ActiveSystemTab(); tab != "" {
			combined = fmt.Sprintf("Context: Current focus is on the %s system. %s", tab, combined)
		}
	}

	turnCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	// Resolve the session before the new user message lands in the
	// transcript; a rebuilt history must stop at the previous turn or
	// the provider would receive this turn twice.
	sess, sessErr := m.sessionFor(turnCtx, encounterID)

	userMsg := pkg.Message{
		ID:        uuid.NewString(),
		Role:      pkg.RoleUser,
		Text:      combined,
		Timestamp: time.Now().UnixMilli(),
	}
	for _, f := range files {
		if f.Data != nil {
			userMsg.Files = append(userMsg.Files, pkg.FileRef{Name: f.Name, Type: f.MIMEType, Size: int64(len(f.Data))})
		}
	}
	if err := m.store.AppendMessage(ctx, encounterID, userMsg); err != nil {
		return pkg.Message{}, err
	}

	modelMsg := pkg.Message{
		ID:        uuid.NewString(),
		Role:      pkg.RoleModel,
		Timestamp: time.Now().UnixMilli(),
	}
	if err := m.store.AppendMessage(ctx, encounterID, modelMsg); err != nil {
		return pkg.Message{}, err
	}

	parts := make([]llm.Part, 0, len(files)+1)
	if combined != "" {
		parts = append(parts, llm.Part{Text: combined})
	}
	parts = append(parts, files...)

	var accumulated string
	err = sessErr
	if err == nil {
		err = sess.SendStream(turnCtx, parts, func(chunk llm.Chunk) {
			if chunk.Text != "" {
				accumulated += chunk.Text
				if serr := m.store.SetMessageText(encounterID, modelMsg.ID, accumulated); serr != nil {
					m.log.WithError(serr).Warn("updating streamed message failed")
				}
			}
			if len(chunk.Grounding) > 0 {
				if serr := m.store.SetMessageGrounding(encounterID, modelMsg.ID, chunk.Grounding); serr != nil {
					m.log.WithError(serr).Warn("attaching grounding failed")
				}
			}
		})
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %v", pkg.ErrTurnTimeout, err)
		}
		m.log.WithError(err).WithField("encounter", encounterID).Error("turn failed")
		if serr := m.store.SetMessageText(encounterID, modelMsg.ID, ErrorReply(err)); serr != nil {
			m.log.WithError(serr).Warn("recording turn failure failed")
		}
		m.store.Save(ctx)
		m.Invalidate(encounterID)
		return pkg.Message{}, err
	}

	final := accumulated
	update, stripped, found, perr := ExtractNotes(final)
	switch {
	case perr != nil:
		m.log.WithError(perr).WithField("encounter", encounterID).Warn("notes block unparseable; keeping raw reply")
	case found:
		final = stripped
		if nerr := m.store.MergeNotes(ctx, encounterID, update); nerr != nil {
			m.log.WithError(nerr).Warn("merging extracted notes failed")
		}
	}
	final = EnsureDisclaimer(final)
	if serr := m.store.SetMessageText(encounterID, modelMsg.ID, final); serr != nil {
		m.log.WithError(serr).Warn("settling model message failed")
	}
	m.store.Save(ctx)

	if history, herr := m.store.MessageHistory(encounterID); herr == nil {
		for _, msg := range history {
			if msg.ID == modelMsg.ID {
				return msg, nil
			}
		}
	}
	modelMsg.Text = final
	return modelMsg, nil
}
