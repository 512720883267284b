// Package session owns the encounter collection: which encounters
// exist, which one is active, and every mutation of encounter state.
// All persistence goes through a storage.Store and is best-effort; a
// failed save is logged and never surfaces to the caller.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"mediframework/internal/registry"
	"mediframework/internal/storage"
	"mediframework/pkg"
)

// Store multiplexes every encounter and tracks the active one.  The
// tool and module registries always hold the active encounter's working
// copies; Load is called on them whenever the active encounter changes.
type Store struct {
	log         *logrus.Logger
	storage     storage.Store
	tools       *registry.Tools
	modules     *registry.Modules
	hooks       Hooks
	aiAvailable func() bool

	mu           sync.Mutex
	encounters   []*pkg.Encounter
	activeID     string
	activeTab    pkg.BodySystem
	dropHandlers []func(encounterID string)
}

// NewStore wires the session store to its persistence backend and the
// active-encounter registries.  hooks may be nil; aiAvailable may be
// nil, in which case encounter creation is refused.
func NewStore(log *logrus.Logger, st storage.Store, tools *registry.Tools, modules *registry.Modules, hooks Hooks, aiAvailable func() bool) *Store {
	if hooks == nil {
		hooks = NoopHooks{}
	}
	if aiAvailable == nil {
		aiAvailable = func() bool { return false }
	}
	return &Store{
		log:         log,
		storage:     st,
		tools:       tools,
		modules:     modules,
		hooks:       hooks,
		aiAvailable: aiAvailable,
	}
}

// RegisterDropHandler adds a callback invoked after an encounter is
// deleted, so dependent caches can evict their entries.
func (s *Store) RegisterDropHandler(fn func(encounterID string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dropHandlers = append(s.dropHandlers, fn)
}

func nowMillis() int64 { return time.Now().UnixMilli() }

func emptyNotes() pkg.NotesData {
	return pkg.NotesData{
		RedFlags:         []string{},
		Symptoms:         []string{},
		Diagnoses:        []string{},
		Medications:      []string{},
		FollowUp:         []string{},
		PatientEducation: []string{},
	}
}

// LoadAll restores the encounter collection from storage.  Undecodable
// state is discarded with a warning rather than propagated.  Every
// loaded encounter is normalized so newer fields are present, the
// stored active id wins when it still exists, and if nothing loads a
// fresh encounter is created (when the completion service allows it).
func (s *Store) LoadAll(ctx context.Context) {
	s.mu.Lock()

	var encounters []*pkg.Encounter
	raw, ok, err := s.storage.Get(ctx, storage.KeyEncounters)
	if err != nil {
		s.log.WithError(err).Warn("reading stored encounters failed; starting empty")
	} else if ok {
		if err := json.Unmarshal([]byte(raw), &encounters); err != nil {
			s.log.WithError(err).Warn("stored encounters undecodable; starting empty")
			encounters = nil
		}
	}
	for _, enc := range encounters {
		normalizeEncounter(enc)
	}
	s.encounters = encounters

	s.activeID = ""
	storedID, ok, err := s.storage.Get(ctx, storage.KeyActiveEncounterID)
	if err != nil {
		s.log.WithError(err).Warn("reading active encounter id failed")
	}
	if ok && s.findLocked(storedID) != nil {
		s.activeID = storedID
	} else if mostRecent := s.mostRecentLocked(); mostRecent != nil {
		s.activeID = mostRecent.ID
	}

	needCreate := len(s.encounters) == 0
	activeID := s.activeID
	if !needCreate {
		s.restoreActiveLocked(ctx)
		s.persistLocked(ctx)
	}
	s.mu.Unlock()

	if needCreate {
		if _, err := s.Create(ctx); err != nil {
			s.log.WithError(err).Warn("no stored encounters and none could be created")
		}
		return
	}
	s.hooks.EncounterListChanged()
	s.hooks.ActiveEncounterChanged(activeID)
}

// normalizeEncounter fills in every field an older stored encounter may
// be missing, so downstream code never sees a nil map or absent payload.
func normalizeEncounter(enc *pkg.Encounter) {
	if enc.Messages == nil {
		enc.Messages = []pkg.Message{}
	}
	normalizeNotes(&enc.Notes)
	if enc.BodySystemSeverities == nil {
		enc.BodySystemSeverities = pkg.DefaultSeverities()
	} else {
		for _, sys := range pkg.BodySystems {
			if _, present := enc.BodySystemSeverities[sys]; !present {
				enc.BodySystemSeverities[sys] = pkg.SeverityNoData
			}
		}
	}
	enc.BodySystemToolResults = registry.MergeToolResults(&enc.BodySystemToolResults)
	enc.PsychometricAssessments = registry.MergeModuleSet(&enc.PsychometricAssessments)
}

// normalizeNotes backfills category slices so notes always serialize as
// arrays, never null.
func normalizeNotes(n *pkg.NotesData) {
	for _, slot := range []*[]string{
		&n.RedFlags, &n.Symptoms, &n.Diagnoses,
		&n.Medications, &n.FollowUp, &n.PatientEducation,
	} {
		if *slot == nil {
			*slot = []string{}
		}
	}
}

// Create adds a fresh encounter, makes it active and persists.  It is
// refused while the completion service is unavailable, since a new
// encounter could never hold a conversation.
func (s *Store) Create(ctx context.Context) (*pkg.Encounter, error) {
	if !s.aiAvailable() {
		return nil, pkg.ErrServiceUnavailable
	}

	s.mu.Lock()
	now := nowMillis()
	enc := &pkg.Encounter{
		ID:                      uuid.NewString(),
		Name:                    s.nextNameLocked(),
		Messages:                []pkg.Message{},
		Notes:                   emptyNotes(),
		CreatedAt:               now,
		LastActivityAt:          now,
		BodySystemSeverities:    pkg.DefaultSeverities(),
		PsychometricAssessments: pkg.DefaultModuleSet(),
		BodySystemToolResults:   pkg.DefaultToolResults(),
	}
	s.encounters = append(s.encounters, enc)
	s.activeID = enc.ID
	s.activeTab = ""
	s.tools.Load(&enc.BodySystemToolResults)
	s.modules.Load(&enc.PsychometricAssessments)
	s.persistLocked(ctx)
	clone := enc.Clone()
	s.mu.Unlock()

	s.log.WithField("encounter", enc.ID).Info("created encounter")
	s.hooks.EncounterListChanged()
	s.hooks.ActiveEncounterChanged(enc.ID)
	return clone, nil
}

// nextNameLocked assigns the next PATIENT-#### name, one past the
// highest numeric suffix currently in use.
func (s *Store) nextNameLocked() string {
	highest := 0
	for _, enc := range s.encounters {
		if !strings.HasPrefix(enc.Name, "PATIENT-") {
			continue
		}
		if n, err := strconv.Atoi(enc.Name[len("PATIENT-"):]); err == nil && n > highest {
			highest = n
		}
	}
	return fmt.Sprintf("PATIENT-%04d", highest+1)
}

// SwitchActive makes the named encounter active, restoring its system
// tab and loading its data into the registries.  Switching to the
// current encounter is a no-op; an unknown id is logged and ignored.
func (s *Store) SwitchActive(ctx context.Context, id string) {
	s.mu.Lock()
	if id == s.activeID {
		s.mu.Unlock()
		return
	}
	if s.findLocked(id) == nil {
		s.log.WithField("encounter", id).Info("ignoring switch to unknown encounter")
		s.mu.Unlock()
		return
	}
	s.activeID = id
	s.restoreActiveLocked(ctx)
	s.persistLocked(ctx)
	s.mu.Unlock()

	s.hooks.ActiveEncounterChanged(id)
}

// restoreActiveLocked reloads the per-encounter system tab and the
// registry working copies for the current active encounter.
func (s *Store) restoreActiveLocked(ctx context.Context) {
	enc := s.findLocked(s.activeID)
	if enc == nil {
		return
	}
	s.activeTab = ""
	if tab, ok, err := s.storage.Get(ctx, storage.ActiveSystemTabKey(enc.ID)); err != nil {
		s.log.WithError(err).Warn("reading active system tab failed")
	} else if ok && pkg.ValidBodySystem(pkg.BodySystem(tab)) {
		s.activeTab = pkg.BodySystem(tab)
	}
	s.tools.Load(&enc.BodySystemToolResults)
	s.modules.Load(&enc.PsychometricAssessments)
}

// Delete removes an encounter.  If it was active, the most recently
// touched survivor is promoted; with no survivors a fresh encounter is
// created when possible.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	idx := -1
	for i, enc := range s.encounters {
		if enc.ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", pkg.ErrEncounterNotFound, id)
	}
	s.encounters = append(s.encounters[:idx], s.encounters[idx+1:]...)
	if err := s.storage.Remove(ctx, storage.ActiveSystemTabKey(id)); err != nil {
		s.log.WithError(err).Warn("removing system tab key failed")
	}

	wasActive := id == s.activeID
	newActive := s.activeID
	if wasActive {
		s.activeID = ""
		s.activeTab = ""
		if promoted := s.mostRecentLocked(); promoted != nil {
			s.activeID = promoted.ID
			s.restoreActiveLocked(ctx)
		}
		newActive = s.activeID
	}
	needCreate := len(s.encounters) == 0
	s.persistLocked(ctx)
	handlers := append([]func(string){}, s.dropHandlers...)
	s.mu.Unlock()

	for _, fn := range handlers {
		fn(id)
	}
	s.log.WithField("encounter", id).Info("deleted encounter")
	s.hooks.EncounterListChanged()

	if needCreate {
		if _, err := s.Create(ctx); err != nil {
			s.log.WithError(err).Warn("deleted last encounter and none could be created")
		}
		return nil
	}
	if wasActive {
		s.hooks.ActiveEncounterChanged(newActive)
	}
	return nil
}

// mostRecentLocked returns the encounter with the newest activity.
func (s *Store) mostRecentLocked() *pkg.Encounter {
	var best *pkg.Encounter
	for _, enc := range s.encounters {
		if best == nil || enc.LastActivityAt > best.LastActivityAt {
			best = enc
		}
	}
	return best
}

// Rename gives an encounter a new trimmed name.  Blank results are
// rejected; renaming to the current name changes nothing.
func (s *Store) Rename(ctx context.Context, id, name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return fmt.Errorf("%w: encounter name cannot be blank", pkg.ErrValidation)
	}

	s.mu.Lock()
	enc := s.findLocked(id)
	if enc == nil {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", pkg.ErrEncounterNotFound, id)
	}
	if enc.Name == trimmed {
		s.mu.Unlock()
		return nil
	}
	enc.Name = trimmed
	enc.LastActivityAt = nowMillis()
	s.persistLocked(ctx)
	s.mu.Unlock()

	s.hooks.EncounterListChanged()
	return nil
}

// Save persists the full collection.  Failures are logged, never
// returned.
func (s *Store) Save(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persistLocked(ctx)
}

func (s *Store) persistLocked(ctx context.Context) {
	blob, err := json.Marshal(s.encounters)
	if err != nil {
		s.log.WithError(err).Error("encoding encounters failed; state not saved")
		return
	}
	if err := s.storage.Set(ctx, storage.KeyEncounters, string(blob)); err != nil {
		perr := &pkg.PersistenceError{Op: "set", Key: storage.KeyEncounters, Err: err}
		s.log.WithError(perr).Warn("saving encounters failed")
	}
	if err := s.storage.Set(ctx, storage.KeyActiveEncounterID, s.activeID); err != nil {
		perr := &pkg.PersistenceError{Op: "set", Key: storage.KeyActiveEncounterID, Err: err}
		s.log.WithError(perr).Warn("saving active encounter id failed")
	}
	if s.activeID == "" {
		return
	}
	tabKey := storage.ActiveSystemTabKey(s.activeID)
	if s.activeTab == "" {
		if err := s.storage.Remove(ctx, tabKey); err != nil {
			s.log.WithError(err).Warn("clearing system tab failed")
		}
		return
	}
	if err := s.storage.Set(ctx, tabKey, string(s.activeTab)); err != nil {
		perr := &pkg.PersistenceError{Op: "set", Key: tabKey, Err: err}
		s.log.WithError(perr).Warn("saving system tab failed")
	}
}

func (s *Store) findLocked(id string) *pkg.Encounter {
	for _, enc := range s.encounters {
		if enc.ID == id {
			return enc
		}
	}
	return nil
}

// List returns deep copies of every encounter in creation order.
func (s *Store) List() []*pkg.Encounter {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*pkg.Encounter, len(s.encounters))
	for i, enc := range s.encounters {
		out[i] = enc.Clone()
	}
	return out
}

// ActiveID returns the active encounter id, or "" when none is active.
func (s *Store) ActiveID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID
}

// Active returns a deep copy of the active encounter, or nil.
func (s *Store) Active() *pkg.Encounter {
	s.mu.Lock()
	defer s.mu.Unlock()
	if enc := s.findLocked(s.activeID); enc != nil {
		return enc.Clone()
	}
	return nil
}

// Get returns a deep copy of the named encounter.
func (s *Store) Get(id string) (*pkg.Encounter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if enc := s.findLocked(id); enc != nil {
		return enc.Clone(), nil
	}
	return nil, fmt.Errorf("%w: %s", pkg.ErrEncounterNotFound, id)
}

// MessageHistory returns deep copies of an encounter's transcript.
func (s *Store) MessageHistory(id string) ([]pkg.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	enc := s.findLocked(id)
	if enc == nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrEncounterNotFound, id)
	}
	out := make([]pkg.Message, len(enc.Messages))
	for i, m := range enc.Messages {
		out[i] = m.Clone()
	}
	return out, nil
}

// ActiveSystemTab returns the active encounter's selected system tab,
// or "" when no tab is selected.
func (s *Store) ActiveSystemTab() pkg.BodySystem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeTab
}

// SetActiveSystemTab records the selected tab for the active encounter.
// Pass "" to clear the selection.
func (s *Store) SetActiveSystemTab(ctx context.Context, tab pkg.BodySystem) error {
	if tab != "" && !pkg.ValidBodySystem(tab) {
		return fmt.Errorf("%w: unknown body system %q", pkg.ErrValidation, tab)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeID == "" {
		return pkg.ErrEncounterNotFound
	}
	s.activeTab = tab
	tabKey := storage.ActiveSystemTabKey(s.activeID)
	if tab == "" {
		if err := s.storage.Remove(ctx, tabKey); err != nil {
			s.log.WithError(err).Warn("clearing system tab failed")
		}
		return nil
	}
	if err := s.storage.Set(ctx, tabKey, string(tab)); err != nil {
		s.log.WithError(err).Warn("saving system tab failed")
	}
	return nil
}

// SetSeverity assigns a body system severity on the named encounter.
func (s *Store) SetSeverity(ctx context.Context, id string, system pkg.BodySystem, severity pkg.Severity) error {
	if !pkg.ValidBodySystem(system) {
		return fmt.Errorf("%w: unknown body system %q", pkg.ErrValidation, system)
	}
	if !pkg.ValidSeverity(severity) {
		return fmt.Errorf("%w: unknown severity %q", pkg.ErrValidation, severity)
	}

	s.mu.Lock()
	enc := s.findLocked(id)
	if enc == nil {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", pkg.ErrEncounterNotFound, id)
	}
	enc.BodySystemSeverities[system] = severity
	enc.LastActivityAt = nowMillis()
	s.persistLocked(ctx)
	s.mu.Unlock()

	s.hooks.EncounterListChanged()
	return nil
}

// SetPatientCoreData replaces the patient form on the named encounter
// and marks the background as not yet shared with the model, so the
// next turn resends it.
func (s *Store) SetPatientCoreData(ctx context.Context, id string, data pkg.PatientCoreData) error {
	s.mu.Lock()
	enc := s.findLocked(id)
	if enc == nil {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", pkg.ErrEncounterNotFound, id)
	}
	enc.PatientCoreData = data
	enc.PatientDataSentToAI = false
	enc.LastActivityAt = nowMillis()
	s.persistLocked(ctx)
	s.mu.Unlock()
	return nil
}

// MarkPatientDataSent flags that the patient background was folded into
// a sent turn.
func (s *Store) MarkPatientDataSent(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	enc := s.findLocked(id)
	if enc == nil {
		return fmt.Errorf("%w: %s", pkg.ErrEncounterNotFound, id)
	}
	enc.PatientDataSentToAI = true
	s.persistLocked(ctx)
	return nil
}

// AppendMessage adds a message to an encounter transcript and persists.
func (s *Store) AppendMessage(ctx context.Context, id string, msg pkg.Message) error {
	s.mu.Lock()
	enc := s.findLocked(id)
	if enc == nil {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", pkg.ErrEncounterNotFound, id)
	}
	enc.Messages = append(enc.Messages, msg.Clone())
	enc.LastActivityAt = nowMillis()
	s.persistLocked(ctx)
	s.mu.Unlock()

	s.hooks.MessagesChanged(id)
	return nil
}

// SetMessageText replaces a message's text in place.  It does not
// persist; streaming callers save once the turn settles.
func (s *Store) SetMessageText(id, messageID, text string) error {
	s.mu.Lock()
	enc := s.findLocked(id)
	if enc == nil {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", pkg.ErrEncounterNotFound, id)
	}
	for i := range enc.Messages {
		if enc.Messages[i].ID == messageID {
			enc.Messages[i].Text = text
			s.mu.Unlock()
			s.hooks.MessagesChanged(id)
			return nil
		}
	}
	s.mu.Unlock()
	return fmt.Errorf("%w: message %s", pkg.ErrEncounterNotFound, messageID)
}

// SetMessageGrounding attaches grounding attributions to a message.
func (s *Store) SetMessageGrounding(id, messageID string, chunks []pkg.GroundingChunk) error {
	s.mu.Lock()
	enc := s.findLocked(id)
	if enc == nil {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", pkg.ErrEncounterNotFound, id)
	}
	for i := range enc.Messages {
		if enc.Messages[i].ID == messageID {
			enc.Messages[i].GroundingChunks = append([]pkg.GroundingChunk(nil), chunks...)
			s.mu.Unlock()
			s.hooks.MessagesChanged(id)
			return nil
		}
	}
	s.mu.Unlock()
	return fmt.Errorf("%w: message %s", pkg.ErrEncounterNotFound, messageID)
}

// MergeNotes applies a partial notes update to an encounter: categories
// present in the update replace the stored ones, absent categories are
// untouched.
func (s *Store) MergeNotes(ctx context.Context, id string, update pkg.NotesUpdate) error {
	s.mu.Lock()
	enc := s.findLocked(id)
	if enc == nil {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", pkg.ErrEncounterNotFound, id)
	}
	update.Apply(&enc.Notes)
	enc.LastActivityAt = nowMillis()
	s.persistLocked(ctx)
	s.mu.Unlock()

	s.hooks.NotesChanged(id)
	return nil
}

// PutToolResult writes a tool payload back to the active encounter.
// The payload type determines the slot; a deep copy is stored so the
// caller's value stays detached.
func (s *Store) PutToolResult(ctx context.Context, result pkg.ToolResult) error {
	s.mu.Lock()
	enc := s.findLocked(s.activeID)
	if enc == nil {
		s.mu.Unlock()
		return pkg.ErrEncounterNotFound
	}
	tr := &enc.BodySystemToolResults
	switch v := result.(type) {
	case *pkg.ASCVDData:
		tr.Cardiovascular.ASCVD = v.Clone()
	case *pkg.HeartRateZoneData:
		tr.Cardiovascular.HeartRateZone = v.Clone()
	case *pkg.GCSData:
		tr.Neurological.GCS = v.Clone()
	case *pkg.OxygenationIndexData:
		tr.Respiratory.OxygenationIndex = v.Clone()
	case *pkg.BICSData:
		tr.Respiratory.BICS = v.Clone()
	case *pkg.RansonsCriteriaData:
		tr.Gastrointestinal.Ransons = v.Clone()
	case *pkg.FRAXData:
		tr.Musculoskeletal.FRAX = v.Clone()
	case *pkg.ROMTrackerData:
		tr.Musculoskeletal.ROMTracker = v.Clone()
	case *pkg.BurnCalculatorData:
		tr.Integumentary.Burn = v.Clone()
	case *pkg.ThyroidFunctionData:
		tr.Endocrine.Thyroid = v.Clone()
	case *pkg.DiabetesRiskData:
		tr.Endocrine.DiabetesRisk = v.Clone()
	case *pkg.CoagulationProfileData:
		tr.Hematologic.Coagulation = v.Clone()
	case *pkg.ConstitutionalSymptomsData:
		tr.General.Constitutional = v.Clone()
	default:
		s.mu.Unlock()
		return fmt.Errorf("%w: unsupported tool payload %T", pkg.ErrValidation, result)
	}
	enc.LastActivityAt = nowMillis()
	id := enc.ID
	s.persistLocked(ctx)
	s.mu.Unlock()

	s.hooks.ToolDataChanged(id)
	return nil
}

// PutAssessment writes a psychometric payload back to the active
// encounter, deep-copied like PutToolResult.
func (s *Store) PutAssessment(ctx context.Context, assessment pkg.Assessment) error {
	s.mu.Lock()
	enc := s.findLocked(s.activeID)
	if enc == nil {
		s.mu.Unlock()
		return pkg.ErrEncounterNotFound
	}
	ms := &enc.PsychometricAssessments
	switch v := assessment.(type) {
	case *pkg.PHQ9Data:
		ms.PHQ9 = v.Clone()
	case *pkg.GAD7Data:
		ms.GAD7 = v.Clone()
	case *pkg.PCL5Data:
		ms.PCL5 = v.Clone()
	case *pkg.MSEData:
		ms.MSE = v.Clone()
	case *pkg.PersonalityMatrixData:
		ms.PersonalityMatrix = v.Clone()
	case *pkg.ClinicalInterviewData:
		ms.ClinicalInterview = v.Clone()
	case *pkg.ReportGeneratorData:
		ms.ReportGenerator = v.Clone()
	case *pkg.NNPAData:
		ms.NNPA = v.Clone()
	default:
		s.mu.Unlock()
		return fmt.Errorf("%w: unsupported assessment payload %T", pkg.ErrValidation, assessment)
	}
	enc.LastActivityAt = nowMillis()
	id := enc.ID
	s.persistLocked(ctx)
	s.mu.Unlock()

	s.hooks.AssessmentsChanged(id)
	return nil
}
