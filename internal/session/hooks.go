package session

// Hooks receives change notifications from the store so a front end can
// re-render the affected panels.  Implementations must be fast and must
// not call back into the store.
type Hooks interface {
	EncounterListChanged()
	ActiveEncounterChanged(encounterID string)
	MessagesChanged(encounterID string)
	NotesChanged(encounterID string)
	ToolDataChanged(encounterID string)
	AssessmentsChanged(encounterID string)
}

// NoopHooks ignores every notification.
type NoopHooks struct{}

func (NoopHooks) EncounterListChanged()         {}
func (NoopHooks) ActiveEncounterChanged(string) {}
func (NoopHooks) MessagesChanged(string)        {}
func (NoopHooks) NotesChanged(string)           {}
func (NoopHooks) ToolDataChanged(string)        {}
func (NoopHooks) AssessmentsChanged(string)     {}
