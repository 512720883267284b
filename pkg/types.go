package pkg

// BodySystem identifies one of the clinical review-of-systems tabs.
type BodySystem string

const (
	SystemNeurological         BodySystem = "Neurological"
	SystemCardiovascular       BodySystem = "Cardiovascular"
	SystemRespiratory          BodySystem = "Respiratory"
	SystemGastrointestinal     BodySystem = "Gastrointestinal"
	SystemMusculoskeletal      BodySystem = "Musculoskeletal"
	SystemGenitourinary        BodySystem = "Genitourinary"
	SystemIntegumentary        BodySystem = "Integumentary"
	SystemEndocrine            BodySystem = "Endocrine"
	SystemHematologicLymphatic BodySystem = "Hematologic/Lymphatic"
	SystemPsychiatric          BodySystem = "Psychiatric"
	SystemGeneral              BodySystem = "General/Constitutional"
)

// BodySystems lists every system tab in display order.
var BodySystems = []BodySystem{
	SystemNeurological,
	SystemCardiovascular,
	SystemRespiratory,
	SystemGastrointestinal,
	SystemMusculoskeletal,
	SystemGenitourinary,
	SystemIntegumentary,
	SystemEndocrine,
	SystemHematologicLymphatic,
	SystemPsychiatric,
	SystemGeneral,
}

// ValidBodySystem reports whether s names a known system tab.
func ValidBodySystem(s BodySystem) bool {
	for _, sys := range BodySystems {
		if sys == s {
			return true
		}
	}
	return false
}

// Severity is the clinician-assigned status of a body system.
type Severity string

const (
	SeverityNormal   Severity = "normal"
	SeverityMild     Severity = "mild"
	SeverityModerate Severity = "moderate"
	SeverityCritical Severity = "critical"
	SeverityChronic  Severity = "chronic"
	SeverityNoData   Severity = "noData"
)

// SeverityLevels lists the accepted severity values.
var SeverityLevels = []Severity{
	SeverityNormal, SeverityMild, SeverityModerate,
	SeverityCritical, SeverityChronic, SeverityNoData,
}

// ValidSeverity reports whether v is one of the accepted severity values.
func ValidSeverity(v Severity) bool {
	for _, s := range SeverityLevels {
		if s == v {
			return true
		}
	}
	return false
}

// DefaultSeverities returns a severity map covering every body system,
// each set to noData.
func DefaultSeverities() map[BodySystem]Severity {
	m := make(map[BodySystem]Severity, len(BodySystems))
	for _, s := range BodySystems {
		m[s] = SeverityNoData
	}
	return m
}

// MessageRole describes who authored a chat message.
type MessageRole string

const (
	RoleUser  MessageRole = "user"
	RoleModel MessageRole = "model"
)

// FileRef describes an attachment that accompanied a message.  Only the
// descriptor is retained; file bytes are never persisted.
type FileRef struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Size int64  `json:"size"`
}

// WebSource points at a web page the model grounded part of its answer on.
type WebSource struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
}

// GroundingChunk is a single grounding attribution returned alongside a
// model reply.
type GroundingChunk struct {
	Web *WebSource `json:"web,omitempty"`
}

// Message is one entry in an encounter transcript.
type Message struct {
	ID              string           `json:"id"`
	Role            MessageRole      `json:"role"`
	Text            string           `json:"text"`
	Files           []FileRef        `json:"files,omitempty"`
	GroundingChunks []GroundingChunk `json:"groundingChunks,omitempty"`
	Timestamp       int64            `json:"timestamp,omitempty"`
}

// Clone returns a deep copy of the message.
func (m Message) Clone() Message {
	out := m
	if m.Files != nil {
		out.Files = cloneSlice(m.Files)
	}
	if m.GroundingChunks != nil {
		out.GroundingChunks = make([]GroundingChunk, len(m.GroundingChunks))
		for i, g := range m.GroundingChunks {
			out.GroundingChunks[i] = g
			if g.Web != nil {
				w := *g.Web
				out.GroundingChunks[i].Web = &w
			}
		}
	}
	return out
}

// NotesData holds the categorized clinical notes extracted from the
// conversation.
type NotesData struct {
	RedFlags         []string `json:"redFlags"`
	Symptoms         []string `json:"symptoms"`
	Diagnoses        []string `json:"diagnoses"`
	Medications      []string `json:"medications"`
	FollowUp         []string `json:"followUp"`
	PatientEducation []string `json:"patientEducation"`
}

// Clone returns a deep copy of the notes.
func (n NotesData) Clone() NotesData {
	return NotesData{
		RedFlags:         cloneSlice(n.RedFlags),
		Symptoms:         cloneSlice(n.Symptoms),
		Diagnoses:        cloneSlice(n.Diagnoses),
		Medications:      cloneSlice(n.Medications),
		FollowUp:         cloneSlice(n.FollowUp),
		PatientEducation: cloneSlice(n.PatientEducation),
	}
}

// NotesUpdate is a partial notes payload.  A nil slice leaves the
// corresponding category untouched; a non-nil slice replaces it, so models
// can clear a category by sending an empty array.
type NotesUpdate struct {
	RedFlags         []string `json:"redFlags"`
	Symptoms         []string `json:"symptoms"`
	Diagnoses        []string `json:"diagnoses"`
	Medications      []string `json:"medications"`
	FollowUp         []string `json:"followUp"`
	PatientEducation []string `json:"patientEducation"`
}

// Apply merges the update into notes, replacing only the categories the
// update carries.
func (u NotesUpdate) Apply(n *NotesData) {
	if u.RedFlags != nil {
		n.RedFlags = cloneSlice(u.RedFlags)
	}
	if u.Symptoms != nil {
		n.Symptoms = cloneSlice(u.Symptoms)
	}
	if u.Diagnoses != nil {
		n.Diagnoses = cloneSlice(u.Diagnoses)
	}
	if u.Medications != nil {
		n.Medications = cloneSlice(u.Medications)
	}
	if u.FollowUp != nil {
		n.FollowUp = cloneSlice(u.FollowUp)
	}
	if u.PatientEducation != nil {
		n.PatientEducation = cloneSlice(u.PatientEducation)
	}
}

// PatientCoreData is the demographic and background form attached to an
// encounter.  Every field is free text and defaults to empty.
type PatientCoreData struct {
	FirstName            string `json:"firstName"`
	MiddleName           string `json:"middleName"`
	LastName             string `json:"lastName"`
	DateOfBirth          string `json:"dateOfBirth"`
	Age                  string `json:"age"`
	Gender               string `json:"gender"`
	City                 string `json:"city"`
	CurrentMedications   string `json:"currentMedications"`
	KnownAllergies       string `json:"knownAllergies"`
	ChronicConditions    string `json:"chronicConditions"`
	PreviousSurgeries    string `json:"previousSurgeries"`
	ReasonForVisit       string `json:"reasonForVisit"`
	PrimaryCarePhysician string `json:"primaryCarePhysician"`
	AdditionalNotes      string `json:"additionalNotes"`
}

// IsEmpty reports whether no field of the form has been filled in.
func (p PatientCoreData) IsEmpty() bool {
	return p == PatientCoreData{}
}

// Encounter is a single patient encounter: its transcript, extracted
// notes, severity map, tool results and assessment state.
type Encounter struct {
	ID                      string                  `json:"id"`
	Name                    string                  `json:"name"`
	Messages                []Message               `json:"messages"`
	Notes                   NotesData               `json:"notes"`
	CreatedAt               int64                   `json:"createdAt"`
	LastActivityAt          int64                   `json:"lastActivityAt"`
	BodySystemSeverities    map[BodySystem]Severity `json:"bodySystemSeverities"`
	PatientCoreData         PatientCoreData         `json:"patientCoreData"`
	PatientDataSentToAI     bool                    `json:"patientDataSentToAI"`
	PsychometricAssessments ModuleSet               `json:"psychometricAssessments"`
	BodySystemToolResults   ToolResults             `json:"bodySystemToolResults"`
}

// Clone returns a deep copy of the encounter.
func (e *Encounter) Clone() *Encounter {
	out := *e
	out.Messages = make([]Message, len(e.Messages))
	for i, m := range e.Messages {
		out.Messages[i] = m.Clone()
	}
	out.Notes = e.Notes.Clone()
	out.BodySystemSeverities = make(map[BodySystem]Severity, len(e.BodySystemSeverities))
	for k, v := range e.BodySystemSeverities {
		out.BodySystemSeverities[k] = v
	}
	out.PsychometricAssessments = e.PsychometricAssessments.Clone()
	out.BodySystemToolResults = e.BodySystemToolResults.Clone()
	return &out
}
