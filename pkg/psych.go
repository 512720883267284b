package pkg

// ModuleID identifies a psychometric assessment module.
type ModuleID string

const (
	ModulePHQ9              ModuleID = "phq9"
	ModuleGAD7              ModuleID = "gad7"
	ModulePCL5              ModuleID = "pcl5"
	ModuleMSE               ModuleID = "mse"
	ModulePersonalityMatrix ModuleID = "personalityMatrix"
	ModuleClinicalInterview ModuleID = "clinicalInterview"
	ModuleReportGenerator   ModuleID = "reportGenerator"
	ModuleNNPA              ModuleID = "nnpa"
)

// Assessment is implemented by every psychometric payload so callers can
// write results back to an encounter without naming the slot.
type Assessment interface {
	isAssessment()
}

// ScaleOption is one answer choice on a rating-scale question.
type ScaleOption struct {
	Label string `json:"label"`
	Value int    `json:"value"`
}

// ScaleQuestion is a single rating-scale item.  Criterion is only used
// by instruments that map items onto diagnostic criteria.
type ScaleQuestion struct {
	ID            string        `json:"id"`
	Text          string        `json:"text"`
	Criterion     string        `json:"criterion,omitempty"`
	Options       []ScaleOption `json:"options"`
	SelectedValue *int          `json:"selectedValue"`
}

func cloneQuestions(qs []ScaleQuestion) []ScaleQuestion {
	out := make([]ScaleQuestion, len(qs))
	for i, q := range qs {
		out[i] = q
		out[i].Options = cloneSlice(q.Options)
		out[i].SelectedValue = cloneInt(q.SelectedValue)
	}
	return out
}

// PHQ9Data is the nine-item depression screener.
type PHQ9Data struct {
	Questions  []ScaleQuestion `json:"questions"`
	TotalScore int             `json:"totalScore"`
}

func (*PHQ9Data) isAssessment() {}

func (d *PHQ9Data) Clone() *PHQ9Data {
	return &PHQ9Data{Questions: cloneQuestions(d.Questions), TotalScore: d.TotalScore}
}

// GAD7Data is the seven-item anxiety screener.
type GAD7Data struct {
	Questions  []ScaleQuestion `json:"questions"`
	TotalScore int             `json:"totalScore"`
}

func (*GAD7Data) isAssessment() {}

func (d *GAD7Data) Clone() *GAD7Data {
	return &GAD7Data{Questions: cloneQuestions(d.Questions), TotalScore: d.TotalScore}
}

// DSM5Criteria tracks which PTSD criteria the current answers satisfy.
// Criterion A (exposure) is assumed met for the screener.
type DSM5Criteria struct {
	A bool `json:"A"`
	B bool `json:"B"`
	C bool `json:"C"`
	D bool `json:"D"`
	E bool `json:"E"`
}

// PCL5Data is the twenty-item PTSD checklist with derived DSM-5
// criterion status and severity interpretation.
type PCL5Data struct {
	Questions               []ScaleQuestion `json:"questions"`
	TotalScore              int             `json:"totalScore"`
	DSM5Criteria            DSM5Criteria    `json:"dsm5Criteria"`
	ProvisionalDiagnosisMet bool            `json:"provisionalDiagnosisMet"`
	SeverityInterpretation  string          `json:"severityInterpretation"`
}

func (*PCL5Data) isAssessment() {}

func (d *PCL5Data) Clone() *PCL5Data {
	out := *d
	out.Questions = cloneQuestions(d.Questions)
	return &out
}

// MSEAnalysis holds the per-section AI analysis of a mental status exam.
type MSEAnalysis struct {
	Summary   string   `json:"summary"`
	Keywords  []string `json:"keywords"`
	RedFlags  []string `json:"redFlags"`
	IsLoading bool     `json:"isLoading"`
	Error     *string  `json:"error"`
}

// MSESection is one observation area of the mental status exam.
type MSESection struct {
	Notes           string              `json:"notes"`
	SelectedOptions map[string][]string `json:"selectedOptions"`
	Checkboxes      map[string]bool     `json:"checkboxes"`
	Analysis        MSEAnalysis         `json:"analysis"`
}

func (s *MSESection) clone() *MSESection {
	out := &MSESection{Notes: s.Notes, Analysis: s.Analysis}
	out.Analysis.Keywords = cloneSlice(s.Analysis.Keywords)
	out.Analysis.RedFlags = cloneSlice(s.Analysis.RedFlags)
	out.Analysis.Error = cloneString(s.Analysis.Error)
	out.SelectedOptions = make(map[string][]string, len(s.SelectedOptions))
	for k, v := range s.SelectedOptions {
		out.SelectedOptions[k] = cloneSlice(v)
	}
	out.Checkboxes = make(map[string]bool, len(s.Checkboxes))
	for k, v := range s.Checkboxes {
		out.Checkboxes[k] = v
	}
	return out
}

// MSESectionKeys lists every section of the exam in display order.
var MSESectionKeys = []string{
	"appearance", "behavior", "attitude", "speech", "mood", "affect",
	"thoughtProcess", "thoughtContent", "perception", "cognition",
	"insight", "judgment", "reliability",
}

// MSEData is the mental status examination workspace.
type MSEData struct {
	Sections           map[string]*MSESection `json:"sections"`
	OverallAISummary   string                 `json:"overallAISummary"`
	IsLoadingOverallAI bool                   `json:"isLoadingOverallAI"`
	StatusMessage      string                 `json:"statusMessage"`
	ErrorOverallAI     *string                `json:"errorOverallAI"`
}

func (*MSEData) isAssessment() {}

func (d *MSEData) Clone() *MSEData {
	out := *d
	out.ErrorOverallAI = cloneString(d.ErrorOverallAI)
	out.Sections = make(map[string]*MSESection, len(d.Sections))
	for k, s := range d.Sections {
		out.Sections[k] = s.clone()
	}
	return &out
}

// PersonalityTrait is one Big Five dimension with its rating anchors.
type PersonalityTrait struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	LowAnchor   string `json:"lowAnchor"`
	HighAnchor  string `json:"highAnchor"`
}

// PersonalityMatrixData holds Big Five ratings and AI interpretations.
type PersonalityMatrixData struct {
	Traits            []PersonalityTrait `json:"traits"`
	UserRatings       map[string]int     `json:"userRatings"`
	UserDescriptions  map[string]string  `json:"userDescriptions"`
	AIInterpretations map[string]string  `json:"aiInterpretations"`
	OverallAISummary  string             `json:"overallAISummary"`
	IsLoadingAI       bool               `json:"isLoadingAI"`
	StatusMessage     string             `json:"statusMessage"`
}

func (*PersonalityMatrixData) isAssessment() {}

func (d *PersonalityMatrixData) Clone() *PersonalityMatrixData {
	out := *d
	out.Traits = cloneSlice(d.Traits)
	out.UserRatings = make(map[string]int, len(d.UserRatings))
	for k, v := range d.UserRatings {
		out.UserRatings[k] = v
	}
	out.UserDescriptions = make(map[string]string, len(d.UserDescriptions))
	for k, v := range d.UserDescriptions {
		out.UserDescriptions[k] = v
	}
	out.AIInterpretations = make(map[string]string, len(d.AIInterpretations))
	for k, v := range d.AIInterpretations {
		out.AIInterpretations[k] = v
	}
	return &out
}

// ConversationEntry is one exchange in the structured interview log.
type ConversationEntry struct {
	Speaker  string `json:"speaker"`
	Text     string `json:"text"`
	Analysis string `json:"analysis,omitempty"`
}

// ClinicalInterviewData drives the guided clinical interview module.
type ClinicalInterviewData struct {
	Prompts                []string            `json:"prompts"`
	CurrentPromptIndex     int                 `json:"currentPromptIndex"`
	ConversationLog        []ConversationEntry `json:"conversationLog"`
	CurrentPatientResponse string              `json:"currentPatientResponse"`
	IsInterviewActive      bool                `json:"isInterviewActive"`
	StatusMessage          string              `json:"statusMessage"`
}

func (*ClinicalInterviewData) isAssessment() {}

func (d *ClinicalInterviewData) Clone() *ClinicalInterviewData {
	out := *d
	out.Prompts = cloneSlice(d.Prompts)
	out.ConversationLog = cloneSlice(d.ConversationLog)
	return &out
}

// ReportGeneratorData holds the cross-assessment report builder state.
type ReportGeneratorData struct {
	SelectedAssessmentIDs []string `json:"selectedAssessmentIds"`
	SelectedReportType    string   `json:"selectedReportType"`
	GeneratedReport       *string  `json:"generatedReport"`
	IsLoading             bool     `json:"isLoading"`
	StatusMessage         string   `json:"statusMessage"`
	Error                 *string  `json:"error"`
}

func (*ReportGeneratorData) isAssessment() {}

func (d *ReportGeneratorData) Clone() *ReportGeneratorData {
	out := *d
	out.SelectedAssessmentIDs = cloneSlice(d.SelectedAssessmentIDs)
	out.GeneratedReport = cloneString(d.GeneratedReport)
	out.Error = cloneString(d.Error)
	return &out
}

// NNPASubScale is one observation scale within an NNPA domain.
type NNPASubScale struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Description    string `json:"description"`
	ClinicianNotes string `json:"clinicianNotes"`
}

// NNPADomain groups related sub-scales with the domain-level AI summary.
type NNPADomain struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	Description     string         `json:"description"`
	SubScales       []NNPASubScale `json:"subScales"`
	DomainAISummary *string        `json:"domainAISummary"`
	IsLoadingAI     bool           `json:"isLoadingAI"`
	ErrorAI         *string        `json:"errorAI"`
}

// NNPAOverall is the cross-domain AI risk assessment.
type NNPAOverall struct {
	Summary   *string `json:"summary"`
	RiskLevel string  `json:"riskLevel"`
	IsLoading bool    `json:"isLoading"`
	Error     *string `json:"error"`
}

// NNPAData is the neuro-psychological AI-relationship assessment.
type NNPAData struct {
	Domains           []NNPADomain `json:"domains"`
	OverallAIAnalysis NNPAOverall  `json:"overallAIAnalysis"`
	StatusMessage     string       `json:"statusMessage"`
}

func (*NNPAData) isAssessment() {}

func (d *NNPAData) Clone() *NNPAData {
	out := *d
	out.Domains = make([]NNPADomain, len(d.Domains))
	for i, dom := range d.Domains {
		out.Domains[i] = dom
		out.Domains[i].SubScales = cloneSlice(dom.SubScales)
		out.Domains[i].DomainAISummary = cloneString(dom.DomainAISummary)
		out.Domains[i].ErrorAI = cloneString(dom.ErrorAI)
	}
	out.OverallAIAnalysis.Summary = cloneString(d.OverallAIAnalysis.Summary)
	out.OverallAIAnalysis.Error = cloneString(d.OverallAIAnalysis.Error)
	return &out
}

// ModuleSet groups every psychometric payload for one encounter.
type ModuleSet struct {
	PHQ9              *PHQ9Data              `json:"phq9,omitempty"`
	GAD7              *GAD7Data              `json:"gad7,omitempty"`
	PCL5              *PCL5Data              `json:"pcl5,omitempty"`
	MSE               *MSEData               `json:"mse,omitempty"`
	PersonalityMatrix *PersonalityMatrixData `json:"personalityMatrix,omitempty"`
	ClinicalInterview *ClinicalInterviewData `json:"clinicalInterview,omitempty"`
	ReportGenerator   *ReportGeneratorData   `json:"reportGenerator,omitempty"`
	NNPA              *NNPAData              `json:"nnpa,omitempty"`
}

// Clone returns a deep copy of the module set.
func (m ModuleSet) Clone() ModuleSet {
	out := m
	if m.PHQ9 != nil {
		out.PHQ9 = m.PHQ9.Clone()
	}
	if m.GAD7 != nil {
		out.GAD7 = m.GAD7.Clone()
	}
	if m.PCL5 != nil {
		out.PCL5 = m.PCL5.Clone()
	}
	if m.MSE != nil {
		out.MSE = m.MSE.Clone()
	}
	if m.PersonalityMatrix != nil {
		out.PersonalityMatrix = m.PersonalityMatrix.Clone()
	}
	if m.ClinicalInterview != nil {
		out.ClinicalInterview = m.ClinicalInterview.Clone()
	}
	if m.ReportGenerator != nil {
		out.ReportGenerator = m.ReportGenerator.Clone()
	}
	if m.NNPA != nil {
		out.NNPA = m.NNPA.Clone()
	}
	return out
}
