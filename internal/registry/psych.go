package registry

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"mediframework/pkg"
)

// Modules is the registry of psychometric assessment payloads.
type Modules struct {
	log  *logrus.Logger
	mu   sync.Mutex
	live pkg.ModuleSet
}

// NewModules returns a registry populated with default assessments.
func NewModules(log *logrus.Logger) *Modules {
	return &Modules{log: log, live: pkg.DefaultModuleSet()}
}

// MergeModuleSet overlays saved assessments onto a fresh default set.
// Saved payloads that no longer match the configured instrument (for
// example a question list of the wrong length) fall back to defaults;
// partially saved structures are filled in.  Derived scores are always
// recomputed from the answers.  The input is not retained.
func MergeModuleSet(saved *pkg.ModuleSet) pkg.ModuleSet {
	out := pkg.DefaultModuleSet()
	if saved == nil {
		return out
	}

	if s := saved.PHQ9; s != nil && len(s.Questions) == len(out.PHQ9.Questions) {
		out.PHQ9 = s.Clone()
	}
	scorePHQ9(out.PHQ9)

	if s := saved.GAD7; s != nil && len(s.Questions) == len(out.GAD7.Questions) {
		out.GAD7 = s.Clone()
	}
	scoreGAD7(out.GAD7)

	if s := saved.PCL5; s != nil && len(s.Questions) == len(out.PCL5.Questions) {
		out.PCL5 = s.Clone()
	}
	scorePCL5(out.PCL5)

	if s := saved.MSE; s != nil {
		m := s.Clone()
		if m.Sections == nil {
			m.Sections = map[string]*pkg.MSESection{}
		}
		def := pkg.DefaultMSE()
		for _, key := range pkg.MSESectionKeys {
			if m.Sections[key] == nil {
				m.Sections[key] = def.Sections[key]
			}
		}
		m.IsLoadingOverallAI = false
		out.MSE = m
	}

	if s := saved.PersonalityMatrix; s != nil {
		m := s.Clone()
		// Trait definitions always come from the current catalog.
		m.Traits = pkg.DefaultPersonalityTraits()
		if m.UserRatings == nil {
			m.UserRatings = map[string]int{}
		}
		if m.UserDescriptions == nil {
			m.UserDescriptions = map[string]string{}
		}
		if m.AIInterpretations == nil {
			m.AIInterpretations = map[string]string{}
		}
		m.IsLoadingAI = false
		out.PersonalityMatrix = m
	}

	if s := saved.ClinicalInterview; s != nil {
		m := s.Clone()
		if len(m.Prompts) == 0 {
			m.Prompts = pkg.DefaultInterviewPrompts()
		}
		if m.ConversationLog == nil {
			m.ConversationLog = []pkg.ConversationEntry{}
		}
		out.ClinicalInterview = m
	}

	if s := saved.ReportGenerator; s != nil {
		m := s.Clone()
		if m.SelectedAssessmentIDs == nil {
			m.SelectedAssessmentIDs = []string{}
		}
		if m.SelectedReportType == "" {
			m.SelectedReportType = "comprehensive"
		}
		m.IsLoading = false
		out.ReportGenerator = m
	}

	if s := saved.NNPA; s != nil {
		m := s.Clone()
		mergeNNPADomains(m)
		m.OverallAIAnalysis.IsLoading = false
		if m.OverallAIAnalysis.RiskLevel == "" {
			m.OverallAIAnalysis.RiskLevel = "Not Assessed"
		}
		out.NNPA = m
	}

	return out
}

// mergeNNPADomains ensures every configured domain and sub-scale exists
// in the saved payload, preserving clinician notes already entered.
func mergeNNPADomains(m *pkg.NNPAData) {
	def := pkg.DefaultNNPA()
	for _, defDomain := range def.Domains {
		var found *pkg.NNPADomain
		for i := range m.Domains {
			if m.Domains[i].ID == defDomain.ID {
				found = &m.Domains[i]
				break
			}
		}
		if found == nil {
			m.Domains = append(m.Domains, defDomain)
			continue
		}
		found.IsLoadingAI = false
		for _, defSub := range defDomain.SubScales {
			present := false
			for _, sub := range found.SubScales {
				if sub.ID == defSub.ID {
					present = true
					break
				}
			}
			if !present {
				found.SubScales = append(found.SubScales, defSub)
			}
		}
	}
}

// Load replaces the working set with saved data merged over defaults.
func (m *Modules) Load(saved *pkg.ModuleSet) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.live = MergeModuleSet(saved)
	m.log.Debug("assessment registry loaded")
}

// Snapshot returns a deep copy of the full working set.
func (m *Modules) Snapshot() pkg.ModuleSet {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.live.Clone()
}

// Reset restores a single module to its default payload.
func (m *Modules) Reset(id pkg.ModuleID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch id {
	case pkg.ModulePHQ9:
		m.live.PHQ9 = pkg.DefaultPHQ9()
	case pkg.ModuleGAD7:
		m.live.GAD7 = pkg.DefaultGAD7()
	case pkg.ModulePCL5:
		m.live.PCL5 = pkg.DefaultPCL5()
	case pkg.ModuleMSE:
		m.live.MSE = pkg.DefaultMSE()
	case pkg.ModulePersonalityMatrix:
		m.live.PersonalityMatrix = pkg.DefaultPersonalityMatrix()
	case pkg.ModuleClinicalInterview:
		m.live.ClinicalInterview = pkg.DefaultClinicalInterview()
	case pkg.ModuleReportGenerator:
		m.live.ReportGenerator = pkg.DefaultReportGenerator()
	case pkg.ModuleNNPA:
		m.live.NNPA = pkg.DefaultNNPA()
	default:
		return fmt.Errorf("%w: unknown module %s", pkg.ErrValidation, id)
	}
	m.log.WithField("module", id).Debug("assessment reset to defaults")
	return nil
}

func scorePHQ9(d *pkg.PHQ9Data) {
	d.TotalScore = 0
	for _, q := range d.Questions {
		if q.SelectedValue != nil {
			d.TotalScore += *q.SelectedValue
		}
	}
}

func scoreGAD7(d *pkg.GAD7Data) {
	d.TotalScore = 0
	for _, q := range d.Questions {
		if q.SelectedValue != nil {
			d.TotalScore += *q.SelectedValue
		}
	}
}

// scorePCL5 recomputes the total, the DSM-5 criterion flags and the
// severity band.  A criterion counts items scored 2 or higher; B and C
// need one such item, D and E need two.
func scorePCL5(d *pkg.PCL5Data) {
	d.TotalScore = 0
	answered := 0
	counts := map[string]int{}
	for _, q := range d.Questions {
		if q.SelectedValue == nil {
			continue
		}
		d.TotalScore += *q.SelectedValue
		answered++
		if *q.SelectedValue >= 2 {
			counts[q.Criterion]++
		}
	}

	d.DSM5Criteria.A = true
	d.DSM5Criteria.B = counts["B"] >= 1
	d.DSM5Criteria.C = counts["C"] >= 1
	d.DSM5Criteria.D = counts["D"] >= 2
	d.DSM5Criteria.E = counts["E"] >= 2
	d.ProvisionalDiagnosisMet = d.DSM5Criteria.B && d.DSM5Criteria.C &&
		d.DSM5Criteria.D && d.DSM5Criteria.E

	switch {
	case answered < len(d.Questions):
		d.SeverityInterpretation = "Assessment Incomplete"
	case d.TotalScore >= 51:
		d.SeverityInterpretation = "Severe Symptoms / Probable PTSD"
	case d.TotalScore >= 31:
		d.SeverityInterpretation = "Moderate Symptoms / PTSD Likely"
	case d.TotalScore >= 11:
		d.SeverityInterpretation = "Mild Symptoms / PTSD Unlikely"
	default:
		d.SeverityInterpretation = "Minimal to No Symptoms"
	}
}

// PHQ9 returns a copy of the PHQ-9 payload.
func (m *Modules) PHQ9() *pkg.PHQ9Data {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.live.PHQ9 == nil {
		m.live.PHQ9 = pkg.DefaultPHQ9()
	}
	return m.live.PHQ9.Clone()
}

// UpdatePHQ9 mutates the payload through fn, rescores it and returns a copy.
func (m *Modules) UpdatePHQ9(fn func(*pkg.PHQ9Data)) *pkg.PHQ9Data {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.live.PHQ9 == nil {
		m.live.PHQ9 = pkg.DefaultPHQ9()
	}
	fn(m.live.PHQ9)
	scorePHQ9(m.live.PHQ9)
	return m.live.PHQ9.Clone()
}

// GAD7 returns a copy of the GAD-7 payload.
func (m *Modules) GAD7() *pkg.GAD7Data {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.live.GAD7 == nil {
		m.live.GAD7 = pkg.DefaultGAD7()
	}
	return m.live.GAD7.Clone()
}

// UpdateGAD7 mutates the payload through fn, rescores it and returns a copy.
func (m *Modules) UpdateGAD7(fn func(*pkg.GAD7Data)) *pkg.GAD7Data {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.live.GAD7 == nil {
		m.live.GAD7 = pkg.DefaultGAD7()
	}
	fn(m.live.GAD7)
	scoreGAD7(m.live.GAD7)
	return m.live.GAD7.Clone()
}

// PCL5 returns a copy of the PCL-5 payload.
func (m *Modules) PCL5() *pkg.PCL5Data {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.live.PCL5 == nil {
		m.live.PCL5 = pkg.DefaultPCL5()
	}
	return m.live.PCL5.Clone()
}

// UpdatePCL5 mutates the payload through fn, rescores it and returns a copy.
func (m *Modules) UpdatePCL5(fn func(*pkg.PCL5Data)) *pkg.PCL5Data {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.live.PCL5 == nil {
		m.live.PCL5 = pkg.DefaultPCL5()
	}
	fn(m.live.PCL5)
	scorePCL5(m.live.PCL5)
	return m.live.PCL5.Clone()
}

// MSE returns a copy of the mental status exam payload.
func (m *Modules) MSE() *pkg.MSEData {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.live.MSE == nil {
		m.live.MSE = pkg.DefaultMSE()
	}
	return m.live.MSE.Clone()
}

// UpdateMSE mutates the payload through fn and returns a copy.
func (m *Modules) UpdateMSE(fn func(*pkg.MSEData)) *pkg.MSEData {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.live.MSE == nil {
		m.live.MSE = pkg.DefaultMSE()
	}
	fn(m.live.MSE)
	return m.live.MSE.Clone()
}

// PersonalityMatrix returns a copy of the personality matrix payload.
func (m *Modules) PersonalityMatrix() *pkg.PersonalityMatrixData {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.live.PersonalityMatrix == nil {
		m.live.PersonalityMatrix = pkg.DefaultPersonalityMatrix()
	}
	return m.live.PersonalityMatrix.Clone()
}

// UpdatePersonalityMatrix mutates the payload through fn and returns a copy.
func (m *Modules) UpdatePersonalityMatrix(fn func(*pkg.PersonalityMatrixData)) *pkg.PersonalityMatrixData {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.live.PersonalityMatrix == nil {
		m.live.PersonalityMatrix = pkg.DefaultPersonalityMatrix()
	}
	fn(m.live.PersonalityMatrix)
	return m.live.PersonalityMatrix.Clone()
}

// ClinicalInterview returns a copy of the interview payload.
func (m *Modules) ClinicalInterview() *pkg.ClinicalInterviewData {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.live.ClinicalInterview == nil {
		m.live.ClinicalInterview = pkg.DefaultClinicalInterview()
	}
	return m.live.ClinicalInterview.Clone()
}

// UpdateClinicalInterview mutates the payload through fn and returns a copy.
func (m *Modules) UpdateClinicalInterview(fn func(*pkg.ClinicalInterviewData)) *pkg.ClinicalInterviewData {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.live.ClinicalInterview == nil {
		m.live.ClinicalInterview = pkg.DefaultClinicalInterview()
	}
	fn(m.live.ClinicalInterview)
	return m.live.ClinicalInterview.Clone()
}

// ReportGenerator returns a copy of the report builder payload.
func (m *Modules) ReportGenerator() *pkg.ReportGeneratorData {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.live.ReportGenerator == nil {
		m.live.ReportGenerator = pkg.DefaultReportGenerator()
	}
	return m.live.ReportGenerator.Clone()
}

// UpdateReportGenerator mutates the payload through fn and returns a copy.
func (m *Modules) UpdateReportGenerator(fn func(*pkg.ReportGeneratorData)) *pkg.ReportGeneratorData {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.live.ReportGenerator == nil {
		m.live.ReportGenerator = pkg.DefaultReportGenerator()
	}
	fn(m.live.ReportGenerator)
	return m.live.ReportGenerator.Clone()
}

// NNPA returns a copy of the NNPA payload.
func (m *Modules) NNPA() *pkg.NNPAData {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.live.NNPA == nil {
		m.live.NNPA = pkg.DefaultNNPA()
	}
	return m.live.NNPA.Clone()
}

// UpdateNNPA mutates the payload through fn and returns a copy.
func (m *Modules) UpdateNNPA(fn func(*pkg.NNPAData)) *pkg.NNPAData {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.live.NNPA == nil {
		m.live.NNPA = pkg.DefaultNNPA()
	}
	fn(m.live.NNPA)
	return m.live.NNPA.Clone()
}
