// Package assist runs the single-shot AI analyses attached to the body
// system tools: each analyzer builds a prompt from the payload's
// inputs, asks the provider for a JSON reply, and writes the parsed
// result fields back into the payload together with its aiStatus.
package assist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"mediframework/internal/llm"
	"mediframework/pkg"
)

const defaultAnalysisTimeout = 45 * time.Second

// Service runs one-shot analyses against the completion provider.
type Service struct {
	log     *logrus.Logger
	client  llm.Client
	timeout time.Duration
}

// NewService wires the analyzers to a provider.  A non-positive timeout
// selects the default per-call deadline.
func NewService(log *logrus.Logger, client llm.Client, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = defaultAnalysisTimeout
	}
	return &Service{log: log, client: client, timeout: timeout}
}

// Providers sometimes wrap JSON-mode replies in a markdown fence.
var fenceRe = regexp.MustCompile("(?s)^```(?:\\w*)?\\s*\\n?(.*?)\\n?\\s*```$")

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if m := fenceRe.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	return s
}

// generateJSON runs one JSON-mode completion and decodes the reply.
// Decode failures come back as a ParseError carrying the raw reply.
func (s *Service) generateJSON(ctx context.Context, prompt string, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	raw, err := s.client.GenerateOnce(ctx, prompt, true)
	if err != nil {
		return err
	}
	blob := stripFences(raw)
	if err := json.Unmarshal([]byte(blob), out); err != nil {
		return &pkg.ParseError{Raw: blob, Err: err}
	}
	return nil
}

// fail records an analysis failure on the payload's status fields.
func fail(status *pkg.AIStatus, aiErr **string, err error) error {
	msg := err.Error()
	*status = pkg.AIError
	*aiErr = &msg
	return err
}

var errMissingFields = errors.New("analysis reply missing expected fields")

// AnalyzeThyroid interprets the thyroid panel on d and writes the
// result fields back.  On failure only aiStatus and aiError change.
func (s *Service) AnalyzeThyroid(ctx context.Context, d *pkg.ThyroidFunctionData) error {
	var b strings.Builder
	b.WriteString("You are a medical AI assistant. Analyze the following thyroid function test results.\nPatient Lab Values:\n")
	fmt.Fprintf(&b, "- TSH: %s\n- Free T4: %s", d.TSH, d.FreeT4)
	if d.FreeT3 != "" {
		fmt.Fprintf(&b, "\n- Free T3: %s", d.FreeT3)
	}
	if d.AntiTPO != "" {
		fmt.Fprintf(&b, "\n- Anti-TPO Antibodies: %s", d.AntiTPO)
	}
	b.WriteString(`

Based on these values (without knowing specific lab reference ranges, assume typical adult ranges), provide an interpretation.
Return your response strictly as a JSON object with the following keys:
1.  "interpretation": A string describing the likely thyroid status.
2.  "contributingFactorsOrAssociations": An array of strings listing potential contributing factors or associated conditions based on the pattern. Can be empty if not applicable.
3.  "furtherInvestigationSuggestions": An array of strings with 1-2 suggestions for further investigation if the pattern is unclear, complex, or needs confirmation. Can be empty.

Generate the JSON response:`)

	var parsed struct {
		Interpretation      string   `json:"interpretation"`
		ContributingFactors []string `json:"contributingFactorsOrAssociations"`
		FurtherSuggestions  []string `json:"furtherInvestigationSuggestions"`
	}
	if err := s.generateJSON(ctx, b.String(), &parsed); err != nil {
		return fail(&d.AIStatus, &d.AIError, err)
	}
	if parsed.Interpretation == "" {
		return fail(&d.AIStatus, &d.AIError, errMissingFields)
	}
	d.Interpretation = &parsed.Interpretation
	d.ContributingFactors = parsed.ContributingFactors
	d.FurtherInvestigation = parsed.FurtherSuggestions
	d.AIStatus = pkg.AISuccess
	d.AIError = nil
	return nil
}

// AnalyzeDiabetesRisk profiles type 2 diabetes risk from the inputs on
// d.
func (s *Service) AnalyzeDiabetesRisk(ctx context.Context, d *pkg.DiabetesRiskData) error {
	prompt := fmt.Sprintf(`You are a medical AI assistant. Based on the following patient risk factors, provide an estimated Type 2 Diabetes risk profile.
Patient Data:
- Age: %s years
- BMI: %s kg/m²
- Family History of Diabetes: %s
- History of Gestational Diabetes: %s
- Physical Activity Level: %s
- Race/Ethnicity: %s
- Blood Pressure Status: %s
- HDL Cholesterol: %s mg/dL

Provide your response strictly as a JSON object with the following keys:
1.  "riskLevel": A string for qualitative risk (e.g., "Low Risk", "Moderate Risk", "High Risk").
2.  "identifiedRiskFactors": An array of strings listing key contributing factors from the input.
3.  "lifestyleRecommendations": An array of 2-3 general lifestyle recommendation strings for risk reduction.
4.  "screeningSuggestion": A string suggesting further screening if risk seems elevated, or reassurance if low.

Generate the JSON response:`,
		d.Age, d.BMI, d.FamilyHistoryDiabetes, d.GestationalDiabetes,
		d.PhysicalActivity, d.RaceEthnicity, d.BloodPressureStatus, d.HDLCholesterol)

	var parsed struct {
		RiskLevel                string   `json:"riskLevel"`
		IdentifiedRiskFactors    []string `json:"identifiedRiskFactors"`
		LifestyleRecommendations []string `json:"lifestyleRecommendations"`
		ScreeningSuggestion      string   `json:"screeningSuggestion"`
	}
	if err := s.generateJSON(ctx, prompt, &parsed); err != nil {
		return fail(&d.AIStatus, &d.AIError, err)
	}
	if parsed.RiskLevel == "" || parsed.ScreeningSuggestion == "" {
		return fail(&d.AIStatus, &d.AIError, errMissingFields)
	}
	d.RiskLevel = &parsed.RiskLevel
	d.IdentifiedRiskFactors = parsed.IdentifiedRiskFactors
	d.LifestyleRecommendations = parsed.LifestyleRecommendations
	d.ScreeningSuggestion = &parsed.ScreeningSuggestion
	d.AIStatus = pkg.AISuccess
	d.AIError = nil
	return nil
}

// AnalyzeCoagulation interprets the coagulation panel on d.
func (s *Service) AnalyzeCoagulation(ctx context.Context, d *pkg.CoagulationProfileData) error {
	var b strings.Builder
	b.WriteString("You are a medical AI assistant specializing in hematology. Analyze the following coagulation profile results.\nPatient Lab Values:\n")
	fmt.Fprintf(&b, "- Prothrombin Time (PT): %s\n- International Normalized Ratio (INR): %s\n- Activated Partial Thromboplastin Time (aPTT): %s\n- Fibrinogen Level: %s", d.PT, d.INR, d.APTT, d.Fibrinogen)
	if d.DDimer != "" {
		fmt.Fprintf(&b, "\n- D-dimer: %s", d.DDimer)
	}
	if d.ClinicalContext != "" {
		fmt.Fprintf(&b, "\n- Clinical Context: %s", d.ClinicalContext)
	}
	b.WriteString(`

Based on these values (without knowing specific lab reference ranges, assume typical adult ranges and context), provide an interpretation.
Return your response strictly as a JSON object with the following keys:
1.  "interpretation": A string summarizing the overall coagulation status.
2.  "potentialImplications": An array of strings listing potential clinical implications.
3.  "furtherSuggestions": An array of strings with 1-2 suggestions for further action or consideration.

Generate the JSON response:`)

	var parsed struct {
		Interpretation        string   `json:"interpretation"`
		PotentialImplications []string `json:"potentialImplications"`
		FurtherSuggestions    []string `json:"furtherSuggestions"`
	}
	if err := s.generateJSON(ctx, b.String(), &parsed); err != nil {
		return fail(&d.AIStatus, &d.AIError, err)
	}
	if parsed.Interpretation == "" {
		return fail(&d.AIStatus, &d.AIError, errMissingFields)
	}
	d.Interpretation = &parsed.Interpretation
	d.PotentialImplications = parsed.PotentialImplications
	d.FurtherSuggestions = parsed.FurtherSuggestions
	d.AIStatus = pkg.AISuccess
	d.AIError = nil
	return nil
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}

func yesWithDetail(v bool, label, detail string) string {
	if !v {
		return "No"
	}
	if detail == "" {
		detail = "Not specified"
	}
	return fmt.Sprintf("Yes (%s: %s)", label, detail)
}

// AnalyzeConstitutional summarizes the reported constitutional symptom
// pattern on d.
func (s *Service) AnalyzeConstitutional(ctx context.Context, d *pkg.ConstitutionalSymptomsData) error {
	other := d.OtherSymptomsContext
	if other == "" {
		other = "None provided"
	}
	prompt := fmt.Sprintf(`You are a medical AI assistant. Analyze the following reported constitutional symptoms.
Patient Reported Data:
- Fever: %s
- Fatigue: %s
- Unintentional Weight Loss: %s
- Unintentional Weight Gain: %s
- Malaise: %s
- Chills: %s
- Night Sweats: %s
- Other Symptoms/Context: %s

Based on these reported symptoms:
Return your response strictly as a JSON object with the following keys:
1.  "symptomPatternSummary": A string providing a brief clinical summary of the symptom pattern.
2.  "potentialConcerns": An array of strings listing 2-3 broad categories of potential underlying concerns or conditions this pattern might suggest.
3.  "suggestedNextSteps": An array of strings with 2-3 general suggestions for next steps in clinical assessment.

Generate the JSON response:`,
		yesWithDetail(d.Fever, "Temperature", d.FeverTemp),
		yesWithDetail(d.Fatigue, "Severity", d.FatigueSeverity),
		yesWithDetail(d.WeightLoss, "Details", d.WeightLossAmount),
		yesWithDetail(d.WeightGain, "Details", d.WeightGainAmount),
		yesNo(d.Malaise), yesNo(d.Chills), yesNo(d.NightSweats), other)

	var parsed struct {
		SymptomPatternSummary string   `json:"symptomPatternSummary"`
		PotentialConcerns     []string `json:"potentialConcerns"`
		SuggestedNextSteps    []string `json:"suggestedNextSteps"`
	}
	if err := s.generateJSON(ctx, prompt, &parsed); err != nil {
		return fail(&d.AIStatus, &d.AIError, err)
	}
	if parsed.SymptomPatternSummary == "" {
		return fail(&d.AIStatus, &d.AIError, errMissingFields)
	}
	d.SymptomPatternSummary = &parsed.SymptomPatternSummary
	d.PotentialConcerns = parsed.PotentialConcerns
	d.SuggestedNextSteps = parsed.SuggestedNextSteps
	d.AIStatus = pkg.AISuccess
	d.AIError = nil
	return nil
}

// EstimateBurn estimates TBSA, severity, and initial management for
// the burn described on d.
func (s *Service) EstimateBurn(ctx context.Context, d *pkg.BurnCalculatorData) error {
	prompt := fmt.Sprintf(`You are a medical AI assistant. Based on the following patient burn information, provide an estimation.
This is for an educational tool. Your estimations should be grounded in general medical knowledge regarding burn assessment.
Patient Age: %s years
Predominant Burn Depth: %s
Affected Body Areas (Adult Rule of Nines approximation): %s

Provide your response strictly as a JSON object with the following keys:
1.  "estimatedTBSA_percent": A number representing the estimated Total Body Surface Area percentage involved. Base this on the adult Rule of Nines.
2.  "severityClassification": A string classifying the burn. Consider TBSA, depth, age, and affected areas.
3.  "initialManagementPoints": An array of strings listing 3-5 key initial management considerations.

Generate the JSON response:`,
		d.PatientAge, d.BurnDepth, strings.Join(d.AffectedAreas, ", "))

	var parsed struct {
		EstimatedTBSAPercent    *float64 `json:"estimatedTBSA_percent"`
		SeverityClassification  string   `json:"severityClassification"`
		InitialManagementPoints []string `json:"initialManagementPoints"`
	}
	if err := s.generateJSON(ctx, prompt, &parsed); err != nil {
		return fail(&d.AIStatus, &d.AIError, err)
	}
	if parsed.EstimatedTBSAPercent == nil || parsed.SeverityClassification == "" {
		return fail(&d.AIStatus, &d.AIError, errMissingFields)
	}
	d.EstimatedTBSAPercent = parsed.EstimatedTBSAPercent
	d.SeverityClassification = &parsed.SeverityClassification
	d.InitialManagementPoints = parsed.InitialManagementPoints
	d.AIStatus = pkg.AISuccess
	d.AIError = nil
	return nil
}

// EstimateFRAX estimates 10-year fracture probabilities from the
// clinical risk factors on d.
func (s *Service) EstimateFRAX(ctx context.Context, d *pkg.FRAXData) error {
	var b strings.Builder
	b.WriteString(`You are a medical AI assistant. Based on the following clinical parameters, estimate the 10-year probability of major osteoporotic fracture and the 10-year probability of hip fracture.
This is for a tool similar to FRAX but relies on your general medical knowledge as you don't have access to specific FRAX databases or country-specific algorithms.
Provide your response strictly as a JSON object with two keys: "majorOsteoporoticFractureProbabilityPercent" (number) and "hipFractureProbabilityPercent" (number).
Example output: {"majorOsteoporoticFractureProbabilityPercent": 12.5, "hipFractureProbabilityPercent": 3.2}

Patient Data:
`)
	fmt.Fprintf(&b, "- Age: %s years\n- Sex: %s\n- Weight: %s kg\n- Height: %s cm\n", d.Age, d.Sex, d.WeightKg, d.HeightCm)
	fmt.Fprintf(&b, "- Previous Fracture: %s\n- Parent Fractured Hip: %s\n- Current Smoking: %s\n- Glucocorticoids: %s\n", d.PreviousFracture, d.ParentFracturedHip, d.CurrentSmoking, d.Glucocorticoids)
	fmt.Fprintf(&b, "- Rheumatoid Arthritis: %s\n- Secondary Osteoporosis: %s\n- Alcohol 3 or more units/day: %s", d.RheumatoidArthritis, d.SecondaryOsteoporosis, d.AlcoholThreeOrMoreUnitsPerDay)
	if strings.TrimSpace(d.BMDTScore) != "" {
		fmt.Fprintf(&b, "\n- Femoral Neck BMD T-score: %s", d.BMDTScore)
	} else {
		b.WriteString("\n- Femoral Neck BMD T-score: Not provided (base estimation on clinical risk factors only).")
	}
	b.WriteString("\n\nGenerate the JSON response:")

	var parsed struct {
		Major *float64 `json:"majorOsteoporoticFractureProbabilityPercent"`
		Hip   *float64 `json:"hipFractureProbabilityPercent"`
	}
	if err := s.generateJSON(ctx, b.String(), &parsed); err != nil {
		return fail(&d.AIStatus, &d.AIError, err)
	}
	if parsed.Major == nil || parsed.Hip == nil {
		return fail(&d.AIStatus, &d.AIError, errMissingFields)
	}
	d.MajorOsteoporoticRiskPercent = parsed.Major
	d.HipFractureRiskPercent = parsed.Hip
	d.AIStatus = pkg.AISuccess
	d.AIError = nil
	return nil
}

// PredictiveAssessment produces the markdown predictive assessment for
// free-text clinical notes.
func (s *Service) PredictiveAssessment(ctx context.Context, notes string) (string, error) {
	notes = strings.TrimSpace(notes)
	if notes == "" {
		return "", fmt.Errorf("%w: clinical notes are required", pkg.ErrValidation)
	}

	prompt := fmt.Sprintf(`You are NEXUS Medical Intelligence, specializing in predictive clinical assessment based on provided notes.
Analyze the following clinical notes:
---NOTES_START---
%s
---NOTES_END---

Based *only* on these notes, provide a predictive assessment. Structure your response with the following clear sections using Markdown:
1.  **Potential Future Risks**: List potential future health risks or complications. Provide 2-4 key risks.
2.  **Monitoring Suggestions**: Suggest 2-4 specific monitoring actions.
3.  **Preventative Considerations**: Outline 2-4 preventative measures or lifestyle changes.
4.  **Confidence & Limitations**: Briefly state the confidence and limitations of this assessment.
5.  **Overall Summary**: A brief narrative summary (2-3 sentences) of the key predictive insights.

Prioritize actionable and clinically relevant points. Be cautious and avoid definitive predictions. Emphasize that this is for informational support.
Your response will be displayed directly to the healthcare professional. Ensure a professional and clinical tone.`, notes)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.client.GenerateOnce(ctx, prompt, false)
}
