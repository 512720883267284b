package assist

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediframework/internal/llm"
	"mediframework/pkg"
)

func newTestService(reply string, err error) (*Service, *llm.Fake) {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	fake := &llm.Fake{GenerateFn: func(string, bool) (string, error) { return reply, err }}
	return NewService(log, fake, time.Minute), fake
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFences("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFences(`{"a":1}`))
}

func TestAnalyzeThyroidSuccess(t *testing.T) {
	s, fake := newTestService("```json\n{\"interpretation\":\"Likely Euthyroid\",\"contributingFactorsOrAssociations\":[],\"furtherInvestigationSuggestions\":[\"Repeat in 6 weeks\"]}\n```", nil)

	var gotJSONMode bool
	var gotPrompt string
	fake.GenerateFn = func(prompt string, jsonMode bool) (string, error) {
		gotPrompt, gotJSONMode = prompt, jsonMode
		return "{\"interpretation\":\"Likely Euthyroid\",\"contributingFactorsOrAssociations\":[],\"furtherInvestigationSuggestions\":[\"Repeat in 6 weeks\"]}", nil
	}

	d := &pkg.ThyroidFunctionData{TSH: "2.1", FreeT4: "1.2", FreeT3: "3.0", AIStatus: pkg.AILoading}
	require.NoError(t, s.AnalyzeThyroid(context.Background(), d))

	assert.True(t, gotJSONMode)
	assert.Contains(t, gotPrompt, "- TSH: 2.1")
	assert.Contains(t, gotPrompt, "- Free T3: 3.0")
	assert.Equal(t, pkg.AISuccess, d.AIStatus)
	assert.Nil(t, d.AIError)
	require.NotNil(t, d.Interpretation)
	assert.Equal(t, "Likely Euthyroid", *d.Interpretation)
	assert.Equal(t, []string{"Repeat in 6 weeks"}, d.FurtherInvestigation)
}

func TestAnalyzeThyroidMalformedReply(t *testing.T) {
	s, _ := newTestService("not json at all", nil)

	d := &pkg.ThyroidFunctionData{TSH: "9.8", FreeT4: "0.6"}
	err := s.AnalyzeThyroid(context.Background(), d)
	require.Error(t, err)

	var parseErr *pkg.ParseError
	assert.ErrorAs(t, err, &parseErr)
	assert.Equal(t, pkg.AIError, d.AIStatus)
	require.NotNil(t, d.AIError)
	assert.Nil(t, d.Interpretation)
	assert.Equal(t, "9.8", d.TSH)
}

func TestAnalyzeDiabetesRiskProviderError(t *testing.T) {
	s, _ := newTestService("", errors.New("provider down"))

	d := &pkg.DiabetesRiskData{Age: "55", BMI: "31"}
	err := s.AnalyzeDiabetesRisk(context.Background(), d)
	require.Error(t, err)
	assert.Equal(t, pkg.AIError, d.AIStatus)
	require.NotNil(t, d.AIError)
	assert.Contains(t, *d.AIError, "provider down")
}

func TestEstimateBurnRequiresNumericTBSA(t *testing.T) {
	s, _ := newTestService(`{"severityClassification":"Minor Burn","initialManagementPoints":["Cool the burn"]}`, nil)

	d := &pkg.BurnCalculatorData{PatientAge: "30", BurnDepth: "secondDegree", AffectedAreas: []string{"Head"}}
	err := s.EstimateBurn(context.Background(), d)
	assert.ErrorIs(t, err, errMissingFields)
	assert.Equal(t, pkg.AIError, d.AIStatus)
	assert.Nil(t, d.EstimatedTBSAPercent)
}

func TestEstimateFRAXSuccess(t *testing.T) {
	s, fake := newTestService("", nil)
	var gotPrompt string
	fake.GenerateFn = func(prompt string, _ bool) (string, error) {
		gotPrompt = prompt
		return `{"majorOsteoporoticFractureProbabilityPercent": 12.5, "hipFractureProbabilityPercent": 3.2}`, nil
	}

	d := &pkg.FRAXData{Age: "68", Sex: "female", WeightKg: "61", HeightCm: "160"}
	require.NoError(t, s.EstimateFRAX(context.Background(), d))
	assert.Contains(t, gotPrompt, "BMD T-score: Not provided")
	require.NotNil(t, d.MajorOsteoporoticRiskPercent)
	assert.InDelta(t, 12.5, *d.MajorOsteoporoticRiskPercent, 0.001)
	assert.InDelta(t, 3.2, *d.HipFractureRiskPercent, 0.001)
	assert.Equal(t, pkg.AISuccess, d.AIStatus)
}

func TestAnalyzeConstitutionalPromptFolding(t *testing.T) {
	s, fake := newTestService("", nil)
	var gotPrompt string
	fake.GenerateFn = func(prompt string, _ bool) (string, error) {
		gotPrompt = prompt
		return `{"symptomPatternSummary":"Febrile illness","potentialConcerns":["Infection"],"suggestedNextSteps":["CBC"]}`, nil
	}

	d := &pkg.ConstitutionalSymptomsData{Fever: true, FeverTemp: "38.9", NightSweats: true}
	require.NoError(t, s.AnalyzeConstitutional(context.Background(), d))
	assert.Contains(t, gotPrompt, "- Fever: Yes (Temperature: 38.9)")
	assert.Contains(t, gotPrompt, "- Night Sweats: Yes")
	assert.Contains(t, gotPrompt, "- Other Symptoms/Context: None provided")
	assert.Equal(t, []string{"Infection"}, d.PotentialConcerns)
}

func TestPredictiveAssessment(t *testing.T) {
	s, fake := newTestService("", nil)
	fake.GenerateFn = func(prompt string, jsonMode bool) (string, error) {
		assert.False(t, jsonMode)
		assert.Contains(t, prompt, "---NOTES_START---")
		return "**Potential Future Risks**\n- risk one", nil
	}

	out, err := s.PredictiveAssessment(context.Background(), "62M, poorly controlled T2DM, smoker.")
	require.NoError(t, err)
	assert.Contains(t, out, "Potential Future Risks")

	_, err = s.PredictiveAssessment(context.Background(), "   ")
	assert.ErrorIs(t, err, pkg.ErrValidation)
}
