package pkg

// AIStatus tracks the lifecycle of an AI-assisted tool analysis.
type AIStatus string

const (
	AIIdle    AIStatus = "idle"
	AILoading AIStatus = "loading"
	AISuccess AIStatus = "success"
	AIError   AIStatus = "error"
)

// ToolID identifies a tool within its body system group.
type ToolID string

const (
	ToolASCVD            ToolID = "ascvdRiskCalculator"
	ToolHeartRateZone    ToolID = "heartRateZoneCalculator"
	ToolGCS              ToolID = "gcsCalculator"
	ToolOxygenationIndex ToolID = "oxygenationIndexCalculator"
	ToolBICS             ToolID = "bicsCalculator"
	ToolRansons          ToolID = "ransonsCriteria"
	ToolFRAX             ToolID = "fraxCalculatorAI"
	ToolROMTracker       ToolID = "romTracker"
	ToolBurn             ToolID = "burnCalculatorAI"
	ToolThyroid          ToolID = "thyroidFunctionAnalyzerAI"
	ToolDiabetesRisk     ToolID = "diabetesRiskProfilerAI"
	ToolCoagulation      ToolID = "coagulationProfileInterpreterAI"
	ToolConstitutional   ToolID = "constitutionalSymptomAnalyzerAI"
)

// ToolResult is implemented by every tool payload so callers can write
// results back to an encounter without naming the slot.
type ToolResult interface {
	isToolResult()
}

// GCSData holds Glasgow Coma Scale component scores.  Total is derived
// and nil until all three components are set.
type GCSData struct {
	Eye    *int `json:"eye"`
	Verbal *int `json:"verbal"`
	Motor  *int `json:"motor"`
	Total  *int `json:"total"`
}

func (*GCSData) isToolResult() {}

func (d *GCSData) Clone() *GCSData {
	out := *d
	out.Eye = cloneInt(d.Eye)
	out.Verbal = cloneInt(d.Verbal)
	out.Motor = cloneInt(d.Motor)
	out.Total = cloneInt(d.Total)
	return &out
}

// ASCVDData holds the inputs and illustrative result of the 10-year
// ASCVD risk estimate.
type ASCVDData struct {
	Age                     string  `json:"age"`
	Sex                     string  `json:"sex"`
	Race                    string  `json:"race"`
	TotalCholesterol        string  `json:"totalCholesterol"`
	HDLCholesterol          string  `json:"hdlCholesterol"`
	SystolicBP              string  `json:"systolicBP"`
	OnHypertensionTreatment string  `json:"onHypertensionTreatment"`
	IsDiabetic              string  `json:"isDiabetic"`
	IsSmoker                string  `json:"isSmoker"`
	RiskScore               *string `json:"riskScore"`
}

func (*ASCVDData) isToolResult() {}

func (d *ASCVDData) Clone() *ASCVDData {
	out := *d
	out.RiskScore = cloneString(d.RiskScore)
	return &out
}

// HeartRateZoneData holds the age input and derived exercise zones.
type HeartRateZoneData struct {
	Age             string `json:"age"`
	MaxHeartRate    *int   `json:"maxHeartRate"`
	TargetZoneLower *int   `json:"targetZoneLower"`
	TargetZoneUpper *int   `json:"targetZoneUpper"`
}

func (*HeartRateZoneData) isToolResult() {}

func (d *HeartRateZoneData) Clone() *HeartRateZoneData {
	out := *d
	out.MaxHeartRate = cloneInt(d.MaxHeartRate)
	out.TargetZoneLower = cloneInt(d.TargetZoneLower)
	out.TargetZoneUpper = cloneInt(d.TargetZoneUpper)
	return &out
}

// OxygenationIndexData holds ventilation inputs and the derived OI.
type OxygenationIndexData struct {
	MAP            string   `json:"map"`
	FiO2           string   `json:"fio2"`
	PaO2           string   `json:"pao2"`
	OIScore        *float64 `json:"oiScore"`
	Interpretation *string  `json:"interpretation"`
}

func (*OxygenationIndexData) isToolResult() {}

func (d *OxygenationIndexData) Clone() *OxygenationIndexData {
	out := *d
	out.OIScore = cloneFloat(d.OIScore)
	out.Interpretation = cloneString(d.Interpretation)
	return &out
}

// BICSData holds the bronchial inflammation mock score sliders.
type BICSData struct {
	CoughSeverity   int     `json:"coughSeverity"`
	SputumVolume    int     `json:"sputumVolume"`
	WheezeFrequency int     `json:"wheezeFrequency"`
	TotalScore      *int    `json:"totalScore"`
	Interpretation  *string `json:"interpretation"`
}

func (*BICSData) isToolResult() {}

func (d *BICSData) Clone() *BICSData {
	out := *d
	out.TotalScore = cloneInt(d.TotalScore)
	out.Interpretation = cloneString(d.Interpretation)
	return &out
}

// RansonsCriteriaData tracks Ranson admission criteria for pancreatitis.
type RansonsCriteriaData struct {
	AgeOver55      bool    `json:"ageOver55"`
	WBCOver16K     bool    `json:"wbcOver16k"`
	GlucoseOver200 bool    `json:"glucoseOver200"`
	LDHOver350     bool    `json:"ldhOver350"`
	ASTOver250     bool    `json:"astOver250"`
	CriteriaMet    *int    `json:"criteriaMet"`
	Interpretation *string `json:"interpretation"`
}

func (*RansonsCriteriaData) isToolResult() {}

func (d *RansonsCriteriaData) Clone() *RansonsCriteriaData {
	out := *d
	out.CriteriaMet = cloneInt(d.CriteriaMet)
	out.Interpretation = cloneString(d.Interpretation)
	return &out
}

// FRAXData holds fracture-risk inputs and the AI-estimated percentages.
type FRAXData struct {
	Age                           string   `json:"age"`
	Sex                           string   `json:"sex"`
	WeightKg                      string   `json:"weightKg"`
	HeightCm                      string   `json:"heightCm"`
	PreviousFracture              string   `json:"previousFracture"`
	ParentFracturedHip            string   `json:"parentFracturedHip"`
	CurrentSmoking                string   `json:"currentSmoking"`
	Glucocorticoids               string   `json:"glucocorticoids"`
	RheumatoidArthritis           string   `json:"rheumatoidArthritis"`
	SecondaryOsteoporosis         string   `json:"secondaryOsteoporosis"`
	AlcoholThreeOrMoreUnitsPerDay string   `json:"alcoholThreeOrMoreUnitsPerDay"`
	BMDTScore                     string   `json:"bmdTscore"`
	MajorOsteoporoticRiskPercent  *float64 `json:"majorOsteoporoticFractureRiskPercent"`
	HipFractureRiskPercent        *float64 `json:"hipFractureRiskPercent"`
	AIStatus                      AIStatus `json:"aiStatus"`
	AIError                       *string  `json:"aiError"`
}

func (*FRAXData) isToolResult() {}

func (d *FRAXData) Clone() *FRAXData {
	out := *d
	out.MajorOsteoporoticRiskPercent = cloneFloat(d.MajorOsteoporoticRiskPercent)
	out.HipFractureRiskPercent = cloneFloat(d.HipFractureRiskPercent)
	out.AIError = cloneString(d.AIError)
	return &out
}

// ROMEntry is one recorded range-of-motion measurement.
type ROMEntry struct {
	Joint     string `json:"joint"`
	Motion    string `json:"motion"`
	Degrees   string `json:"degrees"`
	Timestamp string `json:"timestamp"`
}

// ROMTrackerData holds the range-of-motion tracker form and its rolling
// measurement log.
type ROMTrackerData struct {
	SelectedJoint   string     `json:"selectedJoint"`
	SelectedMotion  string     `json:"selectedMotion"`
	MeasuredDegrees string     `json:"measuredDegrees"`
	RecordedROMs    []ROMEntry `json:"recordedROMs"`
}

func (*ROMTrackerData) isToolResult() {}

func (d *ROMTrackerData) Clone() *ROMTrackerData {
	out := *d
	out.RecordedROMs = cloneSlice(d.RecordedROMs)
	return &out
}

// BurnCalculatorData holds rule-of-nines inputs and AI-estimated TBSA.
type BurnCalculatorData struct {
	BurnDepth               string   `json:"burnDepth"`
	AffectedAreas           []string `json:"affectedAreas"`
	PatientAge              string   `json:"patientAge"`
	EstimatedTBSAPercent    *float64 `json:"estimatedTBSA_percent"`
	SeverityClassification  *string  `json:"severityClassification"`
	InitialManagementPoints []string `json:"initialManagementPoints"`
	AIStatus                AIStatus `json:"aiStatus"`
	AIError                 *string  `json:"aiError"`
}

func (*BurnCalculatorData) isToolResult() {}

func (d *BurnCalculatorData) Clone() *BurnCalculatorData {
	out := *d
	out.AffectedAreas = cloneSlice(d.AffectedAreas)
	out.EstimatedTBSAPercent = cloneFloat(d.EstimatedTBSAPercent)
	out.SeverityClassification = cloneString(d.SeverityClassification)
	if d.InitialManagementPoints != nil {
		out.InitialManagementPoints = cloneSlice(d.InitialManagementPoints)
	}
	out.AIError = cloneString(d.AIError)
	return &out
}

// ThyroidFunctionData holds thyroid lab values and the AI interpretation.
type ThyroidFunctionData struct {
	TSH                  string   `json:"tsh"`
	FreeT4               string   `json:"freeT4"`
	FreeT3               string   `json:"freeT3"`
	AntiTPO              string   `json:"antiTPO"`
	Interpretation       *string  `json:"interpretation"`
	ContributingFactors  []string `json:"contributingFactors"`
	FurtherInvestigation []string `json:"furtherInvestigation"`
	AIStatus             AIStatus `json:"aiStatus"`
	AIError              *string  `json:"aiError"`
}

func (*ThyroidFunctionData) isToolResult() {}

func (d *ThyroidFunctionData) Clone() *ThyroidFunctionData {
	out := *d
	out.Interpretation = cloneString(d.Interpretation)
	if d.ContributingFactors != nil {
		out.ContributingFactors = cloneSlice(d.ContributingFactors)
	}
	if d.FurtherInvestigation != nil {
		out.FurtherInvestigation = cloneSlice(d.FurtherInvestigation)
	}
	out.AIError = cloneString(d.AIError)
	return &out
}

// DiabetesRiskData holds type 2 diabetes risk inputs and the AI profile.
type DiabetesRiskData struct {
	Age                      string   `json:"age"`
	BMI                      string   `json:"bmi"`
	FamilyHistoryDiabetes    string   `json:"familyHistoryDiabetes"`
	GestationalDiabetes      string   `json:"gestationalDiabetes"`
	PhysicalActivity         string   `json:"physicalActivity"`
	RaceEthnicity            string   `json:"raceEthnicity"`
	BloodPressureStatus      string   `json:"bloodPressureStatus"`
	HDLCholesterol           string   `json:"hdlCholesterol"`
	RiskLevel                *string  `json:"riskLevel"`
	IdentifiedRiskFactors    []string `json:"identifiedRiskFactors"`
	LifestyleRecommendations []string `json:"lifestyleRecommendations"`
	ScreeningSuggestion      *string  `json:"screeningSuggestion"`
	AIStatus                 AIStatus `json:"aiStatus"`
	AIError                  *string  `json:"aiError"`
}

func (*DiabetesRiskData) isToolResult() {}

func (d *DiabetesRiskData) Clone() *DiabetesRiskData {
	out := *d
	out.RiskLevel = cloneString(d.RiskLevel)
	if d.IdentifiedRiskFactors != nil {
		out.IdentifiedRiskFactors = cloneSlice(d.IdentifiedRiskFactors)
	}
	if d.LifestyleRecommendations != nil {
		out.LifestyleRecommendations = cloneSlice(d.LifestyleRecommendations)
	}
	out.ScreeningSuggestion = cloneString(d.ScreeningSuggestion)
	out.AIError = cloneString(d.AIError)
	return &out
}

// CoagulationProfileData holds coagulation labs and the AI interpretation.
type CoagulationProfileData struct {
	PT                    string   `json:"pt"`
	INR                   string   `json:"inr"`
	APTT                  string   `json:"aptt"`
	Fibrinogen            string   `json:"fibrinogen"`
	DDimer                string   `json:"dDimer"`
	ClinicalContext       string   `json:"clinicalContext"`
	Interpretation        *string  `json:"interpretation"`
	PotentialImplications []string `json:"potentialImplications"`
	FurtherSuggestions    []string `json:"furtherSuggestions"`
	AIStatus              AIStatus `json:"aiStatus"`
	AIError               *string  `json:"aiError"`
}

func (*CoagulationProfileData) isToolResult() {}

func (d *CoagulationProfileData) Clone() *CoagulationProfileData {
	out := *d
	out.Interpretation = cloneString(d.Interpretation)
	if d.PotentialImplications != nil {
		out.PotentialImplications = cloneSlice(d.PotentialImplications)
	}
	if d.FurtherSuggestions != nil {
		out.FurtherSuggestions = cloneSlice(d.FurtherSuggestions)
	}
	out.AIError = cloneString(d.AIError)
	return &out
}

// ConstitutionalSymptomsData tracks general symptoms and the AI pattern
// summary.
type ConstitutionalSymptomsData struct {
	Fever                 bool     `json:"fever"`
	FeverTemp             string   `json:"feverTemp"`
	Fatigue               bool     `json:"fatigue"`
	FatigueSeverity       string   `json:"fatigueSeverity"`
	WeightLoss            bool     `json:"weightLoss"`
	WeightLossAmount      string   `json:"weightLossAmount"`
	WeightGain            bool     `json:"weightGain"`
	WeightGainAmount      string   `json:"weightGainAmount"`
	Malaise               bool     `json:"malaise"`
	Chills                bool     `json:"chills"`
	NightSweats           bool     `json:"nightSweats"`
	OtherSymptomsContext  string   `json:"otherSymptomsContext"`
	AIStatus              AIStatus `json:"aiStatus"`
	AIError               *string  `json:"aiError"`
	SymptomPatternSummary *string  `json:"symptomPatternSummary"`
	PotentialConcerns     []string `json:"potentialConcerns"`
	SuggestedNextSteps    []string `json:"suggestedNextSteps"`
}

func (*ConstitutionalSymptomsData) isToolResult() {}

func (d *ConstitutionalSymptomsData) Clone() *ConstitutionalSymptomsData {
	out := *d
	out.AIError = cloneString(d.AIError)
	out.SymptomPatternSummary = cloneString(d.SymptomPatternSummary)
	if d.PotentialConcerns != nil {
		out.PotentialConcerns = cloneSlice(d.PotentialConcerns)
	}
	if d.SuggestedNextSteps != nil {
		out.SuggestedNextSteps = cloneSlice(d.SuggestedNextSteps)
	}
	return &out
}

// Per-system tool groups.  JSON keys match the persisted encounter format.

type CardiovascularTools struct {
	ASCVD         *ASCVDData         `json:"ascvdRiskCalculator,omitempty"`
	HeartRateZone *HeartRateZoneData `json:"heartRateZoneCalculator,omitempty"`
}

type NeurologicalTools struct {
	GCS *GCSData `json:"gcsCalculator,omitempty"`
}

type RespiratoryTools struct {
	OxygenationIndex *OxygenationIndexData `json:"oxygenationIndexCalculator,omitempty"`
	BICS             *BICSData             `json:"bicsCalculator,omitempty"`
}

type GastrointestinalTools struct {
	Ransons *RansonsCriteriaData `json:"ransonsCriteria,omitempty"`
}

type MusculoskeletalTools struct {
	FRAX       *FRAXData       `json:"fraxCalculatorAI,omitempty"`
	ROMTracker *ROMTrackerData `json:"romTracker,omitempty"`
}

type IntegumentaryTools struct {
	Burn *BurnCalculatorData `json:"burnCalculatorAI,omitempty"`
}

type EndocrineTools struct {
	Thyroid      *ThyroidFunctionData `json:"thyroidFunctionAnalyzerAI,omitempty"`
	DiabetesRisk *DiabetesRiskData    `json:"diabetesRiskProfilerAI,omitempty"`
}

type HematologicTools struct {
	Coagulation *CoagulationProfileData `json:"coagulationProfileInterpreterAI,omitempty"`
}

type GeneralTools struct {
	Constitutional *ConstitutionalSymptomsData `json:"constitutionalSymptomAnalyzerAI,omitempty"`
}

// ToolResults groups every body system tool payload for one encounter.
// The legacy persisted form spells the hematologic key without a slash,
// so the JSON tag differs from the system tab name.
type ToolResults struct {
	Cardiovascular   CardiovascularTools   `json:"Cardiovascular"`
	Neurological     NeurologicalTools     `json:"Neurological"`
	Respiratory      RespiratoryTools      `json:"Respiratory"`
	Gastrointestinal GastrointestinalTools `json:"Gastrointestinal"`
	Musculoskeletal  MusculoskeletalTools  `json:"Musculoskeletal"`
	Integumentary    IntegumentaryTools    `json:"Integumentary"`
	Endocrine        EndocrineTools        `json:"Endocrine"`
	Hematologic      HematologicTools      `json:"HematologicLymphatic"`
	General          GeneralTools          `json:"General/Constitutional"`
}

// DefaultASCVD returns a fresh ASCVD payload with empty inputs.
func DefaultASCVD() *ASCVDData { return &ASCVDData{} }

// DefaultHeartRateZone returns a fresh heart rate zone payload.
func DefaultHeartRateZone() *HeartRateZoneData { return &HeartRateZoneData{} }

// DefaultGCS returns a fresh GCS payload with no components selected.
func DefaultGCS() *GCSData { return &GCSData{} }

// DefaultOxygenationIndex returns a fresh OI payload.
func DefaultOxygenationIndex() *OxygenationIndexData { return &OxygenationIndexData{} }

// DefaultBICS returns a fresh BICS payload with sliders centered.
func DefaultBICS() *BICSData {
	return &BICSData{CoughSeverity: 5, SputumVolume: 5, WheezeFrequency: 5}
}

// DefaultRansons returns a fresh Ranson criteria payload.
func DefaultRansons() *RansonsCriteriaData { return &RansonsCriteriaData{} }

// DefaultFRAX returns a fresh FRAX payload.
func DefaultFRAX() *FRAXData { return &FRAXData{AIStatus: AIIdle} }

// DefaultROMTracker returns a fresh ROM tracker payload.
func DefaultROMTracker() *ROMTrackerData {
	return &ROMTrackerData{RecordedROMs: []ROMEntry{}}
}

// DefaultBurn returns a fresh burn calculator payload.
func DefaultBurn() *BurnCalculatorData {
	return &BurnCalculatorData{AffectedAreas: []string{}, AIStatus: AIIdle}
}

// DefaultThyroid returns a fresh thyroid analyzer payload.
func DefaultThyroid() *ThyroidFunctionData { return &ThyroidFunctionData{AIStatus: AIIdle} }

// DefaultDiabetesRisk returns a fresh diabetes risk payload.
func DefaultDiabetesRisk() *DiabetesRiskData { return &DiabetesRiskData{AIStatus: AIIdle} }

// DefaultCoagulation returns a fresh coagulation payload.
func DefaultCoagulation() *CoagulationProfileData {
	return &CoagulationProfileData{AIStatus: AIIdle}
}

// DefaultConstitutional returns a fresh constitutional symptoms payload.
func DefaultConstitutional() *ConstitutionalSymptomsData {
	return &ConstitutionalSymptomsData{AIStatus: AIIdle}
}

// DefaultToolResults returns the tool set a new encounter starts with,
// every slot populated with its default payload.
func DefaultToolResults() ToolResults {
	return ToolResults{
		Cardiovascular: CardiovascularTools{
			ASCVD:         DefaultASCVD(),
			HeartRateZone: DefaultHeartRateZone(),
		},
		Neurological: NeurologicalTools{GCS: DefaultGCS()},
		Respiratory: RespiratoryTools{
			OxygenationIndex: DefaultOxygenationIndex(),
			BICS:             DefaultBICS(),
		},
		Gastrointestinal: GastrointestinalTools{Ransons: DefaultRansons()},
		Musculoskeletal: MusculoskeletalTools{
			FRAX:       DefaultFRAX(),
			ROMTracker: DefaultROMTracker(),
		},
		Integumentary: IntegumentaryTools{Burn: DefaultBurn()},
		Endocrine: EndocrineTools{
			Thyroid:      DefaultThyroid(),
			DiabetesRisk: DefaultDiabetesRisk(),
		},
		Hematologic: HematologicTools{Coagulation: DefaultCoagulation()},
		General:     GeneralTools{Constitutional: DefaultConstitutional()},
	}
}

// Clone returns a deep copy of the tool results.
func (t ToolResults) Clone() ToolResults {
	out := t
	if t.Cardiovascular.ASCVD != nil {
		out.Cardiovascular.ASCVD = t.Cardiovascular.ASCVD.Clone()
	}
	if t.Cardiovascular.HeartRateZone != nil {
		out.Cardiovascular.HeartRateZone = t.Cardiovascular.HeartRateZone.Clone()
	}
	if t.Neurological.GCS != nil {
		out.Neurological.GCS = t.Neurological.GCS.Clone()
	}
	if t.Respiratory.OxygenationIndex != nil {
		out.Respiratory.OxygenationIndex = t.Respiratory.OxygenationIndex.Clone()
	}
	if t.Respiratory.BICS != nil {
		out.Respiratory.BICS = t.Respiratory.BICS.Clone()
	}
	if t.Gastrointestinal.Ransons != nil {
		out.Gastrointestinal.Ransons = t.Gastrointestinal.Ransons.Clone()
	}
	if t.Musculoskeletal.FRAX != nil {
		out.Musculoskeletal.FRAX = t.Musculoskeletal.FRAX.Clone()
	}
	if t.Musculoskeletal.ROMTracker != nil {
		out.Musculoskeletal.ROMTracker = t.Musculoskeletal.ROMTracker.Clone()
	}
	if t.Integumentary.Burn != nil {
		out.Integumentary.Burn = t.Integumentary.Burn.Clone()
	}
	if t.Endocrine.Thyroid != nil {
		out.Endocrine.Thyroid = t.Endocrine.Thyroid.Clone()
	}
	if t.Endocrine.DiabetesRisk != nil {
		out.Endocrine.DiabetesRisk = t.Endocrine.DiabetesRisk.Clone()
	}
	if t.Hematologic.Coagulation != nil {
		out.Hematologic.Coagulation = t.Hematologic.Coagulation.Clone()
	}
	if t.General.Constitutional != nil {
		out.General.Constitutional = t.General.Constitutional.Clone()
	}
	return out
}

// cloneSlice copies a slice, keeping nil nil and empty empty so a
// cloned value serializes the same way as its source.
func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	out := make([]T, len(s))
	copy(out, s)
	return out
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
