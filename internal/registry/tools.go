// Package registry holds the working copies of the body system tool
// payloads and psychometric assessments for the active encounter.  It
// owns default construction, merge-on-load and derived value recompute;
// callers receive deep copies and mutate through update closures.
package registry

import (
	"fmt"
	"math"
	"strconv"
	"sync"

	"github.com/sirupsen/logrus"

	"mediframework/pkg"
)

// Tools is the registry of body system tool payloads.
type Tools struct {
	log  *logrus.Logger
	mu   sync.Mutex
	live pkg.ToolResults
}

// NewTools returns a registry populated with default payloads.
func NewTools(log *logrus.Logger) *Tools {
	return &Tools{log: log, live: pkg.DefaultToolResults()}
}

// MergeToolResults overlays saved payloads onto a fresh default set.
// Slots absent from saved keep their defaults; tool keys the current
// build no longer knows are dropped during decoding and never reach
// this function.  The input is not retained.
func MergeToolResults(saved *pkg.ToolResults) pkg.ToolResults {
	out := pkg.DefaultToolResults()
	if saved == nil {
		return out
	}
	if saved.Cardiovascular.ASCVD != nil {
		out.Cardiovascular.ASCVD = saved.Cardiovascular.ASCVD.Clone()
	}
	if saved.Cardiovascular.HeartRateZone != nil {
		out.Cardiovascular.HeartRateZone = saved.Cardiovascular.HeartRateZone.Clone()
	}
	if saved.Neurological.GCS != nil {
		out.Neurological.GCS = saved.Neurological.GCS.Clone()
	}
	if saved.Respiratory.OxygenationIndex != nil {
		out.Respiratory.OxygenationIndex = saved.Respiratory.OxygenationIndex.Clone()
	}
	if saved.Respiratory.BICS != nil {
		out.Respiratory.BICS = saved.Respiratory.BICS.Clone()
	}
	if saved.Gastrointestinal.Ransons != nil {
		out.Gastrointestinal.Ransons = saved.Gastrointestinal.Ransons.Clone()
	}
	if saved.Musculoskeletal.FRAX != nil {
		out.Musculoskeletal.FRAX = saved.Musculoskeletal.FRAX.Clone()
	}
	if saved.Musculoskeletal.ROMTracker != nil {
		out.Musculoskeletal.ROMTracker = saved.Musculoskeletal.ROMTracker.Clone()
	}
	if saved.Integumentary.Burn != nil {
		out.Integumentary.Burn = saved.Integumentary.Burn.Clone()
	}
	if saved.Endocrine.Thyroid != nil {
		out.Endocrine.Thyroid = saved.Endocrine.Thyroid.Clone()
	}
	if saved.Endocrine.DiabetesRisk != nil {
		out.Endocrine.DiabetesRisk = saved.Endocrine.DiabetesRisk.Clone()
	}
	if saved.Hematologic.Coagulation != nil {
		out.Hematologic.Coagulation = saved.Hematologic.Coagulation.Clone()
	}
	if saved.General.Constitutional != nil {
		out.General.Constitutional = saved.General.Constitutional.Clone()
	}
	return out
}

// Load replaces the working set with saved data merged over defaults.
// Loading the same data twice yields the same working set.
func (t *Tools) Load(saved *pkg.ToolResults) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.live = MergeToolResults(saved)
	t.log.Debug("tool registry loaded")
}

// Snapshot returns a deep copy of the full working set.
func (t *Tools) Snapshot() pkg.ToolResults {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.live.Clone()
}

// Reset restores a single tool to its default payload.
func (t *Tools) Reset(system pkg.BodySystem, tool pkg.ToolID) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch {
	case system == pkg.SystemCardiovascular && tool == pkg.ToolASCVD:
		t.live.Cardiovascular.ASCVD = pkg.DefaultASCVD()
	case system == pkg.SystemCardiovascular && tool == pkg.ToolHeartRateZone:
		t.live.Cardiovascular.HeartRateZone = pkg.DefaultHeartRateZone()
	case system == pkg.SystemNeurological && tool == pkg.ToolGCS:
		t.live.Neurological.GCS = pkg.DefaultGCS()
	case system == pkg.SystemRespiratory && tool == pkg.ToolOxygenationIndex:
		t.live.Respiratory.OxygenationIndex = pkg.DefaultOxygenationIndex()
	case system == pkg.SystemRespiratory && tool == pkg.ToolBICS:
		t.live.Respiratory.BICS = pkg.DefaultBICS()
	case system == pkg.SystemGastrointestinal && tool == pkg.ToolRansons:
		t.live.Gastrointestinal.Ransons = pkg.DefaultRansons()
	case system == pkg.SystemMusculoskeletal && tool == pkg.ToolFRAX:
		t.live.Musculoskeletal.FRAX = pkg.DefaultFRAX()
	case system == pkg.SystemMusculoskeletal && tool == pkg.ToolROMTracker:
		t.live.Musculoskeletal.ROMTracker = pkg.DefaultROMTracker()
	case system == pkg.SystemIntegumentary && tool == pkg.ToolBurn:
		t.live.Integumentary.Burn = pkg.DefaultBurn()
	case system == pkg.SystemEndocrine && tool == pkg.ToolThyroid:
		t.live.Endocrine.Thyroid = pkg.DefaultThyroid()
	case system == pkg.SystemEndocrine && tool == pkg.ToolDiabetesRisk:
		t.live.Endocrine.DiabetesRisk = pkg.DefaultDiabetesRisk()
	case system == pkg.SystemHematologicLymphatic && tool == pkg.ToolCoagulation:
		t.live.Hematologic.Coagulation = pkg.DefaultCoagulation()
	case system == pkg.SystemGeneral && tool == pkg.ToolConstitutional:
		t.live.General.Constitutional = pkg.DefaultConstitutional()
	default:
		return fmt.Errorf("%w: unknown tool %s/%s", pkg.ErrValidation, system, tool)
	}
	t.log.WithFields(logrus.Fields{"system": system, "tool": tool}).Debug("tool reset to defaults")
	return nil
}

// GCS returns a copy of the GCS payload, initializing it if absent.
func (t *Tools) GCS() *pkg.GCSData {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.live.Neurological.GCS == nil {
		t.live.Neurological.GCS = pkg.DefaultGCS()
	}
	return t.live.Neurological.GCS.Clone()
}

// UpdateGCS mutates the GCS payload through fn, recomputes the total
// and returns a copy of the result.  The total is nil until all three
// components are set.
func (t *Tools) UpdateGCS(fn func(*pkg.GCSData)) *pkg.GCSData {
	t.mu.Lock()
	defer t.mu.Unlock()
	d := t.live.Neurological.GCS
	if d == nil {
		d = pkg.DefaultGCS()
		t.live.Neurological.GCS = d
	}
	fn(d)
	if d.Eye != nil && d.Verbal != nil && d.Motor != nil {
		total := *d.Eye + *d.Verbal + *d.Motor
		d.Total = &total
	} else {
		d.Total = nil
	}
	return d.Clone()
}

// ASCVD returns a copy of the ASCVD payload.
func (t *Tools) ASCVD() *pkg.ASCVDData {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.live.Cardiovascular.ASCVD == nil {
		t.live.Cardiovascular.ASCVD = pkg.DefaultASCVD()
	}
	return t.live.Cardiovascular.ASCVD.Clone()
}

// UpdateASCVD mutates the ASCVD payload through fn and returns a copy.
func (t *Tools) UpdateASCVD(fn func(*pkg.ASCVDData)) *pkg.ASCVDData {
	t.mu.Lock()
	defer t.mu.Unlock()
	d := t.live.Cardiovascular.ASCVD
	if d == nil {
		d = pkg.DefaultASCVD()
		t.live.Cardiovascular.ASCVD = d
	}
	fn(d)
	return d.Clone()
}

// CalculateASCVD scores the current ASCVD inputs.  The formula is the
// same illustrative weighting the tool has always shipped with, not a
// validated pooled cohort equation.
func (t *Tools) CalculateASCVD() *pkg.ASCVDData {
	return t.UpdateASCVD(func(d *pkg.ASCVDData) {
		if d.Age == "" || d.Sex == "" || d.Race == "" || d.TotalCholesterol == "" ||
			d.HDLCholesterol == "" || d.SystolicBP == "" || d.OnHypertensionTreatment == "" ||
			d.IsDiabetic == "" || d.IsSmoker == "" {
			incomplete := "[INCOMPLETE INPUT]"
			d.RiskScore = &incomplete
			return
		}
		age, _ := strconv.Atoi(d.Age)
		tc, _ := strconv.Atoi(d.TotalCholesterol)
		hdl, _ := strconv.Atoi(d.HDLCholesterol)
		sbp, _ := strconv.Atoi(d.SystolicBP)

		risk := 5.0
		if age > 50 {
			risk += float64(age-50) * 0.2
		}
		if d.Sex == "male" {
			risk += 1.0
		}
		if d.Race == "africanAmerican" {
			risk += 0.5
		}
		if tc > 200 {
			risk += 1.5
		}
		if hdl < 40 {
			risk += 1.0
		}
		if sbp > 130 {
			risk += 1.2
		}
		if d.OnHypertensionTreatment == "yes" {
			risk += 0.8
		}
		if d.IsDiabetic == "yes" {
			risk += 2.0
		}
		if d.IsSmoker == "yes" {
			risk += 2.5
		}
		score := fmt.Sprintf("%.1f%% (Illustrative)", risk)
		d.RiskScore = &score
	})
}

// HeartRateZone returns a copy of the heart rate zone payload.
func (t *Tools) HeartRateZone() *pkg.HeartRateZoneData {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.live.Cardiovascular.HeartRateZone == nil {
		t.live.Cardiovascular.HeartRateZone = pkg.DefaultHeartRateZone()
	}
	return t.live.Cardiovascular.HeartRateZone.Clone()
}

// UpdateHeartRateZone mutates the payload through fn and returns a copy.
func (t *Tools) UpdateHeartRateZone(fn func(*pkg.HeartRateZoneData)) *pkg.HeartRateZoneData {
	t.mu.Lock()
	defer t.mu.Unlock()
	d := t.live.Cardiovascular.HeartRateZone
	if d == nil {
		d = pkg.DefaultHeartRateZone()
		t.live.Cardiovascular.HeartRateZone = d
	}
	fn(d)
	return d.Clone()
}

// CalculateHeartRateZone derives max heart rate (220 minus age) and the
// 50-85% target zone from the age input.
func (t *Tools) CalculateHeartRateZone() *pkg.HeartRateZoneData {
	return t.UpdateHeartRateZone(func(d *pkg.HeartRateZoneData) {
		age, err := strconv.Atoi(d.Age)
		if err != nil || age <= 0 || age > 120 {
			d.MaxHeartRate = nil
			d.TargetZoneLower = nil
			d.TargetZoneUpper = nil
			return
		}
		max := 220 - age
		lower := int(math.Round(float64(max) * 0.50))
		upper := int(math.Round(float64(max) * 0.85))
		d.MaxHeartRate = &max
		d.TargetZoneLower = &lower
		d.TargetZoneUpper = &upper
	})
}

// OxygenationIndex returns a copy of the OI payload.
func (t *Tools) OxygenationIndex() *pkg.OxygenationIndexData {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.live.Respiratory.OxygenationIndex == nil {
		t.live.Respiratory.OxygenationIndex = pkg.DefaultOxygenationIndex()
	}
	return t.live.Respiratory.OxygenationIndex.Clone()
}

// UpdateOxygenationIndex mutates the payload through fn and returns a copy.
func (t *Tools) UpdateOxygenationIndex(fn func(*pkg.OxygenationIndexData)) *pkg.OxygenationIndexData {
	t.mu.Lock()
	defer t.mu.Unlock()
	d := t.live.Respiratory.OxygenationIndex
	if d == nil {
		d = pkg.DefaultOxygenationIndex()
		t.live.Respiratory.OxygenationIndex = d
	}
	fn(d)
	return d.Clone()
}

// CalculateOxygenationIndex computes OI = (MAP * FiO2%) / PaO2 and its
// severity band.
func (t *Tools) CalculateOxygenationIndex() *pkg.OxygenationIndexData {
	return t.UpdateOxygenationIndex(func(d *pkg.OxygenationIndexData) {
		mapCmH2O, errM := strconv.ParseFloat(d.MAP, 64)
		fio2, errF := strconv.ParseFloat(d.FiO2, 64)
		pao2, errP := strconv.ParseFloat(d.PaO2, 64)
		if errM != nil || errF != nil || errP != nil ||
			mapCmH2O <= 0 || fio2 < 21 || fio2 > 100 || pao2 <= 0 {
			hint := "Ensure MAP > 0, FiO2 is 21-100, PaO2 > 0."
			d.OIScore = nil
			d.Interpretation = &hint
			return
		}
		oi := mapCmH2O * fio2 / pao2
		var band string
		switch {
		case oi < 5:
			band = "Good oxygenation"
		case oi < 15:
			band = "Mild ARDS / Lung Injury"
		case oi < 25:
			band = "Moderate ARDS"
		default:
			band = "Severe ARDS"
		}
		d.OIScore = &oi
		d.Interpretation = &band
	})
}

// BICS returns a copy of the BICS payload.
func (t *Tools) BICS() *pkg.BICSData {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.live.Respiratory.BICS == nil {
		t.live.Respiratory.BICS = pkg.DefaultBICS()
	}
	return t.live.Respiratory.BICS.Clone()
}

// UpdateBICS mutates the payload through fn, recomputes the slider sum
// and returns a copy.
func (t *Tools) UpdateBICS(fn func(*pkg.BICSData)) *pkg.BICSData {
	t.mu.Lock()
	defer t.mu.Unlock()
	d := t.live.Respiratory.BICS
	if d == nil {
		d = pkg.DefaultBICS()
		t.live.Respiratory.BICS = d
	}
	fn(d)
	total := d.CoughSeverity + d.SputumVolume + d.WheezeFrequency
	d.TotalScore = &total
	return d.Clone()
}

// CalculateBICS recomputes the total and assigns the inflammation
// likelihood band.
func (t *Tools) CalculateBICS() *pkg.BICSData {
	return t.UpdateBICS(func(d *pkg.BICSData) {
		total := d.CoughSeverity + d.SputumVolume + d.WheezeFrequency
		var band string
		switch {
		case total <= 10:
			band = "Low likelihood of significant active inflammation."
		case total <= 20:
			band = "Moderate likelihood of active inflammation."
		default:
			band = "High likelihood of significant active inflammation."
		}
		d.Interpretation = &band
	})
}

// Ransons returns a copy of the Ranson criteria payload.
func (t *Tools) Ransons() *pkg.RansonsCriteriaData {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.live.Gastrointestinal.Ransons == nil {
		t.live.Gastrointestinal.Ransons = pkg.DefaultRansons()
	}
	return t.live.Gastrointestinal.Ransons.Clone()
}

// UpdateRansons mutates the payload through fn, recounts the criteria
// and refreshes the mortality interpretation.
func (t *Tools) UpdateRansons(fn func(*pkg.RansonsCriteriaData)) *pkg.RansonsCriteriaData {
	t.mu.Lock()
	defer t.mu.Unlock()
	d := t.live.Gastrointestinal.Ransons
	if d == nil {
		d = pkg.DefaultRansons()
		t.live.Gastrointestinal.Ransons = d
	}
	fn(d)
	count := 0
	for _, met := range []bool{d.AgeOver55, d.WBCOver16K, d.GlucoseOver200, d.LDHOver350, d.ASTOver250} {
		if met {
			count++
		}
	}
	d.CriteriaMet = &count
	var interp string
	switch {
	case count <= 2:
		interp = "0-2 criteria: Low severity, estimated mortality ~1-5%."
	case count <= 4:
		interp = "3-4 criteria: Moderate severity, estimated mortality ~15-20%."
	default:
		interp = "5-6 criteria: High severity, estimated mortality ~40%."
	}
	d.Interpretation = &interp
	return d.Clone()
}

// FRAX returns a copy of the FRAX payload.
func (t *Tools) FRAX() *pkg.FRAXData {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.live.Musculoskeletal.FRAX == nil {
		t.live.Musculoskeletal.FRAX = pkg.DefaultFRAX()
	}
	return t.live.Musculoskeletal.FRAX.Clone()
}

// UpdateFRAX mutates the payload through fn and returns a copy.
func (t *Tools) UpdateFRAX(fn func(*pkg.FRAXData)) *pkg.FRAXData {
	t.mu.Lock()
	defer t.mu.Unlock()
	d := t.live.Musculoskeletal.FRAX
	if d == nil {
		d = pkg.DefaultFRAX()
		t.live.Musculoskeletal.FRAX = d
	}
	fn(d)
	return d.Clone()
}

// ROMTracker returns a copy of the ROM tracker payload.
func (t *Tools) ROMTracker() *pkg.ROMTrackerData {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.live.Musculoskeletal.ROMTracker == nil {
		t.live.Musculoskeletal.ROMTracker = pkg.DefaultROMTracker()
	}
	return t.live.Musculoskeletal.ROMTracker.Clone()
}

// UpdateROMTracker mutates the payload through fn and returns a copy.
func (t *Tools) UpdateROMTracker(fn func(*pkg.ROMTrackerData)) *pkg.ROMTrackerData {
	t.mu.Lock()
	defer t.mu.Unlock()
	d := t.live.Musculoskeletal.ROMTracker
	if d == nil {
		d = pkg.DefaultROMTracker()
		t.live.Musculoskeletal.ROMTracker = d
	}
	fn(d)
	return d.Clone()
}

// AddROMEntry appends a measurement, keeping only the ten most recent.
func (t *Tools) AddROMEntry(entry pkg.ROMEntry) *pkg.ROMTrackerData {
	return t.UpdateROMTracker(func(d *pkg.ROMTrackerData) {
		d.RecordedROMs = append(d.RecordedROMs, entry)
		if len(d.RecordedROMs) > 10 {
			d.RecordedROMs = d.RecordedROMs[len(d.RecordedROMs)-10:]
		}
	})
}

// Burn returns a copy of the burn calculator payload.
func (t *Tools) Burn() *pkg.BurnCalculatorData {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.live.Integumentary.Burn == nil {
		t.live.Integumentary.Burn = pkg.DefaultBurn()
	}
	return t.live.Integumentary.Burn.Clone()
}

// UpdateBurn mutates the payload through fn and returns a copy.
func (t *Tools) UpdateBurn(fn func(*pkg.BurnCalculatorData)) *pkg.BurnCalculatorData {
	t.mu.Lock()
	defer t.mu.Unlock()
	d := t.live.Integumentary.Burn
	if d == nil {
		d = pkg.DefaultBurn()
		t.live.Integumentary.Burn = d
	}
	fn(d)
	return d.Clone()
}

// Thyroid returns a copy of the thyroid analyzer payload.
func (t *Tools) Thyroid() *pkg.ThyroidFunctionData {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.live.Endocrine.Thyroid == nil {
		t.live.Endocrine.Thyroid = pkg.DefaultThyroid()
	}
	return t.live.Endocrine.Thyroid.Clone()
}

// UpdateThyroid mutates the payload through fn and returns a copy.
func (t *Tools) UpdateThyroid(fn func(*pkg.ThyroidFunctionData)) *pkg.ThyroidFunctionData {
	t.mu.Lock()
	defer t.mu.Unlock()
	d := t.live.Endocrine.Thyroid
	if d == nil {
		d = pkg.DefaultThyroid()
		t.live.Endocrine.Thyroid = d
	}
	fn(d)
	return d.Clone()
}

// DiabetesRisk returns a copy of the diabetes risk payload.
func (t *Tools) DiabetesRisk() *pkg.DiabetesRiskData {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.live.Endocrine.DiabetesRisk == nil {
		t.live.Endocrine.DiabetesRisk = pkg.DefaultDiabetesRisk()
	}
	return t.live.Endocrine.DiabetesRisk.Clone()
}

// UpdateDiabetesRisk mutates the payload through fn and returns a copy.
func (t *Tools) UpdateDiabetesRisk(fn func(*pkg.DiabetesRiskData)) *pkg.DiabetesRiskData {
	t.mu.Lock()
	defer t.mu.Unlock()
	d := t.live.Endocrine.DiabetesRisk
	if d == nil {
		d = pkg.DefaultDiabetesRisk()
		t.live.Endocrine.DiabetesRisk = d
	}
	fn(d)
	return d.Clone()
}

// Coagulation returns a copy of the coagulation payload.
func (t *Tools) Coagulation() *pkg.CoagulationProfileData {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.live.Hematologic.Coagulation == nil {
		t.live.Hematologic.Coagulation = pkg.DefaultCoagulation()
	}
	return t.live.Hematologic.Coagulation.Clone()
}

// UpdateCoagulation mutates the payload through fn and returns a copy.
func (t *Tools) UpdateCoagulation(fn func(*pkg.CoagulationProfileData)) *pkg.CoagulationProfileData {
	t.mu.Lock()
	defer t.mu.Unlock()
	d := t.live.Hematologic.Coagulation
	if d == nil {
		d = pkg.DefaultCoagulation()
		t.live.Hematologic.Coagulation = d
	}
	fn(d)
	return d.Clone()
}

// Constitutional returns a copy of the constitutional symptoms payload.
func (t *Tools) Constitutional() *pkg.ConstitutionalSymptomsData {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.live.General.Constitutional == nil {
		t.live.General.Constitutional = pkg.DefaultConstitutional()
	}
	return t.live.General.Constitutional.Clone()
}

// UpdateConstitutional mutates the payload through fn and returns a copy.
func (t *Tools) UpdateConstitutional(fn func(*pkg.ConstitutionalSymptomsData)) *pkg.ConstitutionalSymptomsData {
	t.mu.Lock()
	defer t.mu.Unlock()
	d := t.live.General.Constitutional
	if d == nil {
		d = pkg.DefaultConstitutional()
		t.live.General.Constitutional = d
	}
	fn(d)
	return d.Clone()
}
