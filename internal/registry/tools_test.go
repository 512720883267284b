package registry

import (
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediframework/pkg"
)

func newTestLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func TestDefaultsAreIndependentCopies(t *testing.T) {
	a := pkg.DefaultToolResults()
	b := pkg.DefaultToolResults()

	a.Respiratory.BICS.CoughSeverity = 9
	assert.Equal(t, 5, b.Respiratory.BICS.CoughSeverity)

	a.Musculoskeletal.ROMTracker.RecordedROMs = append(
		a.Musculoskeletal.ROMTracker.RecordedROMs,
		pkg.ROMEntry{Joint: "knee"},
	)
	assert.Empty(t, b.Musculoskeletal.ROMTracker.RecordedROMs)
}

func TestMergeToolResultsFillsMissingSlots(t *testing.T) {
	saved := &pkg.ToolResults{}
	saved.Neurological.GCS = &pkg.GCSData{}
	eye := 4
	saved.Neurological.GCS.Eye = &eye

	merged := MergeToolResults(saved)

	// Saved slot survives.
	require.NotNil(t, merged.Neurological.GCS.Eye)
	assert.Equal(t, 4, *merged.Neurological.GCS.Eye)

	// Every other slot is backfilled with its default.
	require.NotNil(t, merged.Respiratory.BICS)
	assert.Equal(t, 5, merged.Respiratory.BICS.CoughSeverity)
	require.NotNil(t, merged.Endocrine.Thyroid)
	assert.Equal(t, pkg.AIIdle, merged.Endocrine.Thyroid.AIStatus)
}

func TestMergeToolResultsIsIdempotent(t *testing.T) {
	saved := &pkg.ToolResults{}
	saved.Respiratory.BICS = &pkg.BICSData{CoughSeverity: 8, SputumVolume: 2, WheezeFrequency: 1}

	once := MergeToolResults(saved)
	twice := MergeToolResults(&once)
	assert.Equal(t, once, twice)

	// Default empty slices stay empty, not nil, so persisted payloads
	// keep serializing them as arrays.
	require.NotNil(t, twice.Musculoskeletal.ROMTracker.RecordedROMs)
	require.NotNil(t, twice.Integumentary.Burn.AffectedAreas)
	blob, err := json.Marshal(twice.Musculoskeletal.ROMTracker)
	require.NoError(t, err)
	assert.Contains(t, string(blob), `"recordedROMs":[]`)
}

func TestMergeToolResultsDeepCopiesSavedData(t *testing.T) {
	saved := &pkg.ToolResults{}
	saved.Musculoskeletal.ROMTracker = &pkg.ROMTrackerData{
		RecordedROMs: []pkg.ROMEntry{{Joint: "knee", Motion: "flexion", Degrees: "120"}},
	}

	merged := MergeToolResults(saved)
	saved.Musculoskeletal.ROMTracker.RecordedROMs[0].Joint = "elbow"

	assert.Equal(t, "knee", merged.Musculoskeletal.ROMTracker.RecordedROMs[0].Joint)
}

func TestUnknownToolKeysAreDroppedOnDecode(t *testing.T) {
	blob := `{
		"Neurological": {
			"gcsCalculator": {"eye": 3, "verbal": 4, "motor": 5, "total": 12},
			"retiredReflexTool": {"score": 1}
		}
	}`
	var saved pkg.ToolResults
	require.NoError(t, json.Unmarshal([]byte(blob), &saved))

	merged := MergeToolResults(&saved)
	out, err := json.Marshal(merged)
	require.NoError(t, err)
	assert.NotContains(t, string(out), "retiredReflexTool")
	require.NotNil(t, merged.Neurological.GCS.Total)
	assert.Equal(t, 12, *merged.Neurological.GCS.Total)
}

func TestSnapshotReturnsDeepCopy(t *testing.T) {
	reg := NewTools(newTestLogger())
	snap := reg.Snapshot()
	snap.Respiratory.BICS.CoughSeverity = 10

	assert.Equal(t, 5, reg.BICS().CoughSeverity)
}

func TestUpdateGCSRecomputesTotal(t *testing.T) {
	reg := NewTools(newTestLogger())

	eye, verbal := 4, 5
	d := reg.UpdateGCS(func(g *pkg.GCSData) {
		g.Eye = &eye
		g.Verbal = &verbal
	})
	assert.Nil(t, d.Total, "total stays unset until all components are scored")

	motor := 6
	d = reg.UpdateGCS(func(g *pkg.GCSData) { g.Motor = &motor })
	require.NotNil(t, d.Total)
	assert.Equal(t, 15, *d.Total)

	d = reg.UpdateGCS(func(g *pkg.GCSData) { g.Motor = nil })
	assert.Nil(t, d.Total)
}

func TestUpdateBICSRecomputesTotal(t *testing.T) {
	reg := NewTools(newTestLogger())

	d := reg.UpdateBICS(func(b *pkg.BICSData) {
		b.CoughSeverity = 7
		b.SputumVolume = 8
		b.WheezeFrequency = 9
	})
	require.NotNil(t, d.TotalScore)
	assert.Equal(t, 24, *d.TotalScore)

	d = reg.CalculateBICS()
	require.NotNil(t, d.Interpretation)
	assert.Contains(t, *d.Interpretation, "High likelihood")
}

func TestUpdateRansonsCountsCriteria(t *testing.T) {
	reg := NewTools(newTestLogger())

	d := reg.UpdateRansons(func(r *pkg.RansonsCriteriaData) {
		r.AgeOver55 = true
		r.WBCOver16K = true
		r.GlucoseOver200 = true
	})
	require.NotNil(t, d.CriteriaMet)
	assert.Equal(t, 3, *d.CriteriaMet)
	require.NotNil(t, d.Interpretation)
	assert.Contains(t, *d.Interpretation, "Moderate severity")
}

func TestCalculateHeartRateZone(t *testing.T) {
	reg := NewTools(newTestLogger())

	reg.UpdateHeartRateZone(func(d *pkg.HeartRateZoneData) { d.Age = "40" })
	d := reg.CalculateHeartRateZone()

	require.NotNil(t, d.MaxHeartRate)
	assert.Equal(t, 180, *d.MaxHeartRate)
	assert.Equal(t, 90, *d.TargetZoneLower)
	assert.Equal(t, 153, *d.TargetZoneUpper)

	reg.UpdateHeartRateZone(func(d *pkg.HeartRateZoneData) { d.Age = "not a number" })
	d = reg.CalculateHeartRateZone()
	assert.Nil(t, d.MaxHeartRate)
}

func TestCalculateOxygenationIndex(t *testing.T) {
	reg := NewTools(newTestLogger())

	reg.UpdateOxygenationIndex(func(d *pkg.OxygenationIndexData) {
		d.MAP = "10"
		d.FiO2 = "60"
		d.PaO2 = "50"
	})
	d := reg.CalculateOxygenationIndex()

	require.NotNil(t, d.OIScore)
	assert.InDelta(t, 12.0, *d.OIScore, 0.001)
	require.NotNil(t, d.Interpretation)
	assert.Equal(t, "Mild ARDS / Lung Injury", *d.Interpretation)

	reg.UpdateOxygenationIndex(func(d *pkg.OxygenationIndexData) { d.FiO2 = "15" })
	d = reg.CalculateOxygenationIndex()
	assert.Nil(t, d.OIScore)
}

func TestCalculateASCVD(t *testing.T) {
	reg := NewTools(newTestLogger())

	d := reg.CalculateASCVD()
	require.NotNil(t, d.RiskScore)
	assert.Equal(t, "[INCOMPLETE INPUT]", *d.RiskScore)

	reg.UpdateASCVD(func(a *pkg.ASCVDData) {
		a.Age = "60"
		a.Sex = "male"
		a.Race = "white"
		a.TotalCholesterol = "220"
		a.HDLCholesterol = "35"
		a.SystolicBP = "140"
		a.OnHypertensionTreatment = "yes"
		a.IsDiabetic = "no"
		a.IsSmoker = "yes"
	})
	d = reg.CalculateASCVD()
	require.NotNil(t, d.RiskScore)
	// 5.0 + 2.0 + 1.0 + 1.5 + 1.0 + 1.2 + 0.8 + 2.5 = 15.0
	assert.Equal(t, "15.0% (Illustrative)", *d.RiskScore)
}

func TestAddROMEntryCapsAtTen(t *testing.T) {
	reg := NewTools(newTestLogger())

	for i := 0; i < 12; i++ {
		reg.AddROMEntry(pkg.ROMEntry{Joint: "knee", Degrees: string(rune('a' + i))})
	}
	d := reg.ROMTracker()
	require.Len(t, d.RecordedROMs, 10)
	assert.Equal(t, "c", d.RecordedROMs[0].Degrees, "oldest entries are evicted first")
}

func TestResetRestoresDefaults(t *testing.T) {
	reg := NewTools(newTestLogger())

	reg.UpdateBICS(func(b *pkg.BICSData) { b.CoughSeverity = 9 })
	require.NoError(t, reg.Reset(pkg.SystemRespiratory, pkg.ToolBICS))
	assert.Equal(t, 5, reg.BICS().CoughSeverity)

	err := reg.Reset(pkg.SystemRespiratory, "noSuchTool")
	assert.ErrorIs(t, err, pkg.ErrValidation)
}
