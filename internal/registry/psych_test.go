package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediframework/pkg"
)

func answerAll(qs []pkg.ScaleQuestion, value int) {
	for i := range qs {
		v := value
		qs[i].SelectedValue = &v
	}
}

func TestUpdatePHQ9Rescores(t *testing.T) {
	reg := NewModules(newTestLogger())

	d := reg.UpdatePHQ9(func(p *pkg.PHQ9Data) {
		two := 2
		p.Questions[0].SelectedValue = &two
		p.Questions[1].SelectedValue = &two
	})
	assert.Equal(t, 4, d.TotalScore)
}

func TestUpdateGAD7Rescores(t *testing.T) {
	reg := NewModules(newTestLogger())

	d := reg.UpdateGAD7(func(g *pkg.GAD7Data) { answerAll(g.Questions, 3) })
	assert.Equal(t, 21, d.TotalScore)
}

func TestPCL5CriteriaScoring(t *testing.T) {
	reg := NewModules(newTestLogger())

	// One B item and one C item at threshold, nothing else: B and C met,
	// D and E need two items each.
	d := reg.UpdatePCL5(func(p *pkg.PCL5Data) {
		two := 2
		p.Questions[0].SelectedValue = &two // criterion B
		p.Questions[5].SelectedValue = &two // criterion C
	})
	assert.True(t, d.DSM5Criteria.A)
	assert.True(t, d.DSM5Criteria.B)
	assert.True(t, d.DSM5Criteria.C)
	assert.False(t, d.DSM5Criteria.D)
	assert.False(t, d.DSM5Criteria.E)
	assert.False(t, d.ProvisionalDiagnosisMet)
	assert.Equal(t, "Assessment Incomplete", d.SeverityInterpretation)
}

func TestPCL5SeverityBands(t *testing.T) {
	reg := NewModules(newTestLogger())

	d := reg.UpdatePCL5(func(p *pkg.PCL5Data) { answerAll(p.Questions, 3) })
	assert.Equal(t, 60, d.TotalScore)
	assert.Equal(t, "Severe Symptoms / Probable PTSD", d.SeverityInterpretation)
	assert.True(t, d.ProvisionalDiagnosisMet)

	d = reg.UpdatePCL5(func(p *pkg.PCL5Data) { answerAll(p.Questions, 0) })
	assert.Equal(t, 0, d.TotalScore)
	assert.Equal(t, "Minimal to No Symptoms", d.SeverityInterpretation)
	assert.False(t, d.ProvisionalDiagnosisMet)

	d = reg.UpdatePCL5(func(p *pkg.PCL5Data) {
		answerAll(p.Questions, 0)
		two := 2
		for i := 0; i < 8; i++ {
			p.Questions[i].SelectedValue = &two
		}
	})
	assert.Equal(t, 16, d.TotalScore)
	assert.Equal(t, "Mild Symptoms / PTSD Unlikely", d.SeverityInterpretation)
}

func TestMergeModuleSetPreservesAnswersAndRescores(t *testing.T) {
	saved := pkg.DefaultModuleSet()
	three := 3
	saved.PHQ9.Questions[0].SelectedValue = &three
	saved.PHQ9.TotalScore = 99 // stale stored score

	merged := MergeModuleSet(&saved)
	require.NotNil(t, merged.PHQ9.Questions[0].SelectedValue)
	assert.Equal(t, 3, *merged.PHQ9.Questions[0].SelectedValue)
	assert.Equal(t, 3, merged.PHQ9.TotalScore, "derived score recomputed on load")
}

func TestMergeModuleSetResetsMalformedInstrument(t *testing.T) {
	saved := pkg.DefaultModuleSet()
	saved.PHQ9.Questions = saved.PHQ9.Questions[:3]

	merged := MergeModuleSet(&saved)
	assert.Len(t, merged.PHQ9.Questions, 9)
}

func TestMergeModuleSetBackfillsMSESections(t *testing.T) {
	saved := pkg.DefaultModuleSet()
	saved.MSE.Sections["mood"].Notes = "euthymic"
	delete(saved.MSE.Sections, "cognition")
	saved.MSE.IsLoadingOverallAI = true

	merged := MergeModuleSet(&saved)
	assert.Equal(t, "euthymic", merged.MSE.Sections["mood"].Notes)
	require.NotNil(t, merged.MSE.Sections["cognition"])
	assert.Contains(t, merged.MSE.Sections["cognition"].Checkboxes, "orientationTime")
	assert.False(t, merged.MSE.IsLoadingOverallAI, "transient flags cleared on load")
}

func TestMergeModuleSetBackfillsNNPADomains(t *testing.T) {
	saved := pkg.DefaultModuleSet()
	saved.NNPA.Domains[0].SubScales[0].ClinicianNotes = "notable attachment"
	saved.NNPA.Domains = saved.NNPA.Domains[:1]

	merged := MergeModuleSet(&saved)
	require.Len(t, merged.NNPA.Domains, 4)
	assert.Equal(t, "notable attachment", merged.NNPA.Domains[0].SubScales[0].ClinicianNotes)
}

func TestMergeModuleSetIsIdempotent(t *testing.T) {
	saved := pkg.DefaultModuleSet()
	one := 1
	saved.GAD7.Questions[2].SelectedValue = &one

	once := MergeModuleSet(&saved)
	twice := MergeModuleSet(&once)
	assert.Equal(t, once, twice)
}

func TestModuleSnapshotIsDeepCopy(t *testing.T) {
	reg := NewModules(newTestLogger())

	snap := reg.Snapshot()
	snap.MSE.Sections["mood"].Notes = "mutated"
	assert.Empty(t, reg.MSE().Sections["mood"].Notes)
}

func TestModuleReset(t *testing.T) {
	reg := NewModules(newTestLogger())

	reg.UpdateGAD7(func(g *pkg.GAD7Data) { answerAll(g.Questions, 2) })
	require.NoError(t, reg.Reset(pkg.ModuleGAD7))
	assert.Equal(t, 0, reg.GAD7().TotalScore)

	err := reg.Reset("tarot")
	assert.ErrorIs(t, err, pkg.ErrValidation)
}

func TestPersonalityMatrixTraitsAlwaysCurrent(t *testing.T) {
	saved := pkg.DefaultModuleSet()
	saved.PersonalityMatrix.Traits = saved.PersonalityMatrix.Traits[:1]
	saved.PersonalityMatrix.UserRatings["openness"] = 7

	merged := MergeModuleSet(&saved)
	assert.Len(t, merged.PersonalityMatrix.Traits, 5)
	assert.Equal(t, 7, merged.PersonalityMatrix.UserRatings["openness"])
}
