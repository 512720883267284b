package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"mediframework/pkg"
)

// systemForTool resolves the body system a tool belongs to.
var systemForTool = map[pkg.ToolID]pkg.BodySystem{
	pkg.ToolASCVD:            pkg.SystemCardiovascular,
	pkg.ToolHeartRateZone:    pkg.SystemCardiovascular,
	pkg.ToolGCS:              pkg.SystemNeurological,
	pkg.ToolOxygenationIndex: pkg.SystemRespiratory,
	pkg.ToolBICS:             pkg.SystemRespiratory,
	pkg.ToolRansons:          pkg.SystemGastrointestinal,
	pkg.ToolFRAX:             pkg.SystemMusculoskeletal,
	pkg.ToolROMTracker:       pkg.SystemMusculoskeletal,
	pkg.ToolBurn:             pkg.SystemIntegumentary,
	pkg.ToolThyroid:          pkg.SystemEndocrine,
	pkg.ToolDiabetesRisk:     pkg.SystemEndocrine,
	pkg.ToolCoagulation:      pkg.SystemHematologicLymphatic,
	pkg.ToolConstitutional:   pkg.SystemGeneral,
}

func (s *Server) handleToolSnapshot(c *gin.Context) {
	c.JSON(http.StatusOK, s.tools.Snapshot())
}

// unmarshalInto applies a partial JSON body to the live payload through
// the registry's update path, so derived fields are recomputed.
func unmarshalInto[T pkg.ToolResult](body []byte, update func(func(T)) T) (T, error) {
	var uerr error
	out := update(func(d T) {
		uerr = json.Unmarshal(body, d)
	})
	return out, uerr
}

func (s *Server) handleUpdateTool(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		writeError(c, pkg.ErrValidation)
		return
	}

	var (
		out  pkg.ToolResult
		uerr error
	)
	switch pkg.ToolID(c.Param("tool")) {
	case pkg.ToolGCS:
		out, uerr = unmarshalInto(body, s.tools.UpdateGCS)
	case pkg.ToolASCVD:
		out, uerr = unmarshalInto(body, s.tools.UpdateASCVD)
	case pkg.ToolHeartRateZone:
		out, uerr = unmarshalInto(body, s.tools.UpdateHeartRateZone)
	case pkg.ToolOxygenationIndex:
		out, uerr = unmarshalInto(body, s.tools.UpdateOxygenationIndex)
	case pkg.ToolBICS:
		out, uerr = unmarshalInto(body, s.tools.UpdateBICS)
	case pkg.ToolRansons:
		out, uerr = unmarshalInto(body, s.tools.UpdateRansons)
	case pkg.ToolFRAX:
		out, uerr = unmarshalInto(body, s.tools.UpdateFRAX)
	case pkg.ToolROMTracker:
		out, uerr = unmarshalInto(body, s.tools.UpdateROMTracker)
	case pkg.ToolBurn:
		out, uerr = unmarshalInto(body, s.tools.UpdateBurn)
	case pkg.ToolThyroid:
		out, uerr = unmarshalInto(body, s.tools.UpdateThyroid)
	case pkg.ToolDiabetesRisk:
		out, uerr = unmarshalInto(body, s.tools.UpdateDiabetesRisk)
	case pkg.ToolCoagulation:
		out, uerr = unmarshalInto(body, s.tools.UpdateCoagulation)
	case pkg.ToolConstitutional:
		out, uerr = unmarshalInto(body, s.tools.UpdateConstitutional)
	default:
		writeError(c, fmt.Errorf("%w: unknown tool %q", pkg.ErrValidation, c.Param("tool")))
		return
	}
	if uerr != nil {
		writeError(c, fmt.Errorf("%w: %v", pkg.ErrValidation, uerr))
		return
	}

	if err := s.store.PutToolResult(c.Request.Context(), out); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleCalculateTool(c *gin.Context) {
	var out pkg.ToolResult
	switch pkg.ToolID(c.Param("tool")) {
	case pkg.ToolASCVD:
		out = s.tools.CalculateASCVD()
	case pkg.ToolHeartRateZone:
		out = s.tools.CalculateHeartRateZone()
	case pkg.ToolOxygenationIndex:
		out = s.tools.CalculateOxygenationIndex()
	case pkg.ToolBICS:
		out = s.tools.CalculateBICS()
	default:
		writeError(c, fmt.Errorf("%w: tool %q has no local calculation", pkg.ErrValidation, c.Param("tool")))
		return
	}
	if err := s.store.PutToolResult(c.Request.Context(), out); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleResetTool(c *gin.Context) {
	tool := pkg.ToolID(c.Param("tool"))
	system, ok := systemForTool[tool]
	if !ok {
		writeError(c, fmt.Errorf("%w: unknown tool %q", pkg.ErrValidation, tool))
		return
	}
	if err := s.tools.Reset(system, tool); err != nil {
		writeError(c, err)
		return
	}
	out, _ := s.toolPayload(tool)
	if err := s.store.PutToolResult(c.Request.Context(), out); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) toolPayload(tool pkg.ToolID) (pkg.ToolResult, bool) {
	switch tool {
	case pkg.ToolGCS:
		return s.tools.GCS(), true
	case pkg.ToolASCVD:
		return s.tools.ASCVD(), true
	case pkg.ToolHeartRateZone:
		return s.tools.HeartRateZone(), true
	case pkg.ToolOxygenationIndex:
		return s.tools.OxygenationIndex(), true
	case pkg.ToolBICS:
		return s.tools.BICS(), true
	case pkg.ToolRansons:
		return s.tools.Ransons(), true
	case pkg.ToolFRAX:
		return s.tools.FRAX(), true
	case pkg.ToolROMTracker:
		return s.tools.ROMTracker(), true
	case pkg.ToolBurn:
		return s.tools.Burn(), true
	case pkg.ToolThyroid:
		return s.tools.Thyroid(), true
	case pkg.ToolDiabetesRisk:
		return s.tools.DiabetesRisk(), true
	case pkg.ToolCoagulation:
		return s.tools.Coagulation(), true
	case pkg.ToolConstitutional:
		return s.tools.Constitutional(), true
	}
	return nil, false
}

func (s *Server) handleAddROMEntry(c *gin.Context) {
	if pkg.ToolID(c.Param("tool")) != pkg.ToolROMTracker {
		writeError(c, fmt.Errorf("%w: tool %q does not accept entries", pkg.ErrValidation, c.Param("tool")))
		return
	}
	var entry pkg.ROMEntry
	if err := c.ShouldBindJSON(&entry); err != nil {
		writeError(c, pkg.ErrValidation)
		return
	}
	out := s.tools.AddROMEntry(entry)
	if err := s.store.PutToolResult(c.Request.Context(), out); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// handleAnalyzeTool runs the AI interpretation for one tool: the
// payload is marked loading, handed to the analysis service, and the
// outcome (result or recorded failure) is written back to the registry
// and the active encounter.
func (s *Server) handleAnalyzeTool(c *gin.Context) {
	ctx := c.Request.Context()

	var (
		out pkg.ToolResult
		err error
	)
	switch pkg.ToolID(c.Param("tool")) {
	case pkg.ToolThyroid:
		working := s.tools.UpdateThyroid(func(d *pkg.ThyroidFunctionData) {
			d.AIStatus = pkg.AILoading
			d.AIError = nil
		})
		s.store.PutToolResult(ctx, working)
		err = s.assist.AnalyzeThyroid(ctx, working)
		out = s.tools.UpdateThyroid(func(d *pkg.ThyroidFunctionData) { *d = *working })
	case pkg.ToolDiabetesRisk:
		working := s.tools.UpdateDiabetesRisk(func(d *pkg.DiabetesRiskData) {
			d.AIStatus = pkg.AILoading
			d.AIError = nil
		})
		s.store.PutToolResult(ctx, working)
		err = s.assist.AnalyzeDiabetesRisk(ctx, working)
		out = s.tools.UpdateDiabetesRisk(func(d *pkg.DiabetesRiskData) { *d = *working })
	case pkg.ToolCoagulation:
		working := s.tools.UpdateCoagulation(func(d *pkg.CoagulationProfileData) {
			d.AIStatus = pkg.AILoading
			d.AIError = nil
		})
		s.store.PutToolResult(ctx, working)
		err = s.assist.AnalyzeCoagulation(ctx, working)
		out = s.tools.UpdateCoagulation(func(d *pkg.CoagulationProfileData) { *d = *working })
	case pkg.ToolConstitutional:
		working := s.tools.UpdateConstitutional(func(d *pkg.ConstitutionalSymptomsData) {
			d.AIStatus = pkg.AILoading
			d.AIError = nil
		})
		s.store.PutToolResult(ctx, working)
		err = s.assist.AnalyzeConstitutional(ctx, working)
		out = s.tools.UpdateConstitutional(func(d *pkg.ConstitutionalSymptomsData) { *d = *working })
	case pkg.ToolBurn:
		working := s.tools.UpdateBurn(func(d *pkg.BurnCalculatorData) {
			d.AIStatus = pkg.AILoading
			d.AIError = nil
		})
		s.store.PutToolResult(ctx, working)
		err = s.assist.EstimateBurn(ctx, working)
		out = s.tools.UpdateBurn(func(d *pkg.BurnCalculatorData) { *d = *working })
	case pkg.ToolFRAX:
		working := s.tools.UpdateFRAX(func(d *pkg.FRAXData) {
			d.AIStatus = pkg.AILoading
			d.AIError = nil
		})
		s.store.PutToolResult(ctx, working)
		err = s.assist.EstimateFRAX(ctx, working)
		out = s.tools.UpdateFRAX(func(d *pkg.FRAXData) { *d = *working })
	default:
		writeError(c, fmt.Errorf("%w: tool %q has no AI analysis", pkg.ErrValidation, c.Param("tool")))
		return
	}

	if perr := s.store.PutToolResult(ctx, out); perr != nil {
		writeError(c, perr)
		return
	}
	if errors.Is(err, pkg.ErrServiceUnavailable) {
		writeError(c, err)
		return
	}
	// Analysis failures are recorded on the payload itself.
	c.JSON(http.StatusOK, out)
}
