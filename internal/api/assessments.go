package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"mediframework/pkg"
)

func (s *Server) handleAssessmentSnapshot(c *gin.Context) {
	c.JSON(http.StatusOK, s.modules.Snapshot())
}

func unmarshalAssessment[T pkg.Assessment](body []byte, update func(func(T)) T) (T, error) {
	var uerr error
	out := update(func(d T) {
		uerr = json.Unmarshal(body, d)
	})
	return out, uerr
}

func (s *Server) handleUpdateAssessment(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		writeError(c, pkg.ErrValidation)
		return
	}

	var (
		out  pkg.Assessment
		uerr error
	)
	switch pkg.ModuleID(c.Param("module")) {
	case pkg.ModulePHQ9:
		out, uerr = unmarshalAssessment(body, s.modules.UpdatePHQ9)
	case pkg.ModuleGAD7:
		out, uerr = unmarshalAssessment(body, s.modules.UpdateGAD7)
	case pkg.ModulePCL5:
		out, uerr = unmarshalAssessment(body, s.modules.UpdatePCL5)
	case pkg.ModuleMSE:
		out, uerr = unmarshalAssessment(body, s.modules.UpdateMSE)
	case pkg.ModulePersonalityMatrix:
		out, uerr = unmarshalAssessment(body, s.modules.UpdatePersonalityMatrix)
	case pkg.ModuleClinicalInterview:
		out, uerr = unmarshalAssessment(body, s.modules.UpdateClinicalInterview)
	case pkg.ModuleReportGenerator:
		out, uerr = unmarshalAssessment(body, s.modules.UpdateReportGenerator)
	case pkg.ModuleNNPA:
		out, uerr = unmarshalAssessment(body, s.modules.UpdateNNPA)
	default:
		writeError(c, fmt.Errorf("%w: unknown module %q", pkg.ErrValidation, c.Param("module")))
		return
	}
	if uerr != nil {
		writeError(c, fmt.Errorf("%w: %v", pkg.ErrValidation, uerr))
		return
	}

	if err := s.store.PutAssessment(c.Request.Context(), out); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleResetAssessment(c *gin.Context) {
	module := pkg.ModuleID(c.Param("module"))
	if err := s.modules.Reset(module); err != nil {
		writeError(c, err)
		return
	}
	out, ok := s.assessmentPayload(module)
	if !ok {
		writeError(c, fmt.Errorf("%w: unknown module %q", pkg.ErrValidation, module))
		return
	}
	if err := s.store.PutAssessment(c.Request.Context(), out); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) assessmentPayload(module pkg.ModuleID) (pkg.Assessment, bool) {
	switch module {
	case pkg.ModulePHQ9:
		return s.modules.PHQ9(), true
	case pkg.ModuleGAD7:
		return s.modules.GAD7(), true
	case pkg.ModulePCL5:
		return s.modules.PCL5(), true
	case pkg.ModuleMSE:
		return s.modules.MSE(), true
	case pkg.ModulePersonalityMatrix:
		return s.modules.PersonalityMatrix(), true
	case pkg.ModuleClinicalInterview:
		return s.modules.ClinicalInterview(), true
	case pkg.ModuleReportGenerator:
		return s.modules.ReportGenerator(), true
	case pkg.ModuleNNPA:
		return s.modules.NNPA(), true
	}
	return nil, false
}
