package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"mediframework/internal/llm"
	"mediframework/pkg"
)

func (s *Server) handleListEncounters(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"encounters":        s.store.List(),
		"activeEncounterId": s.store.ActiveID(),
	})
}

func (s *Server) handleCreateEncounter(c *gin.Context) {
	enc, err := s.store.Create(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, enc)
}

func (s *Server) handleActiveEncounter(c *gin.Context) {
	enc := s.store.Active()
	if enc == nil {
		writeError(c, pkg.ErrEncounterNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"encounter":       enc,
		"activeSystemTab": s.store.ActiveSystemTab(),
	})
}

func (s *Server) handleGetEncounter(c *gin.Context) {
	enc, err := s.store.Get(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, enc)
}

func (s *Server) handleRenameEncounter(c *gin.Context) {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, pkg.ErrValidation)
		return
	}
	if err := s.store.Rename(c.Request.Context(), c.Param("id"), req.Name); err != nil {
		writeError(c, err)
		return
	}
	enc, err := s.store.Get(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, enc)
}

func (s *Server) handleDeleteEncounter(c *gin.Context) {
	if err := s.store.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"encounters":        s.store.List(),
		"activeEncounterId": s.store.ActiveID(),
	})
}

func (s *Server) handleActivateEncounter(c *gin.Context) {
	id := c.Param("id")
	if _, err := s.store.Get(id); err != nil {
		writeError(c, err)
		return
	}
	s.store.SwitchActive(c.Request.Context(), id)
	c.JSON(http.StatusOK, gin.H{
		"activeEncounterId": s.store.ActiveID(),
		"activeSystemTab":   s.store.ActiveSystemTab(),
	})
}

type sendTurnRequest struct {
	Text  string `json:"text"`
	Files []struct {
		Name     string `json:"name"`
		MIMEType string `json:"mimeType"`
		Data     []byte `json:"data"`
	} `json:"files"`
}

func (s *Server) handleSendTurn(c *gin.Context) {
	var req sendTurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, pkg.ErrValidation)
		return
	}
	if req.Text == "" && len(req.Files) == 0 {
		writeError(c, pkg.ErrValidation)
		return
	}

	var parts []llm.Part
	for _, f := range req.Files {
		parts = append(parts, llm.Part{
			Name:     f.Name,
			MIMEType: f.MIMEType,
			Data:     f.Data,
		})
	}

	msg, err := s.mux.SendTurn(c.Request.Context(), c.Param("id"), req.Text, parts)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, msg)
}

func (s *Server) handleMergeNotes(c *gin.Context) {
	var update pkg.NotesUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		writeError(c, pkg.ErrValidation)
		return
	}
	id := c.Param("id")
	if err := s.store.MergeNotes(c.Request.Context(), id, update); err != nil {
		writeError(c, err)
		return
	}
	enc, err := s.store.Get(id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, enc.Notes)
}

func (s *Server) handleExportNotes(c *gin.Context) {
	enc, err := s.store.Get(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(RenderNotes(enc)))
}

func (s *Server) handleSetSeverity(c *gin.Context) {
	var req struct {
		System   pkg.BodySystem `json:"system"`
		Severity pkg.Severity   `json:"severity"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, pkg.ErrValidation)
		return
	}
	if err := s.store.SetSeverity(c.Request.Context(), c.Param("id"), req.System, req.Severity); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleSetPatientData(c *gin.Context) {
	var data pkg.PatientCoreData
	if err := c.ShouldBindJSON(&data); err != nil {
		writeError(c, pkg.ErrValidation)
		return
	}
	if err := s.store.SetPatientCoreData(c.Request.Context(), c.Param("id"), data); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleSetActiveTab(c *gin.Context) {
	var req struct {
		System pkg.BodySystem `json:"system"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, pkg.ErrValidation)
		return
	}
	if err := s.store.SetActiveSystemTab(c.Request.Context(), req.System); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"activeSystemTab": s.store.ActiveSystemTab()})
}

func (s *Server) handlePredictiveAssessment(c *gin.Context) {
	var req struct {
		Notes string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, pkg.ErrValidation)
		return
	}
	report, err := s.assist.PredictiveAssessment(c.Request.Context(), req.Notes)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"report": report})
}
