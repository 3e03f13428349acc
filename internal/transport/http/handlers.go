// Package http holds the administrative REST handlers for conferences and
// their synchronized state.
package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Conclave/internal/app"
	"github.com/dkeye/Conclave/internal/app/orch"
	"github.com/dkeye/Conclave/internal/domain"
	"github.com/dkeye/Conclave/internal/syncobj"
)

type OpenConferenceRequest struct {
	ID         string   `json:"id" binding:"required"`
	Name       string   `json:"name"`
	Moderators []string `json:"moderators"`
}

type ConferenceHandlers struct {
	Orch *orch.Orchestrator
}

// Register mounts the handlers on g.
func (h *ConferenceHandlers) Register(g *gin.RouterGroup) {
	g.GET("/conferences", h.list)
	g.POST("/conferences", h.open)
	g.DELETE("/conferences/:id", h.close)
	g.GET("/conferences/:id/sync", h.snapshot)
	g.POST("/conferences/:id/participants/:pid/recompute", h.recompute)
	g.POST("/conferences/:id/participants/:pid/kick", h.kick)
	g.POST("/conferences/:id/sync/:object/update", h.update)
}

func (h *ConferenceHandlers) list(c *gin.Context) {
	c.JSON(http.StatusOK, h.Orch.Conferences.List())
}

func (h *ConferenceHandlers) open(c *gin.Context) {
	var req OpenConferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid id"})
		return
	}
	if req.Name == "" {
		req.Name = req.ID
	}
	mods := make([]domain.ParticipantID, 0, len(req.Moderators))
	for _, m := range req.Moderators {
		mods = append(mods, domain.ParticipantID(m))
	}
	conf := h.Orch.OpenConference(domain.ConferenceID(req.ID), req.Name, mods)
	c.JSON(http.StatusCreated, app.ConferenceInfo{
		ID:               conf.ID(),
		Name:             conf.Name(),
		ParticipantCount: conf.ParticipantCount(),
	})
}

func (h *ConferenceHandlers) close(c *gin.Context) {
	id := domain.ConferenceID(c.Param("id"))
	if err := h.Orch.CloseConference(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ConferenceHandlers) snapshot(c *gin.Context) {
	snap, ok := h.Orch.Snapshot(domain.ConferenceID(c.Param("id")))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no synchronized state"})
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *ConferenceHandlers) recompute(c *gin.Context) {
	err := h.Orch.Recompute(c.Request.Context(), domain.ConferenceID(c.Param("id")), domain.ParticipantID(c.Param("pid")))
	if err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

func (h *ConferenceHandlers) kick(c *gin.Context) {
	n := h.Orch.Kick(domain.ConferenceID(c.Param("id")), domain.ParticipantID(c.Param("pid")))
	c.JSON(http.StatusOK, gin.H{"connections": n})
}

func (h *ConferenceHandlers) update(c *gin.Context) {
	err := h.Orch.UpdateObject(c.Request.Context(), domain.ConferenceID(c.Param("id")), c.Param("object"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, syncobj.ErrUnknownProvider),
		errors.Is(err, syncobj.ErrMalformedID),
		errors.Is(err, syncobj.ErrInvalidParam):
		status = http.StatusBadRequest
	case errors.Is(err, app.ErrConferenceNotFound):
		status = http.StatusNotFound
	}
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("module", "adapters.http").Str("path", c.FullPath()).Msg("request failed")
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
