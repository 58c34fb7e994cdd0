package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"peerbridge/internal/dto"
	"peerbridge/internal/service"
	pkgerrors "peerbridge/pkg/errors"
	"peerbridge/pkg/response"
)

// MatchingHandler triggers the matching engine.
type MatchingHandler struct {
	matchingSvc service.MatchingService
}

// NewMatchingHandler creates a MatchingHandler.
func NewMatchingHandler(matchingSvc service.MatchingService) *MatchingHandler {
	return &MatchingHandler{matchingSvc: matchingSvc}
}

// AutoMatch runs one auto-match sweep.
// POST /api/v1/matching/auto-match
func (h *MatchingHandler) AutoMatch(c *gin.Context) {
	result, err := h.matchingSvc.AutoMatch(c.Request.Context())
	if err != nil {
		if result != nil && result.Aborted {
			_ = c.Error(err)
			response.ErrorWithData(c, http.StatusInternalServerError, 20101, "auto match rolled back", result)
			return
		}
		h.handleMatchingError(c, err)
		return
	}

	response.OK(c, result)
}

// GenerateSuggestions runs one suggestion sweep.
// POST /api/v1/matching/suggestions/generate
func (h *MatchingHandler) GenerateSuggestions(c *gin.Context) {
	result, err := h.matchingSvc.GenerateSuggestions(c.Request.Context())
	if err != nil {
		if result != nil && result.Aborted {
			_ = c.Error(err)
			response.ErrorWithData(c, http.StatusInternalServerError, 20102, "suggestion sweep aborted", result)
			return
		}
		h.handleMatchingError(c, err)
		return
	}

	response.OK(c, result)
}

// AcceptSuggestion
// POST /api/v1/suggestions/:id/accept
func (h *MatchingHandler) AcceptSuggestion(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	resp, err := h.matchingSvc.AcceptSuggestion(c.Request.Context(), id)
	if err != nil {
		h.handleMatchingError(c, err)
		return
	}

	response.OK(c, resp)
}

// RejectSuggestion
// POST /api/v1/suggestions/:id/reject
func (h *MatchingHandler) RejectSuggestion(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.matchingSvc.RejectSuggestion(c.Request.Context(), id); err != nil {
		h.handleMatchingError(c, err)
		return
	}

	response.OK(c, dto.RejectSuggestionResponse{Success: true})
}

func (h *MatchingHandler) handleMatchingError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSuggestionNotFound):
		response.NotFound(c, 20001, err.Error())
	case errors.Is(err, service.ErrSweepInProgress):
		response.Conflict(c, 20004, err.Error())
	case errors.Is(err, service.ErrAlreadyMatched):
		response.Conflict(c, 20003, err.Error())
	case errors.Is(err, pkgerrors.ErrCapacity):
		// carries which side is full
		response.Conflict(c, 20002, err.Error())
	case errors.Is(err, pkgerrors.ErrNotFound):
		response.NotFound(c, 20010, err.Error())
	case errors.Is(err, pkgerrors.ErrConflict):
		response.Conflict(c, 20011, err.Error())
	default:
		_ = c.Error(err)
		response.InternalError(c)
	}
}
