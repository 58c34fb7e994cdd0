package handler

import (
	"github.com/gin-gonic/gin"

	"peerbridge/internal/dto"
	"peerbridge/internal/service"
	"peerbridge/pkg/response"
)

// MatchHandler tutor and tutee dashboards: matches and suggestions.
type MatchHandler struct {
	matchSvc service.MatchService
}

// NewMatchHandler creates a MatchHandler.
func NewMatchHandler(matchSvc service.MatchService) *MatchHandler {
	return &MatchHandler{matchSvc: matchSvc}
}

// ListTutorMatches
// GET /api/v1/tutors/:id/matches
func (h *MatchHandler) ListTutorMatches(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	list, err := h.matchSvc.ListForTutor(c.Request.Context(), id)
	if err != nil {
		handleReadError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// ListTuteeMatches
// GET /api/v1/tutees/:id/matches
func (h *MatchHandler) ListTuteeMatches(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	list, err := h.matchSvc.ListForTutee(c.Request.Context(), id)
	if err != nil {
		handleReadError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// ListTutorSuggestions
// GET /api/v1/tutors/:id/suggestions?status=
func (h *MatchHandler) ListTutorSuggestions(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req dto.SuggestionListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "status must be pending, accepted or rejected")
		return
	}

	list, err := h.matchSvc.ListSuggestionsForTutor(c.Request.Context(), id, req.GetStatus())
	if err != nil {
		handleReadError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// ListTuteeSuggestions
// GET /api/v1/tutees/:id/suggestions?status=
func (h *MatchHandler) ListTuteeSuggestions(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req dto.SuggestionListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "status must be pending, accepted or rejected")
		return
	}

	list, err := h.matchSvc.ListSuggestionsForTutee(c.Request.Context(), id, req.GetStatus())
	if err != nil {
		handleReadError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}
