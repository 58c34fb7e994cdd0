package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"peerbridge/internal/service"
	pkgerrors "peerbridge/pkg/errors"
	"peerbridge/pkg/response"
)

// Handler aggregates every handler.
type Handler struct {
	Matching *MatchingHandler
	Match    *MatchHandler
	Catalog  *CatalogHandler
}

// NewHandler builds the aggregate.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Matching: NewMatchingHandler(svc.Matching),
		Match:    NewMatchHandler(svc.Match),
		Catalog:  NewCatalogHandler(svc.Catalog),
	}
}

// parseIDParam reads a positive int64 path parameter; on failure it has
// already written a 400.
func parseIDParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, 10001, "invalid "+name)
		return 0, false
	}
	return id, true
}

// handleReadError maps read-side failures by kind.
func handleReadError(c *gin.Context, err error) {
	switch pkgerrors.KindOf(err) {
	case pkgerrors.KindNotFound:
		response.NotFound(c, 20010, err.Error())
	default:
		_ = c.Error(err)
		response.InternalError(c)
	}
}
