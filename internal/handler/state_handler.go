package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/student-dashboard/internal/store"
	"github.com/noah-isme/student-dashboard/pkg/response"
)

type stateReader interface {
	Snapshot() store.State
	ClearError()
}

// StateHandler exposes the raw store snapshot.
type StateHandler struct {
	state stateReader
}

// NewStateHandler constructs StateHandler.
func NewStateHandler(state stateReader) *StateHandler {
	return &StateHandler{state: state}
}

// Get godoc
// @Summary Store snapshot
// @Description Returns students, courses, the loading flag, the last error, per-operation phases and the version.
// @Tags State
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /state [get]
func (h *StateHandler) Get(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.state.Snapshot())
}

// ClearError godoc
// @Summary Dismiss the current store error
// @Tags State
// @Success 204 "No Content"
// @Router /state/error [delete]
func (h *StateHandler) ClearError(c *gin.Context) {
	h.state.ClearError()
	response.NoContent(c)
}
