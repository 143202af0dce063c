// Package handlers implements the HTTP handlers of the odds radar API. Every
// handler answers with the same envelope: {success, data, error, timestamp}.
package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/irfndi/oddsradar-go/internal/arbitrage"
	"github.com/irfndi/oddsradar-go/internal/middleware"
	"github.com/irfndi/oddsradar-go/internal/utils"
)

// Response is the envelope shared by all API responses.
type Response struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

func respond(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Response{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, Response{
		Success:   false,
		Error:     message,
		Timestamp: time.Now().UTC(),
	})
}

// respondErr maps domain errors to status codes. Anything unrecognized is a
// 500 with a generic message; the cause goes to the request log and span.
func respondErr(c *gin.Context, err error, fallback string) {
	switch {
	case utils.IsValidationError(err), errors.Is(err, arbitrage.ErrInvalidInput):
		respondError(c, http.StatusBadRequest, err.Error())
	case utils.IsNotFoundError(err):
		respondError(c, http.StatusNotFound, err.Error())
	case utils.IsConflictError(err):
		respondError(c, http.StatusConflict, err.Error())
	default:
		_ = c.Error(err)
		middleware.RecordError(c, err, fallback)
		respondError(c, http.StatusInternalServerError, fallback)
	}
}

// idParam returns the :id path parameter, rejecting anything that is not a
// UUID before it reaches the database.
func idParam(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid id")
		return "", false
	}
	return id, true
}
