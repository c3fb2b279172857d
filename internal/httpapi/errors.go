package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Leganyst/reservation-platform/internal/apperror"
)

// ErrorBody — тело ответа с ошибкой.
type ErrorBody struct {
	Error  string `json:"error"`
	Kind   string `json:"kind,omitempty"`
	Field  string `json:"field,omitempty"`
	Status string `json:"status,omitempty"`
	Date   string `json:"date,omitempty"`
}

var kindStatus = map[apperror.Kind]int{
	apperror.KindInvalidDateRange:    http.StatusBadRequest,
	apperror.KindInvalidRequest:      http.StatusBadRequest,
	apperror.KindImmutableField:      http.StatusBadRequest,
	apperror.KindCapacityExceeded:    http.StatusUnprocessableEntity,
	apperror.KindSlotNotFound:        http.StatusUnprocessableEntity,
	apperror.KindResourceUnavailable: http.StatusConflict,
	apperror.KindSlotConflict:        http.StatusConflict,
	apperror.KindInvalidTransition:   http.StatusConflict,
	apperror.KindNotFound:            http.StatusNotFound,
	apperror.KindPermissionDenied:    http.StatusForbidden,
}

func (s *Server) writeError(c *gin.Context, err error) {
	if ae, ok := apperror.As(err); ok {
		code, ok := kindStatus[ae.Kind]
		if !ok {
			code = http.StatusBadRequest
		}
		c.AbortWithStatusJSON(code, ErrorBody{
			Error:  ae.Error(),
			Kind:   string(ae.Kind),
			Field:  ae.Field,
			Status: ae.Status,
			Date:   ae.Date,
		})
		return
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, ErrorBody{Error: err.Error()})
		return
	}

	s.log.WithError(err).WithField("path", c.FullPath()).Error("request failed")
	c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorBody{Error: "internal error"})
}

func badRequest(c *gin.Context, field string, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorBody{
		Error: err.Error(),
		Kind:  string(apperror.KindInvalidRequest),
		Field: field,
	})
}
