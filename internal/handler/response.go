package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Kind    string      `json:"kind,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Status: "success",
		Data:   data,
	}
}

func NewErrorResponse(message string) *Response {
	return &Response{
		Status:  "error",
		Message: message,
	}
}

// RespondError renders an application error with the status its kind maps
// to. Storage failures keep their detail out of the response body.
func RespondError(c *gin.Context, err error) {
	kind := apperrors.KindOf(err)
	status := StatusForKind(kind)

	message := err.Error()
	if status >= http.StatusInternalServerError {
		message = "internal server error"
		if kind == apperrors.KindPersistence {
			message = "storage temporarily unavailable"
		}
	}

	c.JSON(status, &Response{
		Status:  "error",
		Message: message,
		Kind:    string(kind),
	})
}

// StatusForKind maps application error kinds to HTTP status codes.
func StatusForKind(kind apperrors.Kind) int {
	switch kind {
	case apperrors.KindInvalidDate, apperrors.KindInvalidSlot, apperrors.KindBadRequest:
		return http.StatusBadRequest
	case apperrors.KindSlotTaken, apperrors.KindInvalidTransition:
		return http.StatusConflict
	case apperrors.KindForbiddenTransition, apperrors.KindForbidden:
		return http.StatusForbidden
	case apperrors.KindUnauthorized:
		return http.StatusUnauthorized
	case apperrors.KindNotFound:
		return http.StatusNotFound
	case apperrors.KindPersistence:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
