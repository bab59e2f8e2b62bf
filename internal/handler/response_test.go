package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

func TestStatusForKind(t *testing.T) {
	cases := map[apperrors.Kind]int{
		apperrors.KindInvalidDate:         http.StatusBadRequest,
		apperrors.KindInvalidSlot:         http.StatusBadRequest,
		apperrors.KindBadRequest:          http.StatusBadRequest,
		apperrors.KindSlotTaken:           http.StatusConflict,
		apperrors.KindInvalidTransition:   http.StatusConflict,
		apperrors.KindForbiddenTransition: http.StatusForbidden,
		apperrors.KindForbidden:           http.StatusForbidden,
		apperrors.KindUnauthorized:        http.StatusUnauthorized,
		apperrors.KindNotFound:            http.StatusNotFound,
		apperrors.KindPersistence:         http.StatusServiceUnavailable,
		apperrors.KindInternal:            http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, StatusForKind(kind), "kind %s", kind)
	}
}

func TestRespondErrorHidesStorageDetail(t *testing.T) {
	gin.SetMode(gin.TestMode)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	RespondError(c, apperrors.Persistence(errors.New("dial tcp: connection refused")))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "storage temporarily unavailable")
	assert.NotContains(t, rec.Body.String(), "dial tcp")
}
