package echoapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/examguard/core"
	"github.com/trezcool/examguard/core/exam"
	"github.com/trezcool/examguard/tests"
)

func Test_appHTTPErrorHandler_shutdown(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		wantCode     int
		wantShutdown bool
	}{
		{
			name:         "database gone",
			err:          errors.Wrap(core.NewShutdownError("querying roster: sql: database is closed"), "overview"),
			wantCode:     http.StatusInternalServerError,
			wantShutdown: true,
		},
		{name: "other server error", err: errors.New("boom"), wantCode: http.StatusInternalServerError},
		{name: "domain error", err: errors.Wrap(exam.ErrAttemptNotFound, "getting attempt"), wantCode: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var shutdown bool
			handle := newAppHTTPErrorHandler(testutil.NopLogger{}, core.NewTranslator(), func() { shutdown = true })

			e := echo.New()
			rec := httptest.NewRecorder()
			handle(tt.err, e.NewContext(httptest.NewRequest(http.MethodGet, "/v1/attempts/1", nil), rec))

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantShutdown, shutdown)
		})
	}
}
