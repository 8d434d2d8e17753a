package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	pkgerrors "github.com/yungbote/braingraph-backend/internal/pkg/errors"
)

func respond(t *testing.T, err error) (int, ErrorEnvelope) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/brains/7", nil)

	RespondFromErr(c, err)

	var env ErrorEnvelope
	if uErr := json.Unmarshal(w.Body.Bytes(), &env); uErr != nil {
		t.Fatalf("decode envelope: %v body=%s", uErr, w.Body.String())
	}
	return w.Code, env
}

func TestRespondFromErrStatusError(t *testing.T) {
	status, env := respond(t, pkgerrors.WithStatus(http.StatusConflict, "brain_exists", errors.New("name taken")))
	if status != http.StatusConflict {
		t.Fatalf("status: want=409 got=%d", status)
	}
	if env.Error.Code != "brain_exists" || env.Error.Message != "name taken" {
		t.Fatalf("envelope: got=%+v", env.Error)
	}
	if env.Error.URL != "/brains/7" {
		t.Fatalf("url: got=%q", env.Error.URL)
	}
}

func TestRespondFromErrSentinels(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("%w: no such brain", pkgerrors.ErrNotFound), http.StatusNotFound, "not_found"},
		{fmt.Errorf("%w: brain_id required", pkgerrors.ErrInvalidArgument), http.StatusBadRequest, "invalid_argument"},
		{fmt.Errorf("%w: vectors not written", pkgerrors.ErrPartialPersistence), http.StatusInternalServerError, "partial_persistence"},
		{errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		status, env := respond(t, tc.err)
		if status != tc.status || env.Error.Code != tc.code {
			t.Fatalf("%v: want=(%d,%s) got=(%d,%s)", tc.err, tc.status, tc.code, status, env.Error.Code)
		}
	}
}

func TestStatusErrorMessageFallbacks(t *testing.T) {
	if got := pkgerrors.WithStatus(http.StatusTeapot, "teapot", nil).Error(); got != "teapot" {
		t.Fatalf("code fallback: got=%q", got)
	}
	if got := (&pkgerrors.StatusError{Status: http.StatusBadGateway}).Error(); got != "http error (502)" {
		t.Fatalf("status fallback: got=%q", got)
	}
}
