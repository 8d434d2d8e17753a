package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	pkgerrors "github.com/yungbote/braingraph-backend/internal/pkg/errors"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	URL     string `json:"url,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
			URL:     c.Request.URL.RequestURI(),
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// RespondFromErr maps an error to the envelope: a StatusError carries its own
// status/code, sentinels map to client errors, anything else is a 500.
func RespondFromErr(c *gin.Context, err error) {
	var se *pkgerrors.StatusError
	switch {
	case errors.As(err, &se):
		RespondError(c, se.Status, se.Code, se.Err)
	case errors.Is(err, pkgerrors.ErrInvalidArgument):
		RespondError(c, http.StatusBadRequest, "invalid_argument", err)
	case errors.Is(err, pkgerrors.ErrNotFound):
		RespondError(c, http.StatusNotFound, "not_found", err)
	case errors.Is(err, pkgerrors.ErrPartialPersistence):
		RespondError(c, http.StatusInternalServerError, "partial_persistence", err)
	case errors.Is(err, pkgerrors.ErrExtraction):
		RespondError(c, http.StatusInternalServerError, "extraction_failed", err)
	case errors.Is(err, pkgerrors.ErrGraphStore):
		RespondError(c, http.StatusInternalServerError, "graph_store_error", err)
	case errors.Is(err, pkgerrors.ErrVectorStore):
		RespondError(c, http.StatusInternalServerError, "vector_store_error", err)
	case errors.Is(err, pkgerrors.ErrMetadataStore):
		RespondError(c, http.StatusInternalServerError, "metadata_store_error", err)
	case errors.Is(err, pkgerrors.ErrLLM):
		RespondError(c, http.StatusInternalServerError, "llm_error", err)
	default:
		RespondError(c, http.StatusInternalServerError, "internal_error", err)
	}
}
