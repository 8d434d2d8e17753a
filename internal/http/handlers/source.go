package handlers

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/braingraph-backend/internal/http/response"
	"github.com/yungbote/braingraph-backend/internal/ingestion/parser"
	"github.com/yungbote/braingraph-backend/internal/observability"
	"github.com/yungbote/braingraph-backend/internal/platform/envutil"
	"github.com/yungbote/braingraph-backend/internal/platform/logger"
	"github.com/yungbote/braingraph-backend/internal/repos"
	"github.com/yungbote/braingraph-backend/internal/types"
)

type SourceHandler struct {
	log     *logger.Logger
	sources repos.SourceRepo
}

func NewSourceHandler(log *logger.Logger, sources repos.SourceRepo) *SourceHandler {
	return &SourceHandler{log: log, sources: sources}
}

func uploadDir(kind string) string {
	root := envutil.String("UPLOAD_DIR", "uploaded_files")
	return filepath.Join(root, "uploaded_"+kind)
}

// Upload handles the multipart upload route for one file-backed kind. The
// stored filename is UUID-prefixed so repeated uploads of the same document
// never collide; text is extracted immediately and persisted with the row.
func (h *SourceHandler) Upload(kind string) gin.HandlerFunc {
	return func(c *gin.Context) {
		brainID, err := parseUintForm(c, "brain_id")
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_brain_id", err)
			return
		}
		file, err := c.FormFile("file")
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_request", fmt.Errorf("file is required: %v", err))
			return
		}

		dir := uploadDir(kind)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			observability.Current().IncIngestSource(kind, "error")
			response.RespondError(c, http.StatusInternalServerError, "storage_error", err)
			return
		}
		stored := filepath.Join(dir, uuid.NewString()+"_"+filepath.Base(file.Filename))
		if err := c.SaveUploadedFile(file, stored); err != nil {
			observability.Current().IncIngestSource(kind, "error")
			response.RespondError(c, http.StatusInternalServerError, "storage_error", err)
			return
		}

		text, err := parser.ExtractText(kind, stored)
		if err != nil {
			observability.Current().IncIngestSource(kind, "error")
			response.RespondFromErr(c, err)
			return
		}

		title := strings.TrimSpace(c.PostForm("title"))
		if title == "" {
			title = file.Filename
		}
		rec, err := h.sources.Create(c.Request.Context(), nil, &types.SourceRecord{
			Title:   title,
			Content: text,
			Path:    stored,
			Kind:    kind,
			BrainID: brainID,
		})
		if err != nil {
			observability.Current().IncIngestSource(kind, "error")
			response.RespondFromErr(c, err)
			return
		}
		observability.Current().IncIngestSource(kind, "ok")
		h.log.Info("source uploaded", "kind", kind, "source_id", rec.ID, "brain_id", brainID)
		response.RespondOK(c, rec)
	}
}

type memoReq struct {
	Title    string `json:"memo_title"`
	Content  string `json:"memo_text"`
	BrainID  uint   `json:"brain_id"`
	IsSource bool   `json:"is_source"`
}

// POST /memos
func (h *SourceHandler) CreateMemo(c *gin.Context) {
	var req memoReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if req.BrainID == 0 || strings.TrimSpace(req.Title) == "" {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", fmt.Errorf("memo_title and brain_id are required"))
		return
	}
	rec, err := h.sources.Create(c.Request.Context(), nil, &types.SourceRecord{
		Title:   req.Title,
		Content: req.Content,
		Kind:    types.SourceKindMemo,
		BrainID: req.BrainID,
	})
	if err != nil {
		response.RespondFromErr(c, err)
		return
	}
	observability.Current().IncIngestSource(types.SourceKindMemo, "ok")
	response.RespondOK(c, rec)
}

// List handles GET /{kind}s?brain_id=.
func (h *SourceHandler) List(kind string) gin.HandlerFunc {
	return func(c *gin.Context) {
		brainID, err := parseUintQuery(c, "brain_id")
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_brain_id", err)
			return
		}
		recs, err := h.sources.ListByBrain(c.Request.Context(), nil, brainID, kind)
		if err != nil {
			response.RespondFromErr(c, err)
			return
		}
		response.RespondOK(c, gin.H{"sources": recs})
	}
}

// Get handles GET /{kind}s/:id.
func (h *SourceHandler) Get(kind string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := parseUintParam(c, "id")
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_id", err)
			return
		}
		rec, err := h.sources.Get(c.Request.Context(), nil, kind, id)
		if err != nil {
			response.RespondFromErr(c, err)
			return
		}
		response.RespondOK(c, rec)
	}
}

type updateSourceReq struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Update handles PUT /{kind}s/:id.
func (h *SourceHandler) Update(kind string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := parseUintParam(c, "id")
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_id", err)
			return
		}
		var req updateSourceReq
		if err := c.ShouldBindJSON(&req); err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
			return
		}
		if err := h.sources.UpdateText(c.Request.Context(), nil, kind, id, req.Title, req.Content); err != nil {
			response.RespondFromErr(c, err)
			return
		}
		rec, err := h.sources.Get(c.Request.Context(), nil, kind, id)
		if err != nil {
			response.RespondFromErr(c, err)
			return
		}
		response.RespondOK(c, rec)
	}
}

// Delete handles DELETE /{kind}s/:id. The stored file is removed best
// effort after the row; derived graph/vector data is cascaded through
// the brain deleteDB route.
func (h *SourceHandler) Delete(kind string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := parseUintParam(c, "id")
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_id", err)
			return
		}
		ctx := c.Request.Context()
		rec, err := h.sources.Get(ctx, nil, kind, id)
		if err != nil {
			response.RespondFromErr(c, err)
			return
		}
		if err := h.sources.Delete(ctx, nil, kind, id); err != nil {
			response.RespondFromErr(c, err)
			return
		}
		if rec.Path != "" {
			if err := os.Remove(rec.Path); err != nil && !os.IsNotExist(err) {
				h.log.Warn("stored file removal failed", "path", rec.Path, "error", err)
			}
		}
		response.RespondOK(c, gin.H{"deleted": id})
	}
}

func parseUintForm(c *gin.Context, name string) (uint, error) {
	v := strings.TrimSpace(c.PostForm(name))
	n, err := parseUintString(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, v)
	}
	return n, nil
}
