package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/braingraph-backend/internal/data/graph"
	"github.com/yungbote/braingraph-backend/internal/http/response"
	"github.com/yungbote/braingraph-backend/internal/platform/logger"
	"github.com/yungbote/braingraph-backend/internal/platform/qdrant"
	"github.com/yungbote/braingraph-backend/internal/repos"
	"github.com/yungbote/braingraph-backend/internal/types"
)

type BrainHandler struct {
	log    *logger.Logger
	brains repos.BrainRepo
	store  graph.Store
	index  qdrant.Index
}

func NewBrainHandler(log *logger.Logger, brains repos.BrainRepo, store graph.Store, index qdrant.Index) *BrainHandler {
	return &BrainHandler{log: log, brains: brains, store: store, index: index}
}

type brainReq struct {
	BrainName      string `json:"brain_name"`
	IsImportant    bool   `json:"is_important"`
	DeploymentType string `json:"deployment_type"`
}

// POST /brains
func (h *BrainHandler) Create(c *gin.Context) {
	var req brainReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if strings.TrimSpace(req.BrainName) == "" {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", fmt.Errorf("brain_name is required"))
		return
	}
	deployment := req.DeploymentType
	if deployment == "" {
		deployment = "local"
	}
	brain, err := h.brains.Create(c.Request.Context(), nil, &types.Brain{
		BrainName:      req.BrainName,
		IsImportant:    req.IsImportant,
		DeploymentType: deployment,
	})
	if err != nil {
		response.RespondFromErr(c, err)
		return
	}
	response.RespondOK(c, brain)
}

// GET /brains
func (h *BrainHandler) List(c *gin.Context) {
	brains, err := h.brains.List(c.Request.Context(), nil)
	if err != nil {
		response.RespondFromErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"brains": brains})
}

// GET /brains/:brain_id
func (h *BrainHandler) Get(c *gin.Context) {
	brainID, err := parseUintParam(c, "brain_id")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_brain_id", err)
		return
	}
	brain, err := h.brains.GetByID(c.Request.Context(), nil, brainID)
	if err != nil {
		response.RespondFromErr(c, err)
		return
	}
	response.RespondOK(c, brain)
}

// PUT /brains/:brain_id
func (h *BrainHandler) Update(c *gin.Context) {
	brainID, err := parseUintParam(c, "brain_id")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_brain_id", err)
		return
	}
	var req brainReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	brain, err := h.brains.GetByID(c.Request.Context(), nil, brainID)
	if err != nil {
		response.RespondFromErr(c, err)
		return
	}
	if strings.TrimSpace(req.BrainName) != "" {
		brain.BrainName = req.BrainName
	}
	brain.IsImportant = req.IsImportant
	if req.DeploymentType != "" {
		brain.DeploymentType = req.DeploymentType
	}
	if err := h.brains.Update(c.Request.Context(), nil, brain); err != nil {
		response.RespondFromErr(c, err)
		return
	}
	response.RespondOK(c, brain)
}

// DELETE /brains/:brain_id
//
// Removes the metadata rows first, then the graph subtree and the vector
// collection. Store failures after the metadata delete are logged and
// surfaced; the metadata delete is not rolled back.
func (h *BrainHandler) Delete(c *gin.Context) {
	brainID, err := parseUintParam(c, "brain_id")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_brain_id", err)
		return
	}
	ctx := c.Request.Context()
	if _, err := h.brains.GetByID(ctx, nil, brainID); err != nil {
		response.RespondFromErr(c, err)
		return
	}
	if err := h.brains.Delete(ctx, nil, brainID); err != nil {
		response.RespondFromErr(c, err)
		return
	}
	key := graph.BrainKey(brainID)
	if err := h.store.DeleteByBrain(ctx, key); err != nil {
		h.log.Error("brain graph cascade failed", "brain_id", brainID, "error", err)
		response.RespondFromErr(c, err)
		return
	}
	if err := h.index.DeleteCollection(ctx, key); err != nil {
		h.log.Error("brain collection cascade failed", "brain_id", brainID, "error", err)
		response.RespondFromErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"deleted": brainID})
}

// DELETE /brains/:brain_id/deleteDB/:source_id
//
// Drops everything a source contributed to the graph and the vector
// collection. The source row itself is deleted by the per-kind endpoint.
func (h *BrainHandler) DeleteSourceData(c *gin.Context) {
	brainID, err := parseUintParam(c, "brain_id")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_brain_id", err)
		return
	}
	sourceID, err := parseUintParam(c, "source_id")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_source_id", err)
		return
	}
	ctx := c.Request.Context()
	key := graph.BrainKey(brainID)
	sid := strconv.FormatUint(uint64(sourceID), 10)

	if err := h.store.DeleteBySource(ctx, key, sid); err != nil {
		response.RespondFromErr(c, err)
		return
	}
	if err := h.index.DeleteBySource(ctx, key, sid); err != nil {
		h.log.Error("vector source cascade failed", "brain_id", brainID, "source_id", sourceID, "error", err)
		response.RespondFromErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"brain_id": brainID, "source_id": sourceID})
}
