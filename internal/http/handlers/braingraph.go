package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/braingraph-backend/internal/data/graph"
	"github.com/yungbote/braingraph-backend/internal/http/response"
	"github.com/yungbote/braingraph-backend/internal/ingestion/pipeline"
	"github.com/yungbote/braingraph-backend/internal/llm"
	"github.com/yungbote/braingraph-backend/internal/modules/answer"
)

type BrainGraphHandler struct {
	pipe     pipeline.Pipeline
	answers  answer.Service
	store    graph.Store
	adapters answer.AdapterFactory
}

func NewBrainGraphHandler(pipe pipeline.Pipeline, answers answer.Service, store graph.Store, adapters answer.AdapterFactory) *BrainGraphHandler {
	return &BrainGraphHandler{pipe: pipe, answers: answers, store: store, adapters: adapters}
}

type processTextReq struct {
	Text     string `json:"text"`
	BrainID  uint   `json:"brain_id"`
	SourceID uint   `json:"source_id"`
	Model    string `json:"model"`
}

// POST /brainGraph/process_text
//
// An empty model selects the deterministic rule extractor; a model name
// selects LLM extraction on that backend.
func (h *BrainGraphHandler) ProcessText(c *gin.Context) {
	var req processTextReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if req.BrainID == 0 || req.SourceID == 0 {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", fmt.Errorf("brain_id and source_id are required"))
		return
	}

	mode := pipeline.ModeRule
	var adapter llm.Adapter
	if strings.TrimSpace(req.Model) != "" {
		backend, err := llm.ParseBackend(req.Model)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_model", err)
			return
		}
		adapter, err = h.adapters(backend, "")
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_model", err)
			return
		}
		mode = pipeline.ModeLLM
	}

	summary, err := h.pipe.Process(
		c.Request.Context(),
		graph.BrainKey(req.BrainID),
		strconv.FormatUint(uint64(req.SourceID), 10),
		req.Text,
		mode,
		adapter,
	)
	if err != nil {
		response.RespondFromErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{
		"nodes":  summary.Nodes,
		"edges":  summary.Edges,
		"points": summary.Points,
	})
}

type answerReq struct {
	Question      string `json:"question"`
	SessionID     uint   `json:"session_id"`
	BrainID       uint   `json:"brain_id"`
	Model         string `json:"model"`
	ModelName     string `json:"model_name"`
	UseDeepSearch bool   `json:"use_deep_search"`
}

// POST /brainGraph/answer
func (h *BrainGraphHandler) Answer(c *gin.Context) {
	var req answerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if req.SessionID == 0 || req.BrainID == 0 {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", fmt.Errorf("session_id and brain_id are required"))
		return
	}
	backend, err := llm.ParseBackend(req.Model)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_model", err)
		return
	}

	resp, err := h.answers.Answer(c.Request.Context(), answer.Request{
		Question:      req.Question,
		SessionID:     req.SessionID,
		BrainID:       req.BrainID,
		Backend:       backend,
		ModelName:     req.ModelName,
		UseDeepSearch: req.UseDeepSearch,
	})
	if err != nil {
		response.RespondFromErr(c, err)
		return
	}
	response.RespondOK(c, resp)
}

// GET /brainGraph/getNodeEdge/:brain_id
func (h *BrainGraphHandler) GetNodeEdge(c *gin.Context) {
	brainID, err := parseUintParam(c, "brain_id")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_brain_id", err)
		return
	}
	projection, err := h.store.GetGraph(c.Request.Context(), graph.BrainKey(brainID))
	if err != nil {
		response.RespondFromErr(c, err)
		return
	}
	response.RespondOK(c, projection)
}

// GET /brainGraph/getSourceIds?node_name=&brain_id=
func (h *BrainGraphHandler) GetSourceIDs(c *gin.Context) {
	nodeName := strings.TrimSpace(c.Query("node_name"))
	if nodeName == "" {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", fmt.Errorf("node_name is required"))
		return
	}
	brainID, err := parseUintQuery(c, "brain_id")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_brain_id", err)
		return
	}
	ids, err := h.store.GetSourceIDsByNode(c.Request.Context(), nodeName, graph.BrainKey(brainID))
	if err != nil {
		response.RespondFromErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"source_ids": ids})
}

// GET /brainGraph/getNodesBySourceId?source_id=&brain_id=
func (h *BrainGraphHandler) GetNodesBySourceID(c *gin.Context) {
	sourceID := strings.TrimSpace(c.Query("source_id"))
	if sourceID == "" {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", fmt.Errorf("source_id is required"))
		return
	}
	brainID, err := parseUintQuery(c, "brain_id")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_brain_id", err)
		return
	}
	names, err := h.store.GetNodesBySource(c.Request.Context(), graph.BrainKey(brainID), sourceID)
	if err != nil {
		response.RespondFromErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"nodes": names})
}

func parseUintString(v string) (uint, error) {
	n, err := strconv.ParseUint(v, 10, 32)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("not a positive integer: %q", v)
	}
	return uint(n), nil
}

func parseUintParam(c *gin.Context, name string) (uint, error) {
	n, err := parseUintString(c.Param(name))
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, c.Param(name))
	}
	return n, nil
}

func parseUintQuery(c *gin.Context, name string) (uint, error) {
	v := strings.TrimSpace(c.Query(name))
	n, err := parseUintString(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, v)
	}
	return n, nil
}
