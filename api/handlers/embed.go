package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/vectorflow/embedbatch/api"
	"github.com/vectorflow/embedbatch/types"
)

// coordinator is the narrow interface EmbedHandler depends on, matched
// structurally by *batch.Coordinator.
type coordinator interface {
	Submit(ctx context.Context, inputs []string) ([][]float64, error)
}

// =============================================================================
// 🎯 嵌入请求 Handler
// =============================================================================

// EmbedHandler handles POST /embed: it decodes the caller's inputs, submits
// them to the batching coordinator, and writes back the resulting embeddings
// or a mapped error.
type EmbedHandler struct {
	coordinator coordinator
	logger      *zap.Logger
}

// NewEmbedHandler creates an embedding request handler.
func NewEmbedHandler(c coordinator, logger *zap.Logger) *EmbedHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmbedHandler{coordinator: c, logger: logger}
}

// HandleEmbed 处理 /embed 请求
// @Summary 批量嵌入
// @Description 提交一组输入文本，返回对齐的嵌入向量
// @Tags 嵌入
// @Accept json
// @Produce json
// @Success 200 {array} []float64 "嵌入向量，与 inputs 按位置对齐"
// @Failure 400 {object} Response
// @Failure 413 {object} Response
// @Failure 502 {object} Response
// @Failure 503 {object} Response
// @Router /embed [post]
func (h *EmbedHandler) HandleEmbed(w http.ResponseWriter, r *http.Request) {
	var req api.EmbedRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	if len(req.Inputs) == 0 {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrBadRequest, "inputs must not be empty", h.logger)
		return
	}

	embeddings, err := h.coordinator.Submit(r.Context(), req.Inputs)
	if err != nil {
		if apiErr, ok := err.(*types.Error); ok {
			WriteError(w, apiErr, h.logger)
			return
		}
		WriteErrorMessage(w, http.StatusInternalServerError, types.ErrUpstream, err.Error(), h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, embeddings)
}
