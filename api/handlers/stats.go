package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/vectorflow/embedbatch/api"
	"github.com/vectorflow/embedbatch/batch"
)

// statsSource is the narrow interface StatsHandler depends on, matched
// structurally by *batch.Coordinator.
type statsSource interface {
	Stats() batch.Stats
}

// =============================================================================
// 📊 运行统计 Handler
// =============================================================================

// StatsHandler handles GET /stats: a point-in-time dump of the batching
// coordinator's counters.
type StatsHandler struct {
	source statsSource
	logger *zap.Logger
}

// NewStatsHandler creates a stats handler.
func NewStatsHandler(s statsSource, logger *zap.Logger) *StatsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatsHandler{source: s, logger: logger}
}

// HandleStats 处理 /stats 请求
// @Summary 运行统计
// @Description 返回批处理协调器的计数器快照
// @Tags 统计
// @Produce json
// @Success 200 {object} api.StatsResponse
// @Router /stats [get]
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	s := h.source.Stats()
	WriteSuccess(w, api.StatsResponse{
		Submitted:   s.Submitted,
		Dispatched:  s.Dispatched,
		CacheHits:   s.CacheHits,
		CacheMisses: s.CacheMisses,
		Failed:      s.Failed,
		Queued:      s.Queued,
	})
}
