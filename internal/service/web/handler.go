package web

import (
	"encoding/json"
	"net/http"

	"pathprobe/internal/shared/globalstate"
	"pathprobe/internal/shared/types"
)

// Handler serves the JSON monitoring API.
type Handler struct {
	cfg     *types.Config
	metrics *types.Metrics
	hub     *Hub
}

func NewHandler(cfg *types.Config, metrics *types.Metrics, hub *Hub) *Handler {
	return &Handler{
		cfg:     cfg,
		metrics: metrics,
		hub:     hub,
	}
}

// StatusResponse is the body of GET /api/status.
type StatusResponse struct {
	GlobalStatus  string                `json:"globalStatus"`
	StatusSeconds int64                 `json:"statusSeconds"`
	Port          int                   `json:"port"`
	Root          string                `json:"root"`
	Framing       string                `json:"framing"`
	Monitors      int                   `json:"monitors"`
	Metrics       types.MetricsSnapshot `json:"metrics"`
}

// HandleStatus 处理 GET /api/status 请求
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := StatusResponse{
		GlobalStatus:  globalstate.GlobalStatus.Get(),
		StatusSeconds: int64(globalstate.GlobalStatus.Since().Seconds()),
		Port:          h.cfg.LocalConf.Port,
		Root:          h.cfg.ProbeConf.Root,
		Framing:       h.cfg.ProbeConf.Framing,
		Monitors:      h.hub.ClientCount(),
		Metrics:       h.metrics.Snapshot(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}
