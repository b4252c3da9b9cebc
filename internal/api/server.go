// Package api serves the pool's status, metrics and live events over HTTP.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/websocket"

	"threadpool/internal/events"
	"threadpool/internal/logger"
	"threadpool/internal/metrics"
	"threadpool/internal/scenario"
	"threadpool/internal/worker"
)

// Server はAPIサーバー
type Server struct {
	addr       string
	bus        *events.Bus
	registry   *prometheus.Registry
	collectors *metrics.Collectors
	log        *logger.Logger

	mu         sync.RWMutex
	runCtx     context.Context
	engine     *scenario.Engine
	config     scenario.Config
	running    bool
	lastResult *scenario.Result
	wsClients  map[*websocket.Conn]bool

	server *http.Server
}

// NewServer は新しいAPIサーバーを作成する
func NewServer(addr string) *Server {
	registry := prometheus.NewRegistry()
	collectors := metrics.NewCollectors()
	registry.MustRegister(collectors.All()...)

	return &Server{
		addr:       addr,
		bus:        events.NewBusWithBuffer(1024),
		registry:   registry,
		collectors: collectors,
		log:        logger.Default,
		runCtx:     context.Background(),
		wsClients:  make(map[*websocket.Conn]bool),
	}
}

// SetLogger はロガーを設定する
func (s *Server) SetLogger(l *logger.Logger) {
	s.log = l
}

// Handler はルーティング済みのハンドラを返す
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// API routes
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/workers", s.handleWorkers)
	mux.HandleFunc("/api/metrics", s.handleMetrics)
	mux.HandleFunc("/api/result", s.handleResult)
	mux.HandleFunc("/api/run", s.handleRun)
	mux.HandleFunc("/api/presets", s.handlePresets)

	// WebSocket
	mux.Handle("/ws", websocket.Handler(s.handleWebSocket))

	// Prometheus
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	return mux
}

// Start はサーバーを開始する
func (s *Server) Start(ctx context.Context) error {
	// 実行中のシナリオはサーバー停止で投入を止める
	s.mu.Lock()
	s.runCtx = ctx
	s.mu.Unlock()

	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// バックグラウンドでイベントとステータスを配信
	go s.forwardEvents(ctx)
	go s.broadcastLoop(ctx)

	s.log.Info("", "API Server starting on http://%s", s.addr)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
		s.bus.Close()
	}()

	if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// StatusResponse はステータスレスポンス
type StatusResponse struct {
	Running      bool   `json:"running"`
	ScenarioName string `json:"scenario_name,omitempty"`
	RunID        string `json:"run_id,omitempty"`
	Workers      int    `json:"workers"`
	QueueSize    int    `json:"queue_size"`
	Finished     bool   `json:"finished"`
	Enqueued     uint64 `json:"enqueued"`
	Dequeued     uint64 `json:"dequeued"`
}

func (s *Server) status() StatusResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()

	resp := StatusResponse{
		Running: s.running,
	}

	if s.config.Name != "" {
		resp.ScenarioName = s.config.Name
	}

	if s.engine != nil {
		if pool := s.engine.Pool(); pool != nil {
			stats := pool.QueueStats()
			resp.RunID = pool.RunID()
			resp.Workers = pool.NumWorkers()
			resp.QueueSize = stats.Pending
			resp.Finished = stats.Finished
			resp.Enqueued = stats.Enqueued
			resp.Dequeued = stats.Dequeued
		}
	}
	return resp
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, s.status())
}

func (s *Server) handleWorkers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.mu.RLock()
	engine := s.engine
	s.mu.RUnlock()

	workers := []worker.WorkerStatus{}
	if engine != nil {
		if pool := engine.Pool(); pool != nil {
			workers = pool.Workers()
		}
	}

	s.writeJSON(w, workers)
}

// MetricsResponse はメトリクスレスポンス
type MetricsResponse struct {
	TotalJobs    uint64  `json:"total_jobs"`
	SuccessJobs  uint64  `json:"success_jobs"`
	FailedJobs   uint64  `json:"failed_jobs"`
	JPS          float64 `json:"jps"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
	P99LatencyMs float64 `json:"p99_latency_ms"`
	ErrorRate    float64 `json:"error_rate"`
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.mu.RLock()
	engine := s.engine
	s.mu.RUnlock()

	resp := MetricsResponse{}
	if engine != nil {
		if snap := engine.Metrics(); snap != nil {
			resp.TotalJobs = snap.TotalJobs
			resp.SuccessJobs = snap.SuccessJobs
			resp.FailedJobs = snap.FailedJobs
			resp.JPS = snap.JPS
			resp.AvgLatencyMs = float64(snap.AverageLatency) / float64(time.Millisecond)
			resp.P99LatencyMs = float64(snap.P99Latency) / float64(time.Millisecond)
			resp.ErrorRate = snap.ErrorRate
		}
	}

	s.writeJSON(w, resp)
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.mu.RLock()
	result := s.lastResult
	s.mu.RUnlock()

	if result == nil {
		http.Error(w, "No completed run", http.StatusNotFound)
		return
	}
	s.writeJSON(w, result)
}

// RunRequest はシナリオ開始リクエスト
type RunRequest struct {
	Preset  string `json:"preset"`
	Workers int    `json:"workers,omitempty"`
	Jobs    *int   `json:"jobs,omitempty"`
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	// プリセット取得（未指定ならreference）
	config := scenario.ReferenceScenario()
	if req.Preset != "" {
		preset, ok := scenario.GetPreset(req.Preset)
		if !ok {
			http.Error(w, fmt.Sprintf("Unknown preset: %s", req.Preset), http.StatusBadRequest)
			return
		}
		config = preset
	}

	// オーバーライド
	if req.Workers > 0 {
		config.Workers = req.Workers
	}
	if req.Jobs != nil {
		config.Jobs = *req.Jobs
	}
	if err := config.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		http.Error(w, "Scenario already running", http.StatusConflict)
		return
	}

	engine := scenario.New(config)
	engine.SetEventBus(s.bus)
	engine.SetCollectors(s.collectors)
	engine.SetLogger(s.log)

	s.config = config
	s.engine = engine
	s.running = true
	ctx := s.runCtx
	s.mu.Unlock()

	// バックグラウンドで実行
	go func() {
		result, err := engine.Run(ctx)

		s.mu.Lock()
		s.running = false
		if err == nil {
			s.lastResult = result
		}
		s.mu.Unlock()

		if err != nil {
			s.log.Error("", "Scenario failed: %v", err)
		} else {
			s.log.Info("", "Scenario completed: %d jobs executed", result.JobsExecuted)
		}

		s.broadcast(map[string]any{
			"type":   "scenario_complete",
			"result": result,
		})
	}()

	s.writeJSONStatus(w, http.StatusAccepted, map[string]string{"status": "started", "scenario": config.Name})
}

func (s *Server) handlePresets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.writeJSON(w, scenario.Presets())
}

// WebSocket handling
func (s *Server) handleWebSocket(ws *websocket.Conn) {
	s.mu.Lock()
	s.wsClients[ws] = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.wsClients, ws)
		s.mu.Unlock()
		_ = ws.Close()
	}()

	// Keep connection alive
	for {
		var msg string
		if err := websocket.Message.Receive(ws, &msg); err != nil {
			break
		}
	}
}

func (s *Server) broadcast(data any) {
	s.mu.RLock()
	clients := make([]*websocket.Conn, 0, len(s.wsClients))
	for ws := range s.wsClients {
		clients = append(clients, ws)
	}
	s.mu.RUnlock()

	jsonData, err := json.Marshal(data)
	if err != nil {
		return
	}

	for _, ws := range clients {
		_ = websocket.Message.Send(ws, string(jsonData))
	}
}

// forwardEvents はプールのイベントをWebSocketクライアントに転送する
func (s *Server) forwardEvents(ctx context.Context) {
	ch := s.bus.Subscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			s.broadcast(map[string]any{
				"type":  "event",
				"event": ev,
			})
		}
	}
}

func (s *Server) broadcastLoop(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			status := s.status()
			if !status.Running {
				continue
			}

			s.broadcast(map[string]any{
				"type":   "status",
				"status": status,
			})
		}
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, data any) {
	s.writeJSONStatus(w, http.StatusOK, data)
}

func (s *Server) writeJSONStatus(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error("", "Failed to encode JSON: %v", err)
	}
}
