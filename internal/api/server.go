package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"trustpay/internal/alerts"
	"trustpay/internal/config"
	"trustpay/internal/engine"
	"trustpay/internal/ingest"
	"trustpay/internal/model"
	"trustpay/internal/normalize"
	"trustpay/internal/stats"
	"trustpay/internal/storage"
)

// PipelineControl is what the admin and scoring endpoints need from the
// pipeline.
type PipelineControl interface {
	Reset()
	UpdateConfig(cfg *config.Config) error
	AssessWithStoredHistory(tx model.Transaction) (model.RiskAssessment, error)
	SetAccountTimezone(account, tz string) error
}

type Server struct {
	cfg      *config.Manager
	alerts   *alerts.Store
	stats    *stats.Store
	pipeline PipelineControl
	store    storage.Store
	logger   *slog.Logger
	version  string
}

type statusResponse struct {
	Status     string        `json:"status"`
	Time       string        `json:"time"`
	Version    string        `json:"version"`
	ConfigPath string        `json:"config_path"`
	Scoring    scoringStatus `json:"scoring"`
	Ingest     ingestStatus  `json:"ingest"`
	Alerts     int           `json:"alerts"`
}

type scoringStatus struct {
	VelocityWindow    string  `json:"velocity_window"`
	VelocityThreshold int     `json:"velocity_threshold"`
	AmountMultiplier  float64 `json:"amount_multiplier"`
}

type ingestStatus struct {
	REST      bool `json:"rest"`
	TCPStream bool `json:"tcp_stream"`
	FileTail  bool `json:"file_tail"`
	Kafka     bool `json:"kafka"`
}

func Start(ctx context.Context, cfg *config.Manager, alertsStore *alerts.Store, statsStore *stats.Store, pipeline PipelineControl, store storage.Store, logger *slog.Logger, version string) *http.Server {
	if cfg == nil {
		return nil
	}
	current := cfg.Get().API
	if !current.Enabled {
		if logger != nil {
			logger.Info("api disabled")
		}
		return nil
	}
	if logger != nil {
		logger.Info("api enabled", "addr", current.Addr)
	}
	server := &Server{
		cfg:      cfg,
		alerts:   alertsStore,
		stats:    statsStore,
		pipeline: pipeline,
		store:    store,
		logger:   logger,
		version:  version,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/status", server.handleStatus)
	mux.HandleFunc("/alerts", server.handleAlerts)
	mux.HandleFunc("/alerts/", server.handleAlertStatus)
	mux.HandleFunc("/stats", server.handleStats)
	mux.HandleFunc("/stats/", server.handleStats)
	mux.HandleFunc("/assess", server.handleAssess)
	mux.HandleFunc("/accounts/", server.handleAccountTimezone)
	mux.HandleFunc("/config/scoring", server.handleScoringConfig)
	mux.HandleFunc("/admin/clear", server.handleClear)

	httpServer := &http.Server{Addr: current.Addr, Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(ctxShutdown)
	}()
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if logger != nil {
				logger.Error("api server error", "err", err)
			}
		}
	}()
	return httpServer
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	cfg := s.cfg.Get()
	resp := statusResponse{
		Status:     "ok",
		Time:       time.Now().UTC().Format(time.RFC3339Nano),
		Version:    s.version,
		ConfigPath: s.cfg.Path(),
		Scoring: scoringStatus{
			VelocityWindow:    cfg.Scoring.VelocityWindow.String(),
			VelocityThreshold: cfg.Scoring.VelocityThreshold,
			AmountMultiplier:  cfg.Scoring.AmountMultiplier,
		},
		Ingest: ingestStatus{
			REST:      cfg.Ingest.REST.Enabled,
			TCPStream: cfg.Ingest.TCPStream.Enabled,
			FileTail:  cfg.Ingest.FileTail.Enabled,
			Kafka:     cfg.Ingest.Kafka.Enabled,
		},
		Alerts: s.alerts.Len(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	status := model.AlertStatus(r.URL.Query().Get("status"))
	severity := model.Severity(r.URL.Query().Get("severity"))
	var list []model.AlertRecord
	if sinceStr := r.URL.Query().Get("since"); sinceStr != "" {
		ts, err := time.Parse(time.RFC3339, sinceStr)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		list = s.alerts.Since(ts, status, severity)
	} else {
		list = s.alerts.List(limit, status, severity)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"alerts": list,
		"count":  len(list),
	})
}

// handleAlertStatus serves POST /alerts/{id}/status for review transitions.
func (s *Server) handleAlertStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/alerts/")
	id, tail, found := strings.Cut(path, "/")
	if !found || tail != "status" || id == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	var req struct {
		Status model.AlertStatus `json:"status"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	rec, err := s.alerts.Transition(id, req.Status)
	if err != nil {
		switch err {
		case alerts.ErrNotFound:
			w.WriteHeader(http.StatusNotFound)
		case alerts.ErrBadTransition, alerts.ErrUnknownStatus:
			w.WriteHeader(http.StatusConflict)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
		return
	}
	if s.store != nil {
		if err := s.store.UpdateAlertStatus(r.Context(), id, req.Status); err != nil && s.logger != nil {
			s.logger.Warn("persist alert status failed", "alert_id", id, "err", err)
		}
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	account := strings.TrimPrefix(r.URL.Path, "/stats")
	account = strings.TrimPrefix(account, "/")
	if account != "" {
		acct, updated, ok := s.stats.Get(account)
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"account":    acct,
			"updated_at": updated.Format(time.RFC3339Nano),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"totals": s.stats.GetTotals(),
	})
}

// handleAssess scores a transaction synchronously against the stored rolling
// history without admitting it, so callers can pre-check before submitting.
func (s *Server) handleAssess(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	var obj map[string]interface{}
	if err := json.Unmarshal(body, &obj); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	fields := ingest.ParseJSONMap(obj)
	tx, err := normalize.Normalize(*fields, s.cfg.Get())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}
	assessment, err := s.pipeline.AssessWithStoredHistory(tx)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"assessment": assessment,
		"risk_level": engine.RiskLevel(assessment.Score),
		"elevated":   engine.Elevated(assessment.Score),
	})
}

// handleAccountTimezone serves POST /accounts/{account}/timezone. The declared
// timezone shifts the unusual-hour window to the account holder's local night.
func (s *Server) handleAccountTimezone(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/accounts/")
	account, tail, found := strings.Cut(path, "/")
	if !found || tail != "timezone" || account == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	var req struct {
		Timezone string `json:"timezone"`
	}
	if err := json.Unmarshal(body, &req); err != nil || req.Timezone == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if err := s.pipeline.SetAccountTimezone(account, req.Timezone); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleScoringConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{
			"scoring": s.cfg.Get().Scoring,
		})
	case http.MethodPost:
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		current := s.cfg.Get()
		next := *current
		sc := current.Scoring
		if err := json.Unmarshal(body, &sc); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		next.Scoring = sc
		if err := s.pipeline.UpdateConfig(&next); err != nil {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"error": err.Error()})
			return
		}
		if err := s.cfg.Update(&next); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	s.alerts.Clear()
	if s.pipeline != nil {
		s.pipeline.Reset()
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
