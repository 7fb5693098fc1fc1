// Package server exposes the scan pipeline, signal feed, and bet log
// over HTTP for the dashboard frontend.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/phenomenon0/edgeboard/pkg/edge"
	"github.com/phenomenon0/edgeboard/pkg/pipeline"
	"github.com/phenomenon0/edgeboard/pkg/store"
)

// Runner is the pipeline surface the HTTP layer triggers.
type Runner interface {
	SyncOdds(ctx context.Context, req pipeline.SyncOddsRequest) pipeline.SyncOddsSummary
	SyncPolymarket(ctx context.Context, req pipeline.SyncPolymarketRequest) pipeline.SyncPolymarketSummary
	RefreshPrices(ctx context.Context, req pipeline.RefreshPricesRequest) pipeline.RefreshPricesSummary
	ScanEdges(ctx context.Context, req pipeline.ScanEdgesRequest) pipeline.ScanEdgesSummary
	WatchTick(ctx context.Context) pipeline.WatchTickSummary
}

// Records is the read/write slice of the store the HTTP layer serves.
type Records interface {
	InsertBet(ctx context.Context, b *store.Bet) error
	SettleBet(ctx context.Context, id uuid.UUID, outcome string, profitLoss decimal.Decimal) error
	ListBets(ctx context.Context, limit int) ([]store.Bet, error)
	SummarizeBets(ctx context.Context) (*store.BetSummary, error)
	ListRecentSignals(ctx context.Context, limit int) ([]*edge.Signal, error)
	UpsertScanConfig(ctx context.Context, c store.ScanConfig) error
	GetScanConfig(ctx context.Context, name string) (*store.ScanConfig, error)
	UpsertTeamMapping(ctx context.Context, normName, canonical, sport string) error
	LookupTeamMapping(ctx context.Context, normName string) (string, error)
}

// WSHandler serves the live websocket feed.
type WSHandler interface {
	ServeWS(w http.ResponseWriter, r *http.Request)
	ClientCount() int
}

// Server is the dashboard HTTP API.
type Server struct {
	runner   Runner
	records  Records
	ws       WSHandler
	gatherer prometheus.Gatherer
	log      *zap.Logger

	httpSrv *http.Server
}

// New builds a server. The websocket handler and gatherer may be nil,
// in which case /ws returns 404 and /metrics serves the default
// registry.
func New(addr string, runner Runner, records Records, ws WSHandler, gatherer prometheus.Gatherer, log *zap.Logger) *Server {
	s := &Server{
		runner:   runner,
		records:  records,
		ws:       ws,
		gatherer: gatherer,
		log:      log,
	}
	s.httpSrv = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.handleHealth)

	mux.HandleFunc("/sync/odds", s.handleSyncOdds)
	mux.HandleFunc("/sync/polymarket", s.handleSyncPolymarket)
	mux.HandleFunc("/refresh/prices", s.handleRefreshPrices)
	mux.HandleFunc("/scan/edges", s.handleScanEdges)
	mux.HandleFunc("/watch/tick", s.handleWatchTick)

	mux.HandleFunc("/signals", s.handleSignals)
	mux.HandleFunc("/bets", s.handleBets)
	mux.HandleFunc("/bets/settle", s.handleSettleBet)
	mux.HandleFunc("/bets/summary", s.handleBetSummary)
	mux.HandleFunc("/config", s.handleScanConfig)
	mux.HandleFunc("/teams", s.handleTeamMappings)

	gatherer := s.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	if s.ws != nil {
		mux.HandleFunc("/ws", s.ws.ServeWS)
	}

	return withCORS(mux)
}

// ListenAndServe blocks serving HTTP until Shutdown or a fatal error.
func (s *Server) ListenAndServe() error {
	s.log.Info("http server listening", zap.String("addr", s.httpSrv.Addr))
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

// withCORS allows the dashboard frontend to call from any origin.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{"status": "ok"}
	if s.ws != nil {
		status["wsClients"] = s.ws.ClientCount()
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleSyncOdds(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	var req pipeline.SyncOddsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, s.runner.SyncOdds(r.Context(), req))
}

func (s *Server) handleSyncPolymarket(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	var req pipeline.SyncPolymarketRequest
	if !decodeBody(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, s.runner.SyncPolymarket(r.Context(), req))
}

func (s *Server) handleRefreshPrices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	var req pipeline.RefreshPricesRequest
	if !decodeBody(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, s.runner.RefreshPrices(r.Context(), req))
}

func (s *Server) handleScanEdges(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	var req pipeline.ScanEdgesRequest
	if !decodeBody(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, s.runner.ScanEdges(r.Context(), req))
}

func (s *Server) handleWatchTick(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	writeJSON(w, http.StatusOK, s.runner.WatchTick(r.Context()))
}

func (s *Server) handleSignals(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpError(w, http.StatusMethodNotAllowed, "GET required")
		return
	}
	signals, err := s.records.ListRecentSignals(r.Context(), queryInt(r, "limit"))
	if err != nil {
		s.log.Error("list signals failed", zap.Error(err))
		httpError(w, http.StatusInternalServerError, "signal lookup failed")
		return
	}
	if signals == nil {
		signals = []*edge.Signal{}
	}
	writeJSON(w, http.StatusOK, signals)
}

func (s *Server) handleBets(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		bets, err := s.records.ListBets(r.Context(), queryInt(r, "limit"))
		if err != nil {
			s.log.Error("list bets failed", zap.Error(err))
			httpError(w, http.StatusInternalServerError, "bet lookup failed")
			return
		}
		if bets == nil {
			bets = []store.Bet{}
		}
		writeJSON(w, http.StatusOK, bets)

	case http.MethodPost:
		var bet store.Bet
		if !decodeBody(w, r, &bet) {
			return
		}
		if err := bet.Validate(); err != nil {
			httpError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := s.records.InsertBet(r.Context(), &bet); err != nil {
			s.log.Error("insert bet failed", zap.Error(err))
			httpError(w, http.StatusInternalServerError, "bet insert failed")
			return
		}
		writeJSON(w, http.StatusCreated, bet)

	default:
		httpError(w, http.StatusMethodNotAllowed, "GET or POST required")
	}
}

type settleRequest struct {
	ID         uuid.UUID       `json:"id"`
	Outcome    string          `json:"outcome"`
	ProfitLoss decimal.Decimal `json:"profitLoss"`
}

func (s *Server) handleSettleBet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	var req settleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ID == uuid.Nil {
		httpError(w, http.StatusBadRequest, "bet id required")
		return
	}
	if err := s.records.SettleBet(r.Context(), req.ID, req.Outcome, req.ProfitLoss); err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "settled"})
}

func (s *Server) handleBetSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpError(w, http.StatusMethodNotAllowed, "GET required")
		return
	}
	sum, err := s.records.SummarizeBets(r.Context())
	if err != nil {
		s.log.Error("bet summary failed", zap.Error(err))
		httpError(w, http.StatusInternalServerError, "bet summary failed")
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// handleScanConfig reads or saves a named scan preset. The dashboard
// uses presets so saved sport/window/edge combinations survive reloads.
func (s *Server) handleScanConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		name := r.URL.Query().Get("name")
		if name == "" {
			name = "default"
		}
		cfg, err := s.records.GetScanConfig(r.Context(), name)
		if err != nil {
			s.log.Error("scan config lookup failed", zap.Error(err))
			httpError(w, http.StatusInternalServerError, "config lookup failed")
			return
		}
		if cfg == nil {
			httpError(w, http.StatusNotFound, "config not found")
			return
		}
		writeJSON(w, http.StatusOK, cfg)

	case http.MethodPost:
		var cfg store.ScanConfig
		if !decodeBody(w, r, &cfg) {
			return
		}
		if cfg.Name == "" {
			cfg.Name = "default"
		}
		if err := s.records.UpsertScanConfig(r.Context(), cfg); err != nil {
			s.log.Error("scan config save failed", zap.Error(err))
			httpError(w, http.StatusInternalServerError, "config save failed")
			return
		}
		writeJSON(w, http.StatusOK, cfg)

	default:
		httpError(w, http.StatusMethodNotAllowed, "GET or POST required")
	}
}

type teamMappingRequest struct {
	NormName  string `json:"normName"`
	Canonical string `json:"canonical"`
	Sport     string `json:"sport"`
}

// handleTeamMappings manages manual alias overrides for team names the
// normalizer cannot reconcile on its own.
func (s *Server) handleTeamMappings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		name := r.URL.Query().Get("name")
		if name == "" {
			httpError(w, http.StatusBadRequest, "name query parameter required")
			return
		}
		canonical, err := s.records.LookupTeamMapping(r.Context(), name)
		if err != nil {
			s.log.Error("team mapping lookup failed", zap.Error(err))
			httpError(w, http.StatusInternalServerError, "mapping lookup failed")
			return
		}
		if canonical == "" {
			httpError(w, http.StatusNotFound, "no mapping")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"normName": name, "canonical": canonical})

	case http.MethodPost:
		var req teamMappingRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.NormName == "" || req.Canonical == "" {
			httpError(w, http.StatusBadRequest, "normName and canonical required")
			return
		}
		if err := s.records.UpsertTeamMapping(r.Context(), req.NormName, req.Canonical, req.Sport); err != nil {
			s.log.Error("team mapping save failed", zap.Error(err))
			httpError(w, http.StatusInternalServerError, "mapping save failed")
			return
		}
		writeJSON(w, http.StatusOK, req)

	default:
		httpError(w, http.StatusMethodNotAllowed, "GET or POST required")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		httpError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func queryInt(r *http.Request, key string) int {
	n, _ := strconv.Atoi(r.URL.Query().Get(key))
	return n
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
