package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/phenomenon0/edgeboard/pkg/edge"
	"github.com/phenomenon0/edgeboard/pkg/pipeline"
	"github.com/phenomenon0/edgeboard/pkg/store"
)

type stubRunner struct {
	scanReq  pipeline.ScanEdgesRequest
	scanned  bool
	watched  bool
	synced   bool
	refreshd bool
}

func (s *stubRunner) SyncOdds(_ context.Context, _ pipeline.SyncOddsRequest) pipeline.SyncOddsSummary {
	s.synced = true
	return pipeline.SyncOddsSummary{EventsSeen: 3}
}

func (s *stubRunner) SyncPolymarket(_ context.Context, _ pipeline.SyncPolymarketRequest) pipeline.SyncPolymarketSummary {
	return pipeline.SyncPolymarketSummary{MarketsCached: 2}
}

func (s *stubRunner) RefreshPrices(_ context.Context, _ pipeline.RefreshPricesRequest) pipeline.RefreshPricesSummary {
	s.refreshd = true
	return pipeline.RefreshPricesSummary{Refreshed: 5}
}

func (s *stubRunner) ScanEdges(_ context.Context, req pipeline.ScanEdgesRequest) pipeline.ScanEdgesSummary {
	s.scanned = true
	s.scanReq = req
	return pipeline.ScanEdgesSummary{MarketsScanned: 1}
}

func (s *stubRunner) WatchTick(_ context.Context) pipeline.WatchTickSummary {
	s.watched = true
	return pipeline.WatchTickSummary{Tracked: 4}
}

type stubRecords struct {
	bets    []store.Bet
	settled map[uuid.UUID]string
	signals []*edge.Signal
	configs map[string]store.ScanConfig
	teamMap map[string]string
}

func (s *stubRecords) InsertBet(_ context.Context, b *store.Bet) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	s.bets = append(s.bets, *b)
	return nil
}

func (s *stubRecords) SettleBet(_ context.Context, id uuid.UUID, outcome string, _ decimal.Decimal) error {
	if s.settled == nil {
		s.settled = make(map[uuid.UUID]string)
	}
	s.settled[id] = outcome
	return nil
}

func (s *stubRecords) ListBets(_ context.Context, _ int) ([]store.Bet, error) {
	return s.bets, nil
}

func (s *stubRecords) SummarizeBets(_ context.Context) (*store.BetSummary, error) {
	return &store.BetSummary{Total: len(s.bets)}, nil
}

func (s *stubRecords) ListRecentSignals(_ context.Context, _ int) ([]*edge.Signal, error) {
	return s.signals, nil
}

func (s *stubRecords) UpsertScanConfig(_ context.Context, c store.ScanConfig) error {
	if s.configs == nil {
		s.configs = make(map[string]store.ScanConfig)
	}
	s.configs[c.Name] = c
	return nil
}

func (s *stubRecords) GetScanConfig(_ context.Context, name string) (*store.ScanConfig, error) {
	c, ok := s.configs[name]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (s *stubRecords) UpsertTeamMapping(_ context.Context, normName, canonical, _ string) error {
	if s.teamMap == nil {
		s.teamMap = make(map[string]string)
	}
	s.teamMap[normName] = canonical
	return nil
}

func (s *stubRecords) LookupTeamMapping(_ context.Context, normName string) (string, error) {
	return s.teamMap[normName], nil
}

func newTestServer(t *testing.T) (*Server, *stubRunner, *stubRecords) {
	t.Helper()
	runner := &stubRunner{}
	records := &stubRecords{}
	return New(":0", runner, records, nil, nil, zap.NewNop()), runner, records
}

func TestHealth(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "ok" {
		t.Errorf("body = %v", body)
	}
}

func TestScanEdgesPassesRequest(t *testing.T) {
	srv, runner, _ := newTestServer(t)

	payload := `{"sports":["nfl","nba"],"minEdgePct":2.5}`
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/scan/edges", bytes.NewBufferString(payload)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if !runner.scanned {
		t.Fatal("scan not triggered")
	}
	if len(runner.scanReq.Sports) != 2 || runner.scanReq.MinEdgePct != 2.5 {
		t.Errorf("request not decoded: %+v", runner.scanReq)
	}
}

func TestScanEdgesRejectsGet(t *testing.T) {
	srv, runner, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/scan/edges", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
	if runner.scanned {
		t.Error("scan triggered by GET")
	}
}

func TestWatchTickEmptyBody(t *testing.T) {
	srv, runner, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/watch/tick", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !runner.watched {
		t.Error("tick not triggered")
	}
}

func TestBetLifecycle(t *testing.T) {
	srv, _, records := newTestServer(t)
	h := srv.Handler()

	bet := `{"eventRef":"ev1","selection":"Kansas City Chiefs","stake":"50","price":2.1}`
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/bets", bytes.NewBufferString(bet)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body.String())
	}
	if len(records.bets) != 1 {
		t.Fatalf("bets = %d", len(records.bets))
	}

	// Invalid stake is rejected before it hits storage.
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/bets",
		bytes.NewBufferString(`{"eventRef":"ev1","selection":"x","stake":"0","price":2.1}`)))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid bet status = %d, want 400", rec.Code)
	}

	settle, _ := json.Marshal(map[string]interface{}{
		"id":         records.bets[0].ID,
		"outcome":    store.BetWon,
		"profitLoss": "55",
	})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/bets/settle", bytes.NewBuffer(settle)))
	if rec.Code != http.StatusOK {
		t.Fatalf("settle status = %d: %s", rec.Code, rec.Body.String())
	}
	if records.settled[records.bets[0].ID] != store.BetWon {
		t.Errorf("settled = %v", records.settled)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/bets/summary", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("summary status = %d", rec.Code)
	}
	var sum store.BetSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &sum); err != nil {
		t.Fatal(err)
	}
	if sum.Total != 1 {
		t.Errorf("summary total = %d", sum.Total)
	}
}

func TestSignalsEmptyIsArray(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/signals", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Body.String(); got != "[]\n" {
		t.Errorf("body = %q, want empty JSON array", got)
	}
}

func TestScanConfigRoundTrip(t *testing.T) {
	srv, _, _ := newTestServer(t)
	h := srv.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/config?name=default", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing config status = %d, want 404", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/config",
		bytes.NewBufferString(`{"sports":["nfl"],"windowHours":24,"minEdgePct":2}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("save status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/config", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("load status = %d", rec.Code)
	}
	var cfg store.ScanConfig
	if err := json.Unmarshal(rec.Body.Bytes(), &cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Name != "default" || cfg.WindowHours != 24 {
		t.Errorf("config = %+v", cfg)
	}
}

func TestTeamMappingRoundTrip(t *testing.T) {
	srv, _, _ := newTestServer(t)
	h := srv.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/teams",
		bytes.NewBufferString(`{"normName":"pats","canonical":"new england patriots","sport":"nfl"}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("save status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/teams?name=pats", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("lookup status = %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["canonical"] != "new england patriots" {
		t.Errorf("canonical = %q", body["canonical"])
	}
}

func TestCORSPreflight(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/scan/edges", nil))

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS header")
	}
}
