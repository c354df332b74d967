package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Soujiro0/market-pulse-sub000/internal/config"
	"github.com/Soujiro0/market-pulse-sub000/internal/game"
	"github.com/Soujiro0/market-pulse-sub000/internal/storage"
)

func newTestServer(t *testing.T, dev bool) (*Server, *game.Service) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := storage.NewFileStore(t.TempDir(), config.DefaultSaveKey, logger)
	require.NoError(t, err)
	svc, err := game.NewService(context.Background(), store, logger, game.Options{Source: game.NewSource(17)})
	require.NoError(t, err)
	cfg := config.APIConfig{Addr: ":0", GameConfig: config.GameConfig{Player: "tester", DevCommands: dev}}
	return New(cfg, logger, svc, nil), svc
}

func do(t *testing.T, s *Server, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	out := map[string]any{}
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return rec.Code, out
}

func firstAsset(svc *game.Service) game.Asset {
	return svc.State().ActiveAssets[0]
}

func TestHealthAndDashboard(t *testing.T) {
	s, _ := newTestServer(t, false)
	code, body := do(t, s, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["ok"])

	code, body = do(t, s, http.MethodGet, "/v1/dashboard", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(game.StarterBalance), body["balance"])
	assert.Equal(t, "Intern I", body["rankTitle"])

	code, body = do(t, s, http.MethodGet, "/v1/market", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Len(t, body["assets"], game.MarketSize)
	assert.Equal(t, float64(500), body["nextRerollCost"])
	assert.Equal(t, float64(game.RerollLimitPerCycle), body["rerollsRemaining"])
}

func TestMarketRerollsMatchDashboard(t *testing.T) {
	s, svc := newTestServer(t, false)
	for i := 0; i < 2; i++ {
		code, body := do(t, s, http.MethodPost, "/v1/market/reroll", nil)
		require.Equal(t, http.StatusOK, code, "%v", body)
	}
	remaining := float64(game.RerollLimitPerCycle - 2)

	_, market := do(t, s, http.MethodGet, "/v1/market", nil)
	_, dash := do(t, s, http.MethodGet, "/v1/dashboard", nil)
	assert.Equal(t, remaining, market["rerollsRemaining"])
	assert.Equal(t, remaining, dash["rerollsRemaining"])
	assert.Equal(t, game.RerollLimitPerCycle-2, svc.State().Reroll.Limit)
}

func TestCatalogEndpoints(t *testing.T) {
	s, svc := newTestServer(t, false)
	code, body := do(t, s, http.MethodGet, "/v1/catalog", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Len(t, body["templates"], len(svc.Catalog().Templates))

	code, body = do(t, s, http.MethodGet, "/v1/catalog/templates/nimbus", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Nimbus Labs", body["name"])

	code, body = do(t, s, http.MethodGet, "/v1/catalog/items/golden-bull", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "golden-bull", body["id"])

	code, _ = do(t, s, http.MethodGet, "/v1/catalog/templates/ZZZZZZ", nil)
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = do(t, s, http.MethodGet, "/v1/catalog/items/nope", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestStatusForPlaybackErrors(t *testing.T) {
	assert.Equal(t, http.StatusConflict, statusFor(game.ErrSkipInProgress))
	assert.Equal(t, http.StatusConflict, statusFor(fmt.Errorf("reduce: %w", game.ErrInvalidPlayback)))
	assert.Equal(t, http.StatusBadRequest, statusFor(fmt.Errorf("%w: x", game.ErrUnknownEvent)))
}

func TestTradeLifecycleOverREST(t *testing.T) {
	s, svc := newTestServer(t, false)
	asset := firstAsset(svc)

	code, body := do(t, s, http.MethodPost, "/v1/trades", map[string]any{"templateId": asset.TemplateID, "units": 1, "durationDays": 4})
	require.Equal(t, http.StatusCreated, code, body)
	assert.Len(t, body["path"], 5)

	code, _ = do(t, s, http.MethodPost, "/v1/trades", map[string]any{"templateId": asset.TemplateID, "units": 1, "durationDays": 4})
	assert.Equal(t, http.StatusConflict, code)

	code, _ = do(t, s, http.MethodPost, "/v1/market/reroll", nil)
	assert.Equal(t, http.StatusConflict, code)

	code, body = do(t, s, http.MethodPost, "/v1/trades/active/playback", map[string]any{"action": "tick"})
	require.Equal(t, http.StatusOK, code, body)
	assert.NotNil(t, body["trade"])

	code, _ = do(t, s, http.MethodPost, "/v1/trades/active/playback", map[string]any{"action": "speed", "speed": 3})
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = do(t, s, http.MethodPost, "/v1/trades/active/playback", map[string]any{"action": "skip"})
	require.Equal(t, http.StatusOK, code, body)
	require.NotNil(t, body["record"])
	assert.Nil(t, body["trade"])

	code, body = do(t, s, http.MethodGet, "/v1/history", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Len(t, body["trades"], 1)

	code, _ = do(t, s, http.MethodGet, "/v1/trades/active", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, int64(2), svc.State().Turn)
}

func TestValidationErrors(t *testing.T) {
	s, svc := newTestServer(t, false)
	asset := firstAsset(svc)
	tests := []struct {
		name string
		body map[string]any
		want int
	}{
		{name: "zero units", body: map[string]any{"templateId": asset.TemplateID, "units": 0, "durationDays": 5}, want: http.StatusBadRequest},
		{name: "long duration", body: map[string]any{"templateId": asset.TemplateID, "units": 1, "durationDays": 400}, want: http.StatusBadRequest},
		{name: "unknown asset", body: map[string]any{"templateId": "ZZZZZZ", "units": 1, "durationDays": 5}, want: http.StatusNotFound},
		{name: "unknown field", body: map[string]any{"templateId": asset.TemplateID, "units": 1, "durationDays": 5, "leverage": 10}, want: http.StatusBadRequest},
	}
	for _, tc := range tests {
		code, body := do(t, s, http.MethodPost, "/v1/trades", tc.body)
		assert.Equal(t, tc.want, code, "%s: %v", tc.name, body)
		assert.NotEmpty(t, body["error"], tc.name)
	}
}

func TestLoans(t *testing.T) {
	s, svc := newTestServer(t, false)
	code, body := do(t, s, http.MethodGet, "/v1/loans/quote?amount=20000&term=10", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 0.07, body["interestRate"])
	assert.Equal(t, float64(21400), body["totalDue"])

	code, _ = do(t, s, http.MethodGet, "/v1/loans/quote?amount=lots&term=10", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = do(t, s, http.MethodPost, "/v1/loans", map[string]any{"amount": 20000, "termTurns": 10})
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, int64(30000), svc.Dashboard().Balance)

	code, _ = do(t, s, http.MethodPost, "/v1/loans", map[string]any{"amount": 100, "termTurns": 2})
	assert.Equal(t, http.StatusConflict, code)

	code, _ = do(t, s, http.MethodPost, "/v1/loans/repay", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, int64(8600), svc.Dashboard().Balance)
}

func TestShopAndCollection(t *testing.T) {
	s, svc := newTestServer(t, false)
	require.NoError(t, svc.AddMoney(context.Background(), 100_000))
	code, body := do(t, s, http.MethodGet, "/v1/shop", nil)
	require.Equal(t, http.StatusOK, code)
	offers := body["offers"].([]any)
	require.Len(t, offers, game.ShopOfferCount)
	itemID := offers[0].(map[string]any)["itemId"].(string)

	code, _ = do(t, s, http.MethodPost, "/v1/shop/buy", map[string]any{"itemId": itemID})
	require.Equal(t, http.StatusCreated, code)
	assert.Len(t, svc.State().Collection, 1)

	code, _ = do(t, s, http.MethodPost, "/v1/shop/buy", map[string]any{"itemId": "not-for-sale"})
	assert.Equal(t, http.StatusNotFound, code)

	code, body = do(t, s, http.MethodPost, "/v1/collection/merge", map[string]any{"ids": []string{svc.State().Collection[0].ID}})
	assert.Equal(t, http.StatusBadRequest, code, body)

	code, body = do(t, s, http.MethodGet, "/v1/collection", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Len(t, body["items"], 1)
}

func TestExportImport(t *testing.T) {
	s, svc := newTestServer(t, false)
	require.NoError(t, svc.AddMoney(context.Background(), 2500))
	code, body := do(t, s, http.MethodPost, "/v1/export", nil)
	require.Equal(t, http.StatusOK, code)
	blob := body["data"].(string)

	require.NoError(t, svc.Reset(context.Background()))
	code, body = do(t, s, http.MethodPost, "/v1/import", map[string]any{"data": blob})
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "tester", body["player"])
	assert.Equal(t, int64(12_500), svc.Dashboard().Balance)

	code, body = do(t, s, http.MethodPost, "/v1/import", map[string]any{"data": "bm90IGEgc2F2ZQ=="})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "corrupt", body["kind"])
}

func TestDevCommands(t *testing.T) {
	off, _ := newTestServer(t, false)
	code, _ := do(t, off, http.MethodPost, "/v1/dev", map[string]any{"command": "add_money 10"})
	assert.Equal(t, http.StatusNotFound, code)

	s, svc := newTestServer(t, true)
	code, body := do(t, s, http.MethodPost, "/v1/dev", map[string]any{"command": "add_money 10"})
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, game.StarterBalance+10, svc.Dashboard().Balance)

	code, body = do(t, s, http.MethodPost, "/v1/dev", map[string]any{"command": "set_balance abc"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, body["help"], "set_balance")
	assert.Equal(t, game.StarterBalance+10, svc.Dashboard().Balance)
}

func TestTradeStream(t *testing.T) {
	s, svc := newTestServer(t, false)
	s.tickDelay = func(int, int) time.Duration { return time.Hour }
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/trade/stream"

	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	_, err = svc.ExecuteTrade(context.Background(), firstAsset(svc).TemplateID, 1, 6)
	require.NoError(t, err)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var frame streamFrame
	require.NoError(t, conn.ReadJSON(&frame))
	require.Equal(t, "trade", frame.Type)
	require.NotNil(t, frame.Trade)
	assert.Len(t, frame.Trade.Path, 7)

	require.NoError(t, conn.WriteJSON(controlMessage{Action: "skip"}))
	for frame.Type != "settled" {
		frame = streamFrame{}
		require.NoError(t, conn.ReadJSON(&frame))
	}
	require.NotNil(t, frame.Record)
	assert.Equal(t, 6, frame.Record.DaysHeld)
	require.NotNil(t, frame.Report)
	assert.Equal(t, int64(2), frame.Report.Turn)
	assert.Nil(t, svc.State().ActiveTrade)
}
