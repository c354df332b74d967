// Package client talks to a running mp-api server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Soujiro0/market-pulse-sub000/internal/game"
)

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// APIError is a non-2xx response. It unwraps to the matching game error when
// the server reported one, so errors.Is works across the wire.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api status %d: %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	for _, known := range knownErrors {
		text := known.Error()
		if e.Message == text || strings.HasPrefix(e.Message, text+": ") {
			return known
		}
	}
	return nil
}

var knownErrors = []error{
	game.ErrTradeInProgress,
	game.ErrNoActiveTrade,
	game.ErrAssetNotFound,
	game.ErrInvalidUnits,
	game.ErrOverdraftUnits,
	game.ErrInvalidDuration,
	game.ErrInvalidLoanAmount,
	game.ErrInvalidLoanTerm,
	game.ErrLoanActive,
	game.ErrNoLoan,
	game.ErrInsufficientFunds,
	game.ErrRerollLimit,
	game.ErrRerollBalance,
	game.ErrMergeIneligible,
	game.ErrCollectibleNotFound,
	game.ErrMaxRarity,
	game.ErrItemNotFound,
	game.ErrPlaybackFinished,
	game.ErrInvalidSpeed,
	game.ErrSkipInProgress,
	game.ErrUnknownEvent,
	game.ErrInvalidPlayback,
}

type ImportResult struct {
	Player    string         `json:"player"`
	Dashboard game.Dashboard `json:"dashboard"`
}

func (c *Client) State(ctx context.Context) (game.GameState, error) {
	var out game.GameState
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/state", nil, &out)
	return out, err
}

func (c *Client) Dashboard(ctx context.Context) (game.Dashboard, error) {
	var out game.Dashboard
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/dashboard", nil, &out)
	return out, err
}

func (c *Client) Reroll(ctx context.Context) (game.RerollResult, error) {
	var out game.RerollResult
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/market/reroll", nil, &out)
	return out, err
}

func (c *Client) AdvanceTurn(ctx context.Context) (game.TurnReport, error) {
	var out game.TurnReport
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/turns/advance", nil, &out)
	return out, err
}

func (c *Client) ExecuteTrade(ctx context.Context, templateID string, units int64, durationDays int) (game.ActiveTrade, error) {
	var out game.ActiveTrade
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/trades", map[string]any{
		"templateId":   templateID,
		"units":        units,
		"durationDays": durationDays,
	}, &out)
	return out, err
}

// Playback sends one control event for the active trade. Together with the
// server's settlement this satisfies playback.Driver.
func (c *Client) Playback(ctx context.Context, ev game.PlaybackEvent) (game.PlaybackUpdate, error) {
	body, err := controlBody(ev)
	if err != nil {
		return game.PlaybackUpdate{}, err
	}
	var out game.PlaybackUpdate
	err = c.jsonRequest(ctx, http.MethodPost, "/v1/trades/active/playback", body, &out)
	return out, err
}

func controlBody(ev game.PlaybackEvent) (map[string]any, error) {
	switch ev := ev.(type) {
	case game.Tick:
		return map[string]any{"action": "tick"}, nil
	case game.TogglePause:
		return map[string]any{"action": "toggle_pause"}, nil
	case game.Skip:
		return map[string]any{"action": "skip"}, nil
	case game.PullOut:
		return map[string]any{"action": "pull_out"}, nil
	case game.SetSpeed:
		return map[string]any{"action": "speed", "speed": ev.Speed}, nil
	}
	return nil, fmt.Errorf("unsupported playback event %T", ev)
}

func (c *Client) History(ctx context.Context, limit int) ([]game.TradeRecord, error) {
	var out struct {
		Trades []game.TradeRecord `json:"trades"`
	}
	path := "/v1/history"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	err := c.jsonRequest(ctx, http.MethodGet, path, nil, &out)
	return out.Trades, err
}

func (c *Client) QuoteLoan(ctx context.Context, amount, termTurns int64) (game.LoanQuote, error) {
	q := url.Values{}
	q.Set("amount", strconv.FormatInt(amount, 10))
	q.Set("term", strconv.FormatInt(termTurns, 10))
	var out game.LoanQuote
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/loans/quote?"+q.Encode(), nil, &out)
	return out, err
}

func (c *Client) TakeLoan(ctx context.Context, amount, termTurns int64) (game.LoanQuote, error) {
	var out game.LoanQuote
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/loans", map[string]any{
		"amount":    amount,
		"termTurns": termTurns,
	}, &out)
	return out, err
}

func (c *Client) PayLoan(ctx context.Context) (int64, error) {
	var out struct {
		Paid int64 `json:"paid"`
	}
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/loans/repay", nil, &out)
	return out.Paid, err
}

func (c *Client) ShopOffers(ctx context.Context) ([]game.ShopOffer, error) {
	var out struct {
		Offers []game.ShopOffer `json:"offers"`
	}
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/shop", nil, &out)
	return out.Offers, err
}

func (c *Client) BuyCollectible(ctx context.Context, itemID string) (game.Collectible, error) {
	var out game.Collectible
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/shop/buy", map[string]any{"itemId": itemID}, &out)
	return out, err
}

func (c *Client) Merge(ctx context.Context, ids []string) (game.Collectible, error) {
	var out game.Collectible
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/collection/merge", map[string]any{"ids": ids}, &out)
	return out, err
}

func (c *Client) Export(ctx context.Context) (string, error) {
	var out struct {
		Data string `json:"data"`
	}
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/export", nil, &out)
	return out.Data, err
}

func (c *Client) Import(ctx context.Context, blob string) (ImportResult, error) {
	var out ImportResult
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/import", map[string]any{"data": strings.TrimSpace(blob)}, &out)
	return out, err
}

func (c *Client) Dev(ctx context.Context, line string) (string, error) {
	var out struct {
		Message string `json:"message"`
	}
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/dev", map[string]any{"command": line}, &out)
	return out.Message, err
}

func (c *Client) jsonRequest(ctx context.Context, method, path string, in any, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return decodeError(resp.StatusCode, raw)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeError(status int, raw []byte) error {
	var payload struct {
		Error string `json:"error"`
	}
	msg := strings.TrimSpace(string(raw))
	if err := json.Unmarshal(raw, &payload); err == nil && payload.Error != "" {
		msg = payload.Error
	}
	if status == http.StatusNotFound && msg == "404 page not found" {
		return &APIError{Status: status, Message: "endpoint not available on this server"}
	}
	return &APIError{Status: status, Message: msg}
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}
