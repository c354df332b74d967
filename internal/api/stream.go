package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Soujiro0/market-pulse-sub000/internal/game"
	"github.com/Soujiro0/market-pulse-sub000/internal/playback"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin:     func(*http.Request) bool { return true },
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// controlMessage is the wire form of a playback control, shared by the REST
// endpoint and the stream.
type controlMessage struct {
	Action string `json:"action"`
	Speed  int    `json:"speed,omitempty"`
}

func (m controlMessage) event() (game.PlaybackEvent, error) {
	switch strings.ToLower(strings.TrimSpace(m.Action)) {
	case "tick":
		return game.Tick{}, nil
	case "pause", "resume", "toggle_pause":
		return game.TogglePause{}, nil
	case "skip":
		return game.Skip{}, nil
	case "pull_out", "pullout":
		return game.PullOut{}, nil
	case "speed":
		return game.SetSpeed{Speed: m.Speed}, nil
	}
	return nil, fmt.Errorf("unknown playback action %q", m.Action)
}

type streamFrame struct {
	Type     string            `json:"type"`
	Trade    *game.ActiveTrade `json:"trade,omitempty"`
	Playback *game.Playback    `json:"playback,omitempty"`
	Price    float64           `json:"price,omitempty"`
	Record   *game.TradeRecord `json:"record,omitempty"`
	Report   *game.TurnReport  `json:"report,omitempty"`
	Error    string            `json:"error,omitempty"`
}

type streamConn struct {
	conn *websocket.Conn
	send chan []byte
	mu   sync.Mutex
	done bool
}

// enqueue drops frames when the client is slow. With block set it waits up to
// writeWait for room instead.
func (c *streamConn) enqueue(f streamFrame, block bool) {
	raw, err := json.Marshal(f)
	if err != nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done {
		return
	}
	if !block {
		select {
		case c.send <- raw:
		default:
		}
		return
	}
	timer := time.NewTimer(writeWait)
	defer timer.Stop()
	select {
	case c.send <- raw:
	case <-timer.C:
	}
}

func (c *streamConn) finish() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.done {
		c.done = true
		close(c.send)
	}
}

// handleTradeStream drives the active trade at presentation cadence and pushes
// every step to the client. Controls arrive as controlMessage frames.
func (s *Server) handleTradeStream(w http.ResponseWriter, r *http.Request) {
	st := s.game.State()
	if st.ActiveTrade == nil {
		writeError(w, http.StatusConflict, game.ErrNoActiveTrade.Error())
		return
	}
	if !s.streaming.CompareAndSwap(false, true) {
		writeError(w, http.StatusConflict, "trade is already streaming")
		return
	}
	defer s.streaming.Store(false)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("stream upgrade failed", "err", err)
		return
	}
	sc := &streamConn{conn: conn, send: make(chan []byte, 64)}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sched := playback.New(s.game, s.log, func(up game.PlaybackUpdate) {
		if up.Record != nil {
			sc.enqueue(streamFrame{Type: "settled", Record: up.Record, Report: up.Report}, true)
			return
		}
		if up.Trade == nil {
			return
		}
		pb := up.Trade.Playback
		sc.enqueue(streamFrame{Type: "tick", Playback: &pb, Price: up.Trade.Path[pb.Day]}, false)
	})
	sched.SetDelay(s.tickDelay)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.writePump(sc)
	}()
	go s.readPump(ctx, cancel, sc, sched)

	trade := *st.ActiveTrade
	sc.enqueue(streamFrame{Type: "trade", Trade: &trade}, true)
	s.log.Info("trade stream opened", "asset", trade.Asset.TemplateID, "days", trade.DurationDays)

	rec, err := sched.Run(ctx, trade)
	switch {
	case err == nil:
		s.log.Info("trade stream settled", "asset", rec.TemplateID, "profit", rec.Profit)
	case ctx.Err() != nil:
		s.log.Info("trade stream closed by client", "asset", trade.Asset.TemplateID)
	default:
		sc.enqueue(streamFrame{Type: "error", Error: err.Error()}, true)
	}
	sc.finish()
	<-writerDone
}

func (s *Server) readPump(ctx context.Context, cancel context.CancelFunc, sc *streamConn, sched *playback.Scheduler) {
	defer cancel()
	sc.conn.SetReadDeadline(time.Now().Add(pongWait))
	sc.conn.SetPongHandler(func(string) error {
		sc.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, raw, err := sc.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Warn("stream read failed", "err", err)
			}
			return
		}
		var msg controlMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			sc.enqueue(streamFrame{Type: "error", Error: "malformed control message"}, false)
			continue
		}
		ev, err := msg.event()
		if err != nil {
			sc.enqueue(streamFrame{Type: "error", Error: err.Error()}, false)
			continue
		}
		if err := sched.Send(ctx, ev); err != nil {
			return
		}
	}
}

func (s *Server) writePump(sc *streamConn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		sc.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-sc.send:
			sc.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				sc.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "settled"))
				return
			}
			if err := sc.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			sc.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sc.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
