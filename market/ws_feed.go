package market

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WSFeed reads JSON quotes from a websocket stream. Each text message is a
// single object:
//
//	{"symbol":"EUR_USD","bid":"1.1000","ask":"1.1002","time":"2024-01-01T09:00:00Z"}
//
// Messages without a symbol (heartbeats, acks) are skipped. Cancelling the
// dial context unblocks Next, which then returns the context's error.
type WSFeed struct {
	conn *websocket.Conn
	log  *zap.Logger

	ctx       context.Context
	done      chan struct{}
	closeOnce sync.Once
}

type subscribeMsg struct {
	Op      string   `json:"op"`
	Symbols []string `json:"symbols"`
}

// DialWS connects to url and, when symbols are given, sends a subscribe
// message before returning.
func DialWS(ctx context.Context, url string, symbols []string, log *zap.Logger) (*WSFeed, error) {
	if log == nil {
		log = zap.NewNop()
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	if len(symbols) > 0 {
		if err := conn.WriteJSON(subscribeMsg{Op: "subscribe", Symbols: symbols}); err != nil {
			conn.Close()
			return nil, fmt.Errorf("subscribe: %w", err)
		}
	}

	log.Info("quote stream connected", zap.String("url", url), zap.Strings("symbols", symbols))
	f := &WSFeed{conn: conn, log: log, ctx: ctx, done: make(chan struct{})}
	go f.watch()
	return f, nil
}

// watch expires the read deadline once ctx is done so a blocked read
// returns.
func (f *WSFeed) watch() {
	select {
	case <-f.ctx.Done():
		_ = f.conn.SetReadDeadline(time.Now())
	case <-f.done:
	}
}

func (f *WSFeed) Next() (Quote, bool, error) {
	for {
		if err := f.ctx.Err(); err != nil {
			return Quote{}, false, err
		}
		mt, data, err := f.conn.ReadMessage()
		if err != nil {
			if ctxErr := f.ctx.Err(); ctxErr != nil {
				return Quote{}, false, ctxErr
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return Quote{}, false, nil
			}
			return Quote{}, false, fmt.Errorf("read quote: %w", err)
		}
		if mt != websocket.TextMessage {
			continue
		}

		var q Quote
		if err := json.Unmarshal(data, &q); err != nil {
			f.log.Warn("skipping malformed quote", zap.ByteString("msg", data), zap.Error(err))
			continue
		}
		if q.Symbol == "" {
			continue
		}
		if !q.Valid() {
			f.log.Warn("skipping unpriced quote", zap.String("symbol", q.Symbol))
			continue
		}
		return q, true, nil
	}
}

func (f *WSFeed) Close() error {
	f.closeOnce.Do(func() { close(f.done) })
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = f.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	return f.conn.Close()
}
