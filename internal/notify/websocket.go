package notify

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/geopaparazzi/tracklog/pkg/core"
)

const (
	writeWait    = 10 * time.Second
	maxReconnect = 10
	maxBackoff   = 30 * time.Second
)

// WebsocketPublisher forwards every snapshot published on a Bus to a
// websocket endpoint as a JSON text message. Connection loss triggers
// reconnects with exponential backoff; snapshots arriving while
// disconnected are conflated away by the bus subscription, so after a
// reconnect the endpoint immediately sees current state.
type WebsocketPublisher struct {
	mu   sync.Mutex
	conn *ws.Conn

	rawURL string
	log    zerolog.Logger

	cancel func()
	done   chan struct{}
	wg     sync.WaitGroup
}

// NewWebsocketPublisher dials rawURL and starts forwarding snapshots
// from bus. It fails when the initial dial fails; later disconnects are
// handled internally.
func NewWebsocketPublisher(log zerolog.Logger, bus *Bus, rawURL string) (*WebsocketPublisher, error) {
	p := &WebsocketPublisher{
		rawURL: rawURL,
		log:    log.With().Str("component", "notify.websocket").Logger(),
		done:   make(chan struct{}),
	}

	conn, err := p.dialOnce()
	if err != nil {
		return nil, err
	}
	p.conn = conn

	sub, cancel := bus.Subscribe()
	p.cancel = cancel

	p.wg.Add(1)
	go p.writeLoop(sub.Receive())

	p.log.Info().Str("url", rawURL).Msg("snapshot publisher connected")
	return p, nil
}

func (p *WebsocketPublisher) dialOnce() (*ws.Conn, error) {
	u, err := url.Parse(p.rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid websocket URL: %w", err)
	}
	conn, _, err := ws.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	return conn, nil
}

// writeLoop drains the subscription and writes snapshots out.
func (p *WebsocketPublisher) writeLoop(snapshots <-chan *core.Snapshot) {
	defer p.wg.Done()
	for {
		select {
		case <-p.done:
			return
		case snap, ok := <-snapshots:
			if !ok {
				return
			}
			if err := p.write(snap); err != nil {
				p.log.Warn().Err(err).Msg("websocket write failed, reconnecting")
				if !p.reconnect() {
					return
				}
				// best effort resend of the snapshot that failed
				if err := p.write(snap); err != nil {
					p.log.Warn().Err(err).Msg("websocket resend failed")
				}
			}
		}
	}
}

func (p *WebsocketPublisher) write(snap *core.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	p.mu.Lock()
	conn := p.conn
	p.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("no connection")
	}

	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteMessage(ws.TextMessage, data)
}

// reconnect re-dials with exponential backoff. It returns false when
// the retry budget is exhausted or the publisher is shutting down.
func (p *WebsocketPublisher) reconnect() bool {
	p.mu.Lock()
	if p.conn != nil {
		p.conn.Close()
		p.conn = nil
	}
	p.mu.Unlock()

	backoff := time.Second
	for attempt := 1; attempt <= maxReconnect; attempt++ {
		select {
		case <-p.done:
			return false
		case <-time.After(backoff):
		}

		conn, err := p.dialOnce()
		if err == nil {
			p.mu.Lock()
			p.conn = conn
			p.mu.Unlock()
			p.log.Info().Int("attempt", attempt).Msg("websocket reconnected")
			return true
		}
		p.log.Warn().Err(err).Int("attempt", attempt).Msg("websocket reconnect failed")

		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
	p.log.Error().Msg("websocket reconnect attempts exhausted")
	return false
}

// Close cancels the bus subscription, stops the write loop and closes
// the connection.
func (p *WebsocketPublisher) Close() {
	close(p.done)
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn != nil {
		p.conn.Close()
		p.conn = nil
	}
}
