package provider

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/geopaparazzi/tracklog/internal/channel"
	"github.com/geopaparazzi/tracklog/pkg/core"
)

const (
	remoteMaxReconnect = 10
	remoteMaxBackoff   = 30 * time.Second
)

// remoteMessage is one JSON message from a live position feed. Type is
// "position" or "status"; the remaining fields depend on it.
type remoteMessage struct {
	Type string `json:"type"`

	Longitude float64 `json:"lon"`
	Latitude  float64 `json:"lat"`
	Elevation float64 `json:"elev"`
	Accuracy  float32 `json:"accuracy"`
	Speed     float32 `json:"speed"`
	Bearing   float32 `json:"bearing"`
	TimeMs    int64   `json:"time"`

	Event     string `json:"event"`
	UsedInFix int    `json:"satUsed"`
	Visible   int    `json:"satVisible"`
	Max       int    `json:"satMax"`
}

// Remote consumes a websocket feed of position and status messages,
// typically pushed by a phone or an NMEA bridge.
type Remote struct {
	rawURL string
	log    zerolog.Logger

	samples channel.Channel[*core.Sample]
	events  channel.Channel[StatusEvent]

	mu      sync.Mutex
	conn    *ws.Conn
	running bool
	stop    chan struct{}
	wg      sync.WaitGroup

	prev *core.Sample
}

var _ Provider = (*Remote)(nil)

// NewRemote creates a remote provider for the given websocket URL.
func NewRemote(log zerolog.Logger, rawURL string) *Remote {
	return &Remote{
		rawURL:  rawURL,
		log:     log.With().Str("component", "provider.remote").Logger(),
		samples: channel.New[*core.Sample](sampleChSize),
		events:  channel.New[StatusEvent](eventChSize),
	}
}

// Start dials the feed and launches the read loop. The dial error is
// returned so the caller can retry.
func (r *Remote) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return nil
	}

	conn, err := r.dialOnce()
	if err != nil {
		return err
	}
	r.conn = conn
	r.running = true
	r.stop = make(chan struct{})

	r.log.Info().Str("url", r.rawURL).Msg("remote provider connected")
	r.trySendEvent(StatusEvent{Kind: core.EventStarted})

	r.wg.Add(1)
	go r.readLoop(r.stop)
	return nil
}

func (r *Remote) dialOnce() (*ws.Conn, error) {
	u, err := url.Parse(r.rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid feed URL: %w", err)
	}
	conn, _, err := ws.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("feed dial failed: %w", err)
	}
	return conn, nil
}

// Stop closes the connection, ends the read loop and closes both
// channels.
func (r *Remote) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	close(r.stop)
	if r.conn != nil {
		r.conn.Close()
	}
	r.mu.Unlock()

	r.wg.Wait()
	r.samples.Close()
	r.events.Close()
	r.log.Info().Msg("remote provider stopped")
}

// Samples returns the sample stream.
func (r *Remote) Samples() channel.Receiver[*core.Sample] {
	return r.samples
}

// Events returns the status event stream.
func (r *Remote) Events() channel.Receiver[StatusEvent] {
	return r.events
}

func (r *Remote) readLoop(stop <-chan struct{}) {
	defer r.wg.Done()

	for {
		r.mu.Lock()
		conn := r.conn
		r.mu.Unlock()
		if conn == nil {
			return
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-stop:
				return
			default:
			}
			r.log.Warn().Err(err).Msg("feed read failed, reconnecting")
			r.trySendEvent(StatusEvent{Kind: core.EventStopped})
			if !r.reconnect(stop) {
				return
			}
			continue
		}

		var msg remoteMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			r.log.Warn().Err(err).Msg("dropping malformed feed message")
			continue
		}
		r.handle(msg)
	}
}

func (r *Remote) handle(msg remoteMessage) {
	switch msg.Type {
	case "position":
		ts := msg.TimeMs
		if ts == 0 {
			ts = time.Now().UnixMilli()
		}
		s := &core.Sample{
			Latitude:  msg.Latitude,
			Longitude: msg.Longitude,
			Altitude:  msg.Elevation,
			Accuracy:  msg.Accuracy,
			Speed:     msg.Speed,
			Bearing:   msg.Bearing,
			TimeMs:    ts,
			Previous:  r.prev,
		}
		// link the next sample to an unchained copy so consumers holding
		// a sample never retain the whole history
		cp := *s
		cp.Previous = nil
		r.prev = &cp
		r.trySendSample(s)
	case "status":
		r.trySendEvent(StatusEvent{
			Kind:      eventKind(msg.Event),
			UsedInFix: msg.UsedInFix,
			Visible:   msg.Visible,
			Max:       msg.Max,
		})
	default:
		r.log.Debug().Str("type", msg.Type).Msg("ignoring unknown feed message type")
	}
}

func eventKind(name string) core.ProviderEventKind {
	switch name {
	case "started":
		return core.EventStarted
	case "stopped":
		return core.EventStopped
	case "firstfix":
		return core.EventFirstFix
	default:
		return core.EventSatelliteStatus
	}
}

func (r *Remote) trySendSample(s *core.Sample) {
	if r.samples.Len() >= sampleChSize-1 {
		return
	}
	r.samples.Send(s)
}

func (r *Remote) trySendEvent(e StatusEvent) {
	if r.events.Len() >= eventChSize-1 {
		return
	}
	r.events.Send(e)
}

// reconnect re-dials with exponential backoff. It returns false when
// the retry budget is exhausted or the provider is stopping.
func (r *Remote) reconnect(stop <-chan struct{}) bool {
	r.mu.Lock()
	if r.conn != nil {
		r.conn.Close()
		r.conn = nil
	}
	r.mu.Unlock()

	backoff := time.Second
	for attempt := 1; attempt <= remoteMaxReconnect; attempt++ {
		select {
		case <-stop:
			return false
		case <-time.After(backoff):
		}

		conn, err := r.dialOnce()
		if err == nil {
			r.mu.Lock()
			r.conn = conn
			r.mu.Unlock()
			r.log.Info().Int("attempt", attempt).Msg("feed reconnected")
			r.trySendEvent(StatusEvent{Kind: core.EventStarted})
			return true
		}
		r.log.Warn().Err(err).Int("attempt", attempt).Msg("feed reconnect failed")

		backoff *= 2
		if backoff > remoteMaxBackoff {
			backoff = remoteMaxBackoff
		}
	}
	r.log.Error().Msg("feed reconnect attempts exhausted")
	return false
}
