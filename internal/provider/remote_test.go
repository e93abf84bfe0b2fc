package provider

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/geopaparazzi/tracklog/pkg/core"
)

func feedServer(t *testing.T, messages []string) *httptest.Server {
	t.Helper()
	upgrader := ws.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		for _, m := range messages {
			if err := conn.WriteMessage(ws.TextMessage, []byte(m)); err != nil {
				return
			}
		}
		// hold the connection open until the client goes away
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestRemoteParsesPositions(t *testing.T) {
	srv := feedServer(t, []string{
		`{"type":"status","event":"firstfix","satUsed":5,"satVisible":8,"satMax":24}`,
		`{"type":"position","lon":11.1,"lat":46.2,"elev":230,"accuracy":4,"speed":1.2,"bearing":90,"time":1700000000000}`,
		`{"type":"position","lon":11.2,"lat":46.3,"elev":231,"accuracy":4,"time":1700000001000}`,
		`{"not":"json"`,
		`{"type":"position","lon":11.3,"lat":46.4,"elev":232,"accuracy":4,"time":1700000002000}`,
	})
	defer srv.Close()

	r := NewRemote(zerolog.Nop(), wsURL(srv))
	if err := r.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer r.Stop()

	var got []*core.Sample
	timeout := time.After(3 * time.Second)
	for len(got) < 3 {
		select {
		case s := <-r.Samples().Receive():
			got = append(got, s)
		case <-timeout:
			t.Fatal("samples not delivered")
		}
	}

	if got[0].Longitude != 11.1 || got[0].Latitude != 46.2 || got[0].TimeMs != 1700000000000 {
		t.Fatalf("first sample = %+v", got[0])
	}
	p := got[2].Previous
	if p == nil || p.TimeMs != got[1].TimeMs {
		t.Fatal("samples should be back-linked to the prior reading")
	}
	if p.Previous != nil {
		t.Fatal("back links must not chain beyond one sample")
	}
}

func TestRemoteParsesStatusEvents(t *testing.T) {
	srv := feedServer(t, []string{
		`{"type":"status","event":"firstfix","satUsed":5,"satVisible":8,"satMax":24}`,
		`{"type":"status","event":"satellites","satUsed":6,"satVisible":9,"satMax":24}`,
	})
	defer srv.Close()

	r := NewRemote(zerolog.Nop(), wsURL(srv))
	if err := r.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer r.Stop()

	// the provider prepends its own started event
	want := []core.ProviderEventKind{core.EventStarted, core.EventFirstFix, core.EventSatelliteStatus}
	for _, kind := range want {
		select {
		case e := <-r.Events().Receive():
			if e.Kind != kind {
				t.Fatalf("event = %v, want %v", e.Kind, kind)
			}
			if kind == core.EventFirstFix && e.UsedInFix != 5 {
				t.Fatalf("satUsed = %d", e.UsedInFix)
			}
		case <-time.After(3 * time.Second):
			t.Fatalf("timed out waiting for %v", kind)
		}
	}
}

func TestRemoteStartFailsWhenUnreachable(t *testing.T) {
	r := NewRemote(zerolog.Nop(), "ws://127.0.0.1:1/feed")
	if err := r.Start(); err == nil {
		t.Fatal("expected dial error")
	}
}

func TestRemoteStopIsIdempotent(t *testing.T) {
	srv := feedServer(t, nil)
	defer srv.Close()

	r := NewRemote(zerolog.Nop(), wsURL(srv))
	if err := r.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	r.Stop()
	r.Stop()

	if _, ok := <-r.Samples().Receive(); ok {
		t.Fatal("samples channel should be closed")
	}
}
