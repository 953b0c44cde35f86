package api_test

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"slipclip/internal/api"
	"slipclip/internal/melee"
	"slipclip/internal/testsupport"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	testsupport.PutClips(t, store,
		testsupport.NewClip(t, "Game_1.slp", 0, melee.Fox, 20, 1),
		testsupport.NewClip(t, "Game_1.slp", 1, melee.Marth, 20, 1),
		testsupport.NewClip(t, "Game_2.slp", 2, melee.Fox, 20, 1),
	)
	return api.NewRouter(api.ServerConfig{Backend: cfg.Store.Backend, Store: store})
}

func get(t *testing.T, h http.Handler, target string, into any) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
	if into != nil {
		if err := json.NewDecoder(rr.Body).Decode(into); err != nil {
			t.Fatalf("decode %s: %v", target, err)
		}
	}
	return rr
}

func TestHealth(t *testing.T) {
	h := newTestRouter(t)
	var body api.HealthResponse
	rr := get(t, h, "/health", &body)
	if rr.Code != http.StatusOK || body.Status != "ok" || body.Backend != "directory" {
		t.Fatalf("health = %d %+v", rr.Code, body)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Fatal("missing X-Request-ID header")
	}
}

func TestCountClips(t *testing.T) {
	h := newTestRouter(t)
	tests := []struct {
		query string
		want  int
	}{
		{"", 3},
		{"?character=FOX", 2},
		{"?character=fox,marth", 3},
		{"?game_id=Game_1.slp", 2},
		{"?game_id=Game_1.slp&character=MARTH", 1},
		{"?where=clip_id>=1", 2},
		{"?partition=test", 0},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			var body api.CountResponse
			rr := get(t, h, "/clips/count"+tt.query, &body)
			if rr.Code != http.StatusOK {
				t.Fatalf("status = %d", rr.Code)
			}
			if body.Count != tt.want {
				t.Fatalf("count = %d, want %d", body.Count, tt.want)
			}
		})
	}
}

func TestListClips(t *testing.T) {
	h := newTestRouter(t)

	var body api.ClipsResponse
	rr := get(t, h, "/clips?character=FOX&limit=1", &body)
	if rr.Code != http.StatusOK || body.Count != 1 || len(body.Clips) != 1 {
		t.Fatalf("list = %d %+v", rr.Code, body)
	}
	c := body.Clips[0]
	if c.Character != "FOX" || c.CharacterName != "Fox" || c.Frames != 20 || c.Code != "TEST#1" {
		t.Fatalf("clip = %+v", c)
	}

	body = api.ClipsResponse{}
	get(t, h, "/clips?character=PICHU", &body)
	if body.Clips == nil || body.Count != 0 {
		t.Fatalf("empty list = %+v", body)
	}
}

func TestRejectsBadQueries(t *testing.T) {
	h := newTestRouter(t)
	for _, target := range []string{
		"/clips/count?character=WALUIGI",
		"/clips/count?where=stage=3",
		"/clips/count?where=nonsense",
		"/clips?limit=0",
		"/clips?limit=abc",
	} {
		var body api.ErrorResponse
		rr := get(t, h, target, &body)
		if rr.Code != http.StatusBadRequest || body.Code == "" {
			t.Fatalf("%s: %d %+v", target, rr.Code, body)
		}
	}
}

func TestServerShutsDownOnCancel(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	srv := api.NewServer(api.ServerConfig{Bind: "127.0.0.1:0", Store: store})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
