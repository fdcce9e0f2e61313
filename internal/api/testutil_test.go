package api

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/require"

	storycolor "github.com/storyloom/storyloom-server/internal/color"
	"github.com/storyloom/storyloom-server/internal/config"
	"github.com/storyloom/storyloom-server/internal/history"
	"github.com/storyloom/storyloom-server/internal/id"
	"github.com/storyloom/storyloom-server/internal/llm"
	"github.com/storyloom/storyloom-server/internal/logger"
	"github.com/storyloom/storyloom-server/internal/ratelimit"
	"github.com/storyloom/storyloom-server/internal/repository"
	"github.com/storyloom/storyloom-server/internal/service"
	"github.com/storyloom/storyloom-server/internal/sse"
	"github.com/storyloom/storyloom-server/internal/store"
)

// testEnvelope is the decoded form of every huma response.
type testEnvelope[T any] struct {
	Version int    `json:"v"`
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Error   string `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details"`
}

type testServer struct {
	server  *Server
	api     humatest.TestAPI
	backend *store.Memory
	llm     *llm.MockClient
	cfg     *config.Config
}

type testOption func(*testServerOptions)

type testServerOptions struct {
	noChat  bool
	limiter *ratelimit.KeyedRateLimiter
	cascade bool
}

func withoutChat() testOption {
	return func(o *testServerOptions) { o.noChat = true }
}

func withChatLimiter(l *ratelimit.KeyedRateLimiter) testOption {
	return func(o *testServerOptions) { o.limiter = l }
}

func withoutCascade() testOption {
	return func(o *testServerOptions) { o.cascade = false }
}

// setupTestServer wires a server over an in-memory backend.
func setupTestServer(t *testing.T, opts ...testOption) *testServer {
	t.Helper()

	o := testServerOptions{cascade: true}
	for _, opt := range opts {
		opt(&o)
	}

	log := logger.Discard().Logger
	backend := store.NewMemory()
	t.Cleanup(func() { _ = backend.Close() })

	cfg := &config.Config{
		Server: config.ServerConfig{
			Name:          "Test Storyloom",
			PublicBaseURL: "http://localhost:5000",
		},
		Storage:  config.StorageConfig{Backend: "memory", SyncPolicy: string(repository.SyncAuto)},
		AI:       config.AIConfig{Provider: config.ProviderMock},
		Drawings: config.DrawingsConfig{CascadeDelete: o.cascade, HistoryLimit: 50, HistoryMaxEntries: 1000},
	}

	ids := id.NewSequence()
	sync := repository.NewSync(backend, repository.SyncAuto, repository.NoopEmitter{})
	sessions := history.NewSessions(cfg.Drawings.HistoryLimit, time.Hour)
	drawings := repository.NewDrawings(backend, repository.NoopEmitter{},
		storycolor.NewPalette(rand.New(rand.NewPCG(1, 2))), log, repository.WithHistory(sessions))

	slideOpts := []repository.SlidesOption{
		repository.WithCoverPicker(func() string { return "/covers/book1.jpg" }),
	}
	if o.cascade {
		slideOpts = append(slideOpts, repository.WithDrawingInvalidator(drawings))
	}

	mock := llm.NewMockClient()
	services := &Services{
		Books:    repository.NewBooks(sync, ids, log),
		Slides:   repository.NewSlides(sync, ids, log, slideOpts...),
		Drawings: drawings,
		History:  sessions,
	}
	if !o.noChat {
		services.Chat = service.NewChatService(mock, service.NewGenerations(), "", log)
	}

	srv := NewServer(cfg, backend, services, sse.NewManager(log), o.limiter, log)

	return &testServer{
		server:  srv,
		api:     humatest.Wrap(t, srv.API()),
		backend: backend,
		llm:     mock,
		cfg:     cfg,
	}
}

// do sends a raw request through the full router, middleware included.
func (ts *testServer) do(t *testing.T, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for _, h := range headers {
		name, value, ok := strings.Cut(h, ":")
		require.True(t, ok, "header %q", h)
		req.Header.Set(strings.TrimSpace(name), strings.TrimSpace(value))
	}
	rec := httptest.NewRecorder()
	ts.server.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope[T any](t *testing.T, resp *httptest.ResponseRecorder) testEnvelope[T] {
	t.Helper()

	var envelope testEnvelope[T]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope), resp.Body.String())
	return envelope
}

func requireStatus(t *testing.T, want int, resp *httptest.ResponseRecorder) {
	t.Helper()
	require.Equal(t, want, resp.Code, resp.Body.String())
}

// pngDataURL returns a solid w×h PNG as a data URL.
func pngDataURL(t *testing.T, w, h int) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, color.RGBA{R: 200, G: 80, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

var _ http.Handler = (*Server)(nil)
