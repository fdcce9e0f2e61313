package sse

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startManager(t *testing.T) *Manager {
	t.Helper()
	m := NewManager(slog.New(slog.DiscardHandler))
	ctx, cancel := context.WithCancel(context.Background())
	go m.Start(ctx)
	t.Cleanup(func() {
		cancel()
		_ = m.Shutdown(context.Background())
	})
	return m
}

func receive(t *testing.T, c *Client) (Event, bool) {
	t.Helper()
	select {
	case e := <-c.EventChan:
		return e, true
	case <-time.After(200 * time.Millisecond):
		return Event{}, false
	}
}

func TestManager_TopicFiltering(t *testing.T) {
	m := startManager(t)

	all, err := m.Connect()
	require.NoError(t, err)
	books, err := m.Connect("books")
	require.NoError(t, err)
	slides, err := m.Connect("slides:theme")
	require.NoError(t, err)
	assert.Equal(t, 3, m.ClientCount())

	m.Emit(NewRecordSavedEvent("books", "1"))

	e, ok := receive(t, all)
	require.True(t, ok)
	assert.Equal(t, EventRecordSaved, e.Type)
	assert.NotEmpty(t, e.ID)

	_, ok = receive(t, books)
	assert.True(t, ok)

	_, ok = receive(t, slides)
	assert.False(t, ok, "slides subscriber must not see book events")
}

func TestManager_UntopicalEventsReachEveryone(t *testing.T) {
	m := startManager(t)

	c, err := m.Connect("books")
	require.NoError(t, err)

	m.Emit(NewSettingChangedEvent("drawing_aiPanelOpen", true))

	e, ok := receive(t, c)
	require.True(t, ok)
	assert.Equal(t, EventSettingChanged, e.Type)
}

func TestManager_IgnoresForeignEventTypes(t *testing.T) {
	m := startManager(t)
	c, err := m.Connect()
	require.NoError(t, err)

	m.Emit("not an event")

	_, ok := receive(t, c)
	assert.False(t, ok)
}

func TestManager_DisconnectAndShutdown(t *testing.T) {
	m := NewManager(slog.New(slog.DiscardHandler))

	c, err := m.Connect()
	require.NoError(t, err)
	m.Disconnect(c.ID)
	m.Disconnect(c.ID)
	assert.Zero(t, m.ClientCount())

	require.NoError(t, m.Shutdown(context.Background()))
	require.NoError(t, m.Shutdown(context.Background()))

	// Emitting after shutdown is a silent no-op.
	m.Emit(NewHeartbeatEvent())
}

func TestHandler_StreamsConnectedFrame(t *testing.T) {
	m := startManager(t)
	h := NewHandler(m, slog.New(slog.DiscardHandler))

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequestWithContext(ctx, http.MethodGet, "/api/v1/events?topics=books,%20drawings", nil)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		h.ServeHTTP(rec, req)
		close(done)
	}()

	require.Eventually(t, func() bool { return m.ClientCount() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "event: connected\n"))
}

func TestHandler_RejectsNonGet(t *testing.T) {
	h := NewHandler(NewManager(slog.New(slog.DiscardHandler)), slog.New(slog.DiscardHandler))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/events", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
