package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Seednode/lanparty/internal/discovery"
	"github.com/Seednode/lanparty/internal/session"
	"github.com/Seednode/lanparty/internal/wire"
)

func startHost(t *testing.T, cfg *Config) (*Host, *stubBackend) {
	t.Helper()

	backend := &stubBackend{}

	h, err := newHost(cfg, backend, zerolog.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, h.Start(ctx))

	t.Cleanup(func() {
		h.Stop()
		cancel()
	})

	return h, backend
}

func nextEvent(t *testing.T, cl *session.Client) wire.Event {
	t.Helper()

	select {
	case ev, ok := <-cl.Events():
		require.True(t, ok)
		return ev
	case <-time.After(waitFor):
		t.Fatal("timed out waiting for event")
		return wire.Event{}
	}
}

func TestNewHostRejectsUnknownCategory(t *testing.T) {
	cfg := testConfig()
	cfg.category = "Nope"

	_, err := newHost(cfg, &stubBackend{}, zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Animals")
}

func TestHostConsoleImpostorRound(t *testing.T) {
	h, backend := startHost(t, testConfig())

	assert.Equal(t, 1, backend.liveCount())
	assert.Equal(t, []string{"test-session _impostor._tcp."}, backend.published)

	cl := session.Connect(context.Background(), "127.0.0.1", h.srv.Port())
	defer cl.Disconnect()
	require.Equal(t, wire.Category, nextEvent(t, cl).Name)

	reply, err := h.Command("players")
	require.NoError(t, err)
	assert.Equal(t, "1 of 20 players connected, plus you", reply)

	reply, err = h.Command("start")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(reply, "round started with 1 impostor(s)."), reply)
	assert.Zero(t, backend.liveCount(), "starting a round must withdraw the advertisement")

	var got []string
	for range 8 {
		got = append(got, nextEvent(t, cl).Name)
	}
	assert.Equal(t, wire.GameStarted, got[7])

	a, ok := h.lastAssignment()
	require.True(t, ok)
	assert.Equal(t, 0, a.PlayerIndex)

	reply, err = h.Command("category Food")
	require.NoError(t, err)
	assert.Equal(t, "category is now Food", reply)
	assert.Equal(t, 1, backend.liveCount())
	assert.Equal(t, wire.Event{Name: wire.Category, Payload: "Food"}, nextEvent(t, cl))
	assert.False(t, h.Status().Started)
}

func TestHostConsoleCommands(t *testing.T) {
	cfg := testConfig()
	cfg.game = "guessword"
	h, _ := startHost(t, cfg)

	reply, err := h.Command("start")
	require.NoError(t, err)
	assert.Contains(t, reply, "word")

	reply, err = h.Command("word")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(reply, "your word: "))

	reply, err = h.Command("category")
	require.NoError(t, err)
	assert.Contains(t, reply, "Animals")

	_, err = h.Command("category Nope")
	assert.Error(t, err)

	_, err = h.Command("dance")
	assert.Error(t, err)

	_, err = h.Command("quit")
	assert.ErrorIs(t, err, errQuit)

	reply, err = h.Command("   ")
	assert.NoError(t, err)
	assert.Empty(t, reply)
}

func TestHostCharadesRound(t *testing.T) {
	cfg := testConfig()
	cfg.game = "charades"
	cfg.actors = 4
	cfg.wordCount = 2
	h, _ := startHost(t, cfg)

	cl := session.Connect(context.Background(), "127.0.0.1", h.srv.Port())
	defer cl.Disconnect()
	require.Equal(t, wire.Category, nextEvent(t, cl).Name)

	reply, err := h.Command("start")
	require.NoError(t, err)
	assert.Contains(t, reply, "1 actor(s)")
}

func TestHostSurvivesUnavailableDiscovery(t *testing.T) {
	backend := &stubBackend{unavailable: discovery.ErrUnavailable}

	h, err := newHost(testConfig(), backend, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, h.Start(t.Context()))
	defer h.Stop()

	st := h.Status()
	assert.False(t, st.Published)
	assert.False(t, st.Discoverable)
	assert.NotZero(t, st.Port)
}

func TestConsoleStopsOnQuit(t *testing.T) {
	var out strings.Builder

	var seen []string
	err := console(context.Background(), strings.NewReader("one\nbad\nquit\nnever\n"), &out, func(line string) (string, error) {
		seen = append(seen, line)
		switch line {
		case "bad":
			return "", assert.AnError
		case "quit":
			return "", errQuit
		}
		return "ok " + line, nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"one", "bad", "quit"}, seen)
	assert.Equal(t, "ok one\nerror: "+assert.AnError.Error()+"\n", out.String())
}

func TestDashboardRoutes(t *testing.T) {
	cfg := testConfig()
	h, _ := startHost(t, cfg)

	ts := httptest.NewServer(newRouter(cfg, h))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "Ok\n", string(body))

	resp, err = http.Get(ts.URL + "/status")
	require.NoError(t, err)
	var st Status
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	resp.Body.Close()
	assert.Equal(t, "impostor", st.Game)
	assert.Equal(t, "Animals", st.Category)
	assert.Equal(t, h.srv.Port(), st.Port)
	assert.True(t, st.Published)

	resp, err = http.Get(ts.URL + "/qr")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))

	resp, err = http.Get(ts.URL + "/version")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "lanparty v"+releaseVersion+"\n", string(body))

	resp, err = http.Get(ts.URL + "/pprof/heap")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDashboardFeed(t *testing.T) {
	cfg := testConfig()
	h, _ := startHost(t, cfg)

	ts := httptest.NewServer(newRouter(cfg, h))
	defer ts.Close()

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer ws.Close()

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(waitFor)))

	var n Notice
	require.NoError(t, ws.ReadJSON(&n))
	assert.Equal(t, "status", n.Type)
	require.NotNil(t, n.Status)
	assert.Equal(t, "test-session", n.Status.Service)

	_, err = h.Command("start")
	require.NoError(t, err)

	for {
		var next Notice
		require.NoError(t, ws.ReadJSON(&next))
		if next.Type == "assignment" {
			require.NotNil(t, next.Assignment)
			assert.Equal(t, 0, next.Assignment.PlayerIndex)
			assert.NotEmpty(t, next.Assignment.Word)
			break
		}
	}
}

func TestStatusNoticeCarriesSnapshot(t *testing.T) {
	h, _ := startHost(t, testConfig())

	n := h.statusNotice()
	assert.Equal(t, "status", n.Type)
	require.NotNil(t, n.Status)
	assert.Equal(t, h.Status(), *n.Status)
	assert.Nil(t, n.Assignment)
}
