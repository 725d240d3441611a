package session

import (
	"context"
	"math/rand/v2"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Seednode/lanparty/internal/game"
	"github.com/Seednode/lanparty/internal/wire"
	"github.com/Seednode/lanparty/internal/words"
)

var testLists = map[string][]string{
	"Animals": {"Otter", "Giraffe", "Penguin", "Octopus", "Kangaroo", "Hedgehog", "Walrus", "Sloth", "Koala", "Beaver"},
	"Food":    {"Lasagna", "Pancake", "Sushi", "Burrito", "Popcorn", "Waffle", "Ramen"},
	"Colors":  {"Teal", "Mauve", "Ochre"},
}

type countingAdvertiser struct {
	n atomic.Int32
}

func (a *countingAdvertiser) Unpublish() {
	a.n.Add(1)
}

type harness struct {
	srv     *Server
	port    int
	adv     *countingAdvertiser
	roster  chan int
	assigns chan game.Assignment
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()

	h := &harness{
		adv:     &countingAdvertiser{},
		roster:  make(chan int, 64),
		assigns: make(chan game.Assignment, 4),
	}

	if opts.Bind == "" {
		opts.Bind = "127.0.0.1"
	}
	if opts.RequestRate == 0 {
		opts.RequestRate = 1000
		opts.RequestBurst = 100
	}
	opts.Rand = rand.New(rand.NewPCG(42, 7))
	opts.Advertiser = h.adv
	opts.OnRosterChange = func(n int) { h.roster <- n }
	opts.OnHostAssignment = func(a game.Assignment) { h.assigns <- a }

	dist := words.NewDistributor(words.NewLists(testLists), words.WithRand(rand.New(rand.NewPCG(9, 9))))
	h.srv = NewServer(dist, opts)

	port, err := h.srv.Start("Animals")
	require.NoError(t, err)
	h.port = port

	t.Cleanup(h.srv.Stop)

	return h
}

// join connects a client and waits for its category, so clients join in
// call order.
func (h *harness) join(t *testing.T) *Client {
	t.Helper()

	cl := Connect(context.Background(), "127.0.0.1", h.port)
	t.Cleanup(cl.Disconnect)

	ev := next(t, cl)
	require.Equal(t, wire.Category, ev.Name)

	return cl
}

func next(t *testing.T, cl *Client) wire.Event {
	t.Helper()

	select {
	case ev, ok := <-cl.Events():
		require.True(t, ok, "events closed")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return wire.Event{}
	}
}

func collect(t *testing.T, cl *Client, n int) []wire.Event {
	t.Helper()

	out := make([]wire.Event, 0, n)
	for range n {
		out = append(out, next(t, cl))
	}

	return out
}

func names(evs []wire.Event) []string {
	out := make([]string, len(evs))
	for i, ev := range evs {
		out[i] = ev.Name
	}

	return out
}

func expectQuiet(t *testing.T, cl *Client, wait time.Duration) {
	t.Helper()

	select {
	case ev, ok := <-cl.Events():
		if ok {
			t.Fatalf("unexpected event %s", ev)
		}
	case <-time.After(wait):
	}
}
