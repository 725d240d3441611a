// Host dashboard feed
//
// The dashboard follows the session live over a websocket at /ws:
// - Every new viewer first gets a "status" notice with the current session
// - Roster and category changes push a fresh "status" notice to all viewers
// - Starting a round pushes an "assignment" notice with the host's own role
//   and word, so the host can keep their phone face down and read it here
// - Viewers never send anything meaningful; reads only detect disconnects
// - A viewer that cannot keep up is dropped rather than slowing the host

package main

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"

	"github.com/Seednode/lanparty/internal/game"
)

// Notice is one message on the dashboard feed.
type Notice struct {
	Type       string           `json:"type"` // "status" or "assignment"
	Status     *Status          `json:"status,omitempty"`
	Assignment *game.Assignment `json:"assignment,omitempty"`
}

type viewer struct {
	conn *websocket.Conn
	send chan any
}

// Hub fans notices out to every connected dashboard viewer.
type Hub struct {
	log      zerolog.Logger
	snapshot func() any

	viewers   map[*viewer]bool
	register  chan *viewer
	unreg     chan *viewer
	broadcast chan any
	done      chan struct{}
}

func newHub(log zerolog.Logger, snapshot func() any) *Hub {
	return &Hub{
		log:       log,
		snapshot:  snapshot,
		viewers:   make(map[*viewer]bool),
		register:  make(chan *viewer),
		unreg:     make(chan *viewer),
		broadcast: make(chan any, 16),
		done:      make(chan struct{}),
	}
}

func (h *Hub) run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for v := range h.viewers {
				delete(h.viewers, v)
				close(v.send)
			}
			return

		case v := <-h.register:
			h.viewers[v] = true

			select {
			case v.send <- h.snapshot():
			default:
			}

		case v := <-h.unreg:
			if _, ok := h.viewers[v]; ok {
				delete(h.viewers, v)
				close(v.send)
			}

		case msg := <-h.broadcast:
			for v := range h.viewers {
				select {
				case v.send <- msg:
				default:
					delete(h.viewers, v)
					close(v.send)
				}
			}
		}
	}
}

// Publish queues msg for every viewer without blocking the caller; when the
// hub is backed up the notice is dropped, and the next one supersedes it.
func (h *Hub) Publish(msg any) {
	select {
	case h.broadcast <- msg:
	default:
		h.log.Debug().Msg("dashboard feed backed up, dropping notice")
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

func serveFeed(h *Hub) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.log.Debug().Err(err).Msg("websocket upgrade failed")
			return
		}

		v := &viewer{
			conn: conn,
			send: make(chan any, 8),
		}

		select {
		case h.register <- v:
		case <-h.done:
			_ = conn.Close()
			return
		}

		go v.writePump()
		v.readPump(h)
	}
}

func (v *viewer) readPump(h *Hub) {
	defer func() {
		select {
		case h.unreg <- v:
		case <-h.done:
		}
		_ = v.conn.Close()
	}()

	for {
		if _, _, err := v.conn.NextReader(); err != nil {
			return
		}
	}
}

func (v *viewer) writePump() {
	defer v.conn.Close()

	for msg := range v.send {
		if err := v.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}
