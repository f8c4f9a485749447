// Package stream broadcasts tick records to websocket subscribers.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/san-kum/swervesim/internal/dynamo"
)

const (
	// Path is where the websocket endpoint is mounted.
	Path = "/ws"

	clientBuffer = 64
	writeTimeout = 2 * time.Second
)

type client struct {
	conn *websocket.Conn
	out  chan []byte
}

// Hub is a dynamo.Sink that fans each kept record out to every connected
// subscriber. Slow subscribers drop messages instead of stalling the run.
type Hub struct {
	every int64
	log   zerolog.Logger

	upgrader websocket.Upgrader
	srv      *http.Server

	mu      sync.Mutex
	clients map[*client]struct{}
	n       int64
	closed  bool
	wg      sync.WaitGroup
}

// NewHub keeps one record in every; values below 1 keep all of them.
func NewHub(every int, log zerolog.Logger) *Hub {
	if every < 1 {
		every = 1
	}
	return &Hub{
		every:   int64(every),
		log:     log,
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Listen serves the hub on addr until Close. It returns the bound address,
// which matters when addr asks for port 0.
func (h *Hub) Listen(addr string) (string, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", err
	}
	mux := http.NewServeMux()
	mux.HandleFunc(Path, h.Handler())

	h.mu.Lock()
	h.srv = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	srv := h.srv
	h.mu.Unlock()

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			h.log.Error().Err(err).Msg("stream server stopped")
		}
	}()
	h.log.Info().Str("addr", ln.Addr().String()).Msg("streaming ticks")
	return ln.Addr().String(), nil
}

func (h *Hub) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := h.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		c := &client{conn: conn, out: make(chan []byte, clientBuffer)}
		if !h.add(c) {
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "run finished"), time.Now().Add(time.Second))
			conn.Close()
			return
		}

		go func() {
			defer h.wg.Done()
			h.writeLoop(c)
		}()

		// Subscribers never send; reading detects the close.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.remove(c)
				return
			}
		}
	}
}

// add registers c and counts its write loop, which the caller must start,
// under the same lock Close takes, so Close never waits on a zero counter
// that is about to grow.
func (h *Hub) add(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	h.wg.Add(1)
	return true
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.out)
	}
}

func (h *Hub) writeLoop(c *client) {
	defer c.conn.Close()
	for b := range c.out {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
			h.remove(c)
			for range c.out {
			}
			return
		}
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
}

// Clients reports the number of connected subscribers.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Persist returns the record's sequence number, starting at 1, whether or
// not it was broadcast.
func (h *Hub) Persist(ctx context.Context, rec dynamo.TickRecord) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return 0, errors.New("stream hub closed")
	}
	h.n++
	id := h.n
	if (id-1)%h.every != 0 || len(h.clients) == 0 {
		return id, nil
	}

	b, err := json.Marshal(rec)
	if err != nil {
		return 0, err
	}
	for c := range h.clients {
		select {
		case c.out <- b:
		default:
		}
	}
	return id, nil
}

func (h *Hub) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.out)
	}
	srv := h.srv
	h.mu.Unlock()

	var err error
	if srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		err = srv.Shutdown(ctx)
	}
	h.wg.Wait()
	return err
}
