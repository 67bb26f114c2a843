// Package websocket wraps gorilla/websocket connections behind a small
// Client/Manager API with a single reader and a single writer goroutine
// per connection.
//
// Adapted from https://github.com/brojonat/websocket by Jon Brown.
package websocket

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// DefaultSetupConn configures read limits and pong-refreshed read
// deadlines on a freshly upgraded connection.
func DefaultSetupConn(c *websocket.Conn) {
	pw := 60 * time.Second
	c.SetReadLimit(512)
	_ = c.SetReadDeadline(time.Now().Add(pw))
	c.SetPongHandler(func(string) error {
		_ = c.SetReadDeadline(time.Now().Add(pw))
		return nil
	})
}

// Client is an interface for reading from and writing to a websocket
// connection. It sits between a service and a client connection.
type Client interface {
	io.Writer
	io.Closer

	// WriteForever is responsible for writing messages to the client,
	// including the regularly spaced ping messages
	WriteForever(context.Context, func(Client), time.Duration)

	// ReadForever is responsible for reading messages from the client and
	// passing them to the message handlers
	ReadForever(context.Context, func(Client), ...MessageHandler)

	Conn() *websocket.Conn

	// Wait blocks until the client is done processing messages
	Wait()
}

// MessageHandler handles a single message received from the client.
type MessageHandler func(Client, []byte)

// ServeWS upgrades HTTP connections to WebSocket, creates the Client,
// calls the onCreate callback, and starts the read/write goroutines.
func ServeWS(
	upgrader websocket.Upgrader,
	connSetup func(*websocket.Conn),
	clientFactory func(*websocket.Conn) Client,
	onCreate func(context.Context, context.CancelFunc, Client),
	onDestroy func(Client),
	ping time.Duration,
	msgHandlers []MessageHandler,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// if Upgrade fails it closes the connection, so just return
			return
		}
		connSetup(conn)
		client := clientFactory(conn)
		ctx, cf := context.WithCancel(context.Background())
		onCreate(ctx, cf, client)

		// all writes happen in this goroutine, ensuring only one write on
		// the connection at a time
		go client.WriteForever(ctx, onDestroy, ping)

		// all reads happen in this goroutine, ensuring only one reader on
		// the connection at a time
		go client.ReadForever(ctx, onDestroy, msgHandlers...)
	}
}

type client struct {
	wg     *sync.WaitGroup
	conn   *websocket.Conn
	egress chan []byte
	logger *slog.Logger
}

// NewClient returns a new Client from a *websocket.Conn. This can be
// passed to ServeWS as the client factory arg.
func NewClient(c *websocket.Conn) Client {
	// add 2 to the wait group for the read/write goroutines
	wg := &sync.WaitGroup{}
	wg.Add(2)
	return &client{
		wg:     wg,
		conn:   c,
		egress: make(chan []byte, 32),
		logger: slog.New(slog.NewJSONHandler(os.Stdout, nil)),
	}
}

func (c *client) Conn() *websocket.Conn {
	return c.conn
}

// Write implements the Writer interface; the payload is queued for the
// write goroutine.
func (c *client) Write(p []byte) (int, error) {
	c.egress <- p
	return len(p), nil
}

// Close implements the Closer interface. Calling Close more than once is
// undefined; this implementation swallows all errors.
func (c *client) Close() error {
	_ = c.conn.WriteControl(websocket.CloseMessage, []byte{}, time.Time{})
	_ = c.conn.Close()
	return nil
}

// WriteForever serially drains the egress channel onto the connection and
// emits pings on the given interval.
func (c *client) WriteForever(ctx context.Context, onDestroy func(Client), ping time.Duration) {
	pingTicker := time.NewTicker(ping)
	defer func() {
		c.wg.Done()
		pingTicker.Stop()
		onDestroy(c)
	}()

	for {
		select {
		case <-ctx.Done():
			_ = c.conn.WriteMessage(websocket.CloseMessage, nil)
			return
		case msgBytes, ok := <-c.egress:
			// ok is false when the egress channel is closed
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msgBytes); err != nil {
				c.logger.Error("error writing message", "error", err)
				return
			}
		case <-pingTicker.C:
			if err := c.conn.WriteMessage(websocket.PingMessage, []byte{}); err != nil {
				c.logger.Error("error writing ping", "error", err)
				return
			}
		}
	}
}

// ReadForever reads messages from the client and passes each one to the
// supplied handlers. Messages are processed serially; the handlers for one
// message run concurrently.
func (c *client) ReadForever(ctx context.Context, onDestroy func(Client), handlers ...MessageHandler) {
	defer func() {
		c.wg.Done()
		onDestroy(c)
	}()

	ingress := make(chan []byte)
	errCancel := make(chan error)

	// read forever and push into ingress
	go func() {
		for {
			_, payload, err := c.conn.ReadMessage()
			if err != nil {
				errCancel <- err
				return
			}
			ingress <- payload
		}
	}()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("read loop cancelled, shutting down")
			return
		case err := <-errCancel:
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				c.logger.Info("read loop encountered error, shutting down", "error", err.Error())
			} else {
				c.logger.Info("client connection closed in read loop")
			}
			return
		case payload := <-ingress:
			var wg sync.WaitGroup
			wg.Add(len(handlers))
			for _, h := range handlers {
				go func(h MessageHandler) {
					h(c, payload)
					wg.Done()
				}(h)
			}
			wg.Wait()
		}
	}
}

// Wait blocks until the read/write goroutines have completed
func (c *client) Wait() {
	c.wg.Wait()
}

// Manager maintains a set of Clients.
type Manager interface {
	Clients() []Client
	RegisterClient(context.Context, context.CancelFunc, Client)
	UnregisterClient(Client)
	Run(context.Context)
}

type manager struct {
	mu         *sync.RWMutex
	clients    map[Client]context.CancelFunc
	register   chan regreq
	unregister chan regreq
}

type regreq struct {
	context context.Context
	cancel  context.CancelFunc
	client  Client
	done    chan struct{}
}

func NewManager() Manager {
	return &manager{
		mu:         &sync.RWMutex{},
		clients:    make(map[Client]context.CancelFunc),
		register:   make(chan regreq),
		unregister: make(chan regreq),
	}
}

// Clients returns the currently managed Clients.
func (m *manager) Clients() []Client {
	res := []Client{}
	m.mu.RLock()
	defer m.mu.RUnlock()

	for c := range m.clients {
		res = append(res, c)
	}
	return res
}

// RegisterClient adds the Client to the Manager's store.
func (m *manager) RegisterClient(ctx context.Context, cf context.CancelFunc, c Client) {
	done := make(chan struct{})
	m.register <- regreq{
		context: ctx,
		cancel:  cf,
		client:  c,
		done:    done,
	}
	<-done
}

// UnregisterClient removes the Client from the Manager's store.
func (m *manager) UnregisterClient(c Client) {
	done := make(chan struct{})
	m.unregister <- regreq{
		context: nil,
		cancel:  nil,
		client:  c,
		done:    done,
	}
	<-done
}

// Run runs in its own goroutine processing (un)registration requests.
func (m *manager) Run(ctx context.Context) {
	cleanupClient := func(c Client) {
		cancel, ok := m.clients[c]
		if ok {
			cancel()
		}
		delete(m.clients, c)
		_ = c.Close()
	}

	for {
		select {
		case <-ctx.Done():
			m.mu.Lock()
			for client := range m.clients {
				cleanupClient(client)
			}
			m.mu.Unlock()
			return

		case rr := <-m.register:
			m.mu.Lock()
			m.clients[rr.client] = rr.cancel
			m.mu.Unlock()
			rr.done <- struct{}{}

		case rr := <-m.unregister:
			m.mu.Lock()
			if _, ok := m.clients[rr.client]; ok {
				cleanupClient(rr.client)
			}
			m.mu.Unlock()
			rr.done <- struct{}{}
		}
	}
}

// Broadcaster is a Manager with a Broadcast method that writes the
// supplied message to all clients.
type Broadcaster interface {
	Manager
	Broadcast([]byte) error
}

type broadcaster struct {
	*manager
}

func NewBroadcaster() Broadcaster {
	m := manager{
		mu:         &sync.RWMutex{},
		clients:    make(map[Client]context.CancelFunc),
		register:   make(chan regreq),
		unregister: make(chan regreq),
	}
	return &broadcaster{
		manager: &m,
	}
}

func (bb *broadcaster) Broadcast(b []byte) error {
	bb.mu.Lock()
	defer bb.mu.Unlock()
	var errs []error
	for w := range bb.clients {
		_, err := w.Write(b)
		if err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
