package websocket_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gwebsocket "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tkahng/boxes/websocket"
)

func testUpgrader() gwebsocket.Upgrader {
	// nolint:exhaustruct
	return gwebsocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}
}

func TestServeWS_Echo(t *testing.T) {
	testBytes := []byte("testing")

	// synchronization helpers
	doneReg := make(chan websocket.Client)
	// both pumps fire onDestroy; buffer so the second send does not block
	doneUnreg := make(chan websocket.Client, 2)

	var c websocket.Client

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	manager := websocket.NewManager()
	go manager.Run(ctx)

	h := websocket.ServeWS(
		testUpgrader(),
		websocket.DefaultSetupConn,
		websocket.NewClient,
		func(ctx context.Context, cf context.CancelFunc, _c websocket.Client) {
			c = _c
			manager.RegisterClient(ctx, cf, c)
			doneReg <- c
		},
		func(_c websocket.Client) {
			manager.UnregisterClient(_c)
			_c.Wait()
			doneUnreg <- _c
		},
		50*time.Second,
		[]websocket.MessageHandler{func(c websocket.Client, b []byte) { _, _ = c.Write(b) }},
	)

	s := httptest.NewServer(h)
	defer s.Close()

	rawWS, _, err := gwebsocket.DefaultDialer.Dial(
		"ws"+strings.TrimPrefix(s.URL, "http"), nil)
	require.NoError(t, err)
	defer func() {
		_ = rawWS.Close()
	}()

	// once registration is done, the manager should have one client
	<-doneReg
	assert.Len(t, manager.Clients(), 1)

	// write a message to the server; this is echoed back
	err = rawWS.WriteMessage(gwebsocket.TextMessage, testBytes)
	require.NoError(t, err)
	_, msg, err := rawWS.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, testBytes, msg)

	// closing the connection triggers cleanup and unregistration
	_ = rawWS.WriteControl(gwebsocket.CloseMessage, nil, time.Now().Add(1*time.Second))
	unregistered := <-doneUnreg
	assert.Empty(t, manager.Clients())
	assert.Equal(t, c, unregistered)
}

func TestBroadcaster(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := websocket.NewBroadcaster()
	go b.Run(ctx)

	doneReg := make(chan struct{})

	h := websocket.ServeWS(
		testUpgrader(),
		websocket.DefaultSetupConn,
		websocket.NewClient,
		func(ctx context.Context, cf context.CancelFunc, c websocket.Client) {
			b.RegisterClient(ctx, cf, c)
			doneReg <- struct{}{}
		},
		func(c websocket.Client) {
			b.UnregisterClient(c)
		},
		50*time.Second,
		nil,
	)

	s := httptest.NewServer(h)
	defer s.Close()

	url := "ws" + strings.TrimPrefix(s.URL, "http")
	first, _, err := gwebsocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer func() { _ = first.Close() }()
	<-doneReg

	second, _, err := gwebsocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer func() { _ = second.Close() }()
	<-doneReg

	require.Len(t, b.Clients(), 2)

	payload := []byte(`{"type":"game_state"}`)
	require.NoError(t, b.Broadcast(payload))

	for _, conn := range []*gwebsocket.Conn{first, second} {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, msg, err := conn.ReadMessage()
		require.NoError(t, err)
		assert.Equal(t, payload, msg)
	}
}
