package relayconn

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
)

// socket is the minimal surface this package needs from a WebSocket
// connection. Abstracting it behind an interface (rather than depending on
// *websocket.Conn directly everywhere) lets tests drive the state machine
// with an in-memory fake instead of a real network socket.
type socket interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetReadDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

// dialer opens a socket to a relay URL. The default implementation wraps
// gorilla/websocket, the teacher's own transport dependency (used there for
// its dashboard's server side; used here, as the corpus's underlying nostr
// stacks do, for the client dial direction).
type dialer func(ctx context.Context, url string) (socket, error)

func defaultDialer(ctx context.Context, url string) (socket, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}
