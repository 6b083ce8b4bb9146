package rpcbridge

import (
	"net/http"

	"github.com/gorilla/websocket"
)

// wsTransport adapts a *websocket.Conn to Transport, the alternate
// wire carrier resolving spec.md §9's Open Question alongside the
// stdio transport (supervisor flag --rpc-transport=tcp).
type wsTransport struct {
	conn *websocket.Conn
}

func newWSTransport(conn *websocket.Conn) *wsTransport {
	return &wsTransport{conn: conn}
}

func (t *wsTransport) ReadFrame() ([]byte, error) {
	_, data, err := t.conn.ReadMessage()
	return data, err
}

func (t *wsTransport) WriteFrame(line []byte) error {
	return t.conn.WriteMessage(websocket.TextMessage, line)
}

func (t *wsTransport) Close() error {
	return t.conn.Close()
}

// upgrader used by the supervisor's RPC listener. Origin checking is
// irrelevant here: the only client is the locally spawned worker
// process dialing over loopback.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Upgrade promotes an incoming HTTP connection on the RPC listener to
// a Transport.
func Upgrade(w http.ResponseWriter, r *http.Request) (Transport, error) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}
	return newWSTransport(conn), nil
}

// Dial connects to a supervisor RPC listener at addr (used by the
// worker when --rpc-transport=tcp).
func Dial(addr string) (Transport, error) {
	conn, _, err := websocket.DefaultDialer.Dial("ws://"+addr+"/rpc", nil)
	if err != nil {
		return nil, err
	}
	return newWSTransport(conn), nil
}
