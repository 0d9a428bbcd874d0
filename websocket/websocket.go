// Package websocket holds the driver-side live telemetry ingestion
// connection registry behind the `/driver/location-stream` upgrade
// endpoint (Real-time Fan-out, driver websocket channel). It is
// the receiving half of real-time tracking: api/driver.go upgrades the
// HTTP connection and hands it to a Manager here, which owns the
// connection's lifecycle (registration, ping/pong liveness, teardown)
// while the handler decodes frames and writes them through to the store
// and the realtime.Hub.
package websocket

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// Message is one frame exchanged over a driver's location-stream socket.
type Message struct {
	Type      string                 `json:"type"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp string                 `json:"timestamp"`
	Error     string                 `json:"error,omitempty"`
}

const (
	MessageTypeConnectionEstablished = "connection_established"
	MessageTypeLocationAck           = "location_ack"
	MessageTypeError                 = "error"
	MessageTypePing                  = "ping"
	MessageTypePong                  = "pong"
)

func NewMessage(messageType string, data map[string]interface{}) Message {
	return Message{Type: messageType, Data: data, Timestamp: time.Now().Format(time.RFC3339)}
}

func NewErrorMessage(messageType, errMsg string) Message {
	return Message{Type: messageType, Timestamp: time.Now().Format(time.RFC3339), Error: errMsg}
}

// Connection wraps one driver's live socket with the metadata the Manager
// and ping loop need.
type Connection struct {
	Conn     *websocket.Conn
	DriverID string
	LastPing time.Time
	closed   int32 // atomic flag, 0 = open
}

func (c *Connection) IsClosed() bool { return atomic.LoadInt32(&c.closed) == 1 }

// Manager tracks the open driver location-stream connections for one
// process. Drivers are the only websocket-ingesting actor, so connections
// are keyed by driver id alone.
type Manager struct {
	connections     sync.Map // driverID -> *Connection
	connectionCount int64
}

func NewManager() *Manager {
	return &Manager{}
}

func (m *Manager) Add(driverID string, conn *websocket.Conn) *Connection {
	c := &Connection{Conn: conn, DriverID: driverID, LastPing: time.Now()}
	if prev, loaded := m.connections.Swap(driverID, c); loaded {
		atomic.StoreInt32(&prev.(*Connection).closed, 1)
		prev.(*Connection).Conn.Close()
	} else {
		atomic.AddInt64(&m.connectionCount, 1)
	}
	log.Printf("🔌 driver location-stream connected: %s", driverID)
	return c
}

func (m *Manager) Remove(driverID string) {
	if v, ok := m.connections.LoadAndDelete(driverID); ok {
		atomic.StoreInt32(&v.(*Connection).closed, 1)
		atomic.AddInt64(&m.connectionCount, -1)
		log.Printf("🔌 driver location-stream disconnected: %s", driverID)
	}
}

func (m *Manager) Send(driverID string, msg Message) error {
	v, ok := m.connections.Load(driverID)
	if !ok {
		return nil
	}
	conn := v.(*Connection)
	if conn.IsClosed() {
		return nil
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	conn.Conn.SetWriteDeadline(time.Now().Add(WriteTimeout))
	if err := conn.Conn.WriteMessage(websocket.TextMessage, body); err != nil {
		atomic.StoreInt32(&conn.closed, 1)
		return err
	}
	return nil
}

func (m *Manager) ConnectionCount() int {
	return int(atomic.LoadInt64(&m.connectionCount))
}

// StartPingPong keeps conn alive until conn is marked closed or a ping
// write fails, at which point the caller's read loop will observe the
// closed socket and unwind.
func (m *Manager) StartPingPong(conn *Connection) {
	ticker := time.NewTicker(PingInterval)
	defer ticker.Stop()
	for {
		if conn.IsClosed() {
			return
		}
		<-ticker.C
		if conn.IsClosed() {
			return
		}
		conn.Conn.SetWriteDeadline(time.Now().Add(WriteTimeout))
		if err := conn.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
			atomic.StoreInt32(&conn.closed, 1)
			return
		}
	}
}

const (
	PingInterval   = 30 * time.Second
	WriteTimeout   = 10 * time.Second
	ReadTimeout    = 10 * time.Second
	PongTimeout    = 60 * time.Second
	MaxMessageSize = 1024
)

// Upgrader is shared by every driver location-stream connection. Origin
// checking is left permissive here and is expected to be enforced by an
// upstream proxy/ingress.
var Upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}
