package sim

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nlq-workbench/client/internal/protocol"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Maximum message size allowed from peer.
	maxMessageSize = 8192
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// TODO: Implement proper origin checking in production
		return true
	},
}

// Server accepts /ws/query connections and drives the engine for every
// request read from the socket. Requests on one connection are served
// one turn at a time, frames strictly in order.
type Server struct {
	engine *Engine
}

// NewServer creates a WebSocket server around the given engine.
func NewServer(engine *Engine) *Server {
	return &Server{engine: engine}
}

// Engine returns the underlying pipeline engine.
func (s *Server) Engine() *Engine {
	return s.engine
}

// HandleConnection upgrades the HTTP request and serves the session
// until the peer disconnects.
func (s *Server) HandleConnection(w http.ResponseWriter, r *http.Request) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	s.serve(conn)
	return nil
}

// serve reads requests and replays the pipeline for each.
func (s *Server) serve(conn *websocket.Conn) {
	defer conn.Close()

	conn.SetReadLimit(maxMessageSize)
	writer := &frameWriter{conn: conn}

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("Query session read error: %v", err)
			}
			return
		}

		var req protocol.QueryRequest
		if err := json.Unmarshal(frame, &req); err != nil {
			writer.emit(envelope(protocol.KindError, protocol.ErrorPayload{
				Message: "malformed query request",
			}))
			continue
		}

		if err := req.Validate(); err != nil {
			writer.emit(envelope(protocol.KindError, protocol.ErrorPayload{
				Message: err.Error(),
			}))
			continue
		}

		if err := s.engine.Run(&req, writer.emit); err != nil {
			log.Printf("Query session write error: %v", err)
			return
		}
	}
}

// frameWriter serializes frame writes on one connection.
type frameWriter struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (w *frameWriter) emit(env *protocol.Envelope) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return w.conn.WriteJSON(env)
}
