package serve

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"textheads/internal/engine"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

const wsWriteTimeout = 10 * time.Second

// handleWS upgrades the connection and scores each incoming text
// message, replying with the JSON-Lines record for that text. The
// session ends when the client closes the connection.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	s.metrics.WSConnections.Inc()
	defer s.metrics.WSConnections.Dec()

	for {
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn().Err(err).Msg("websocket read failed")
			}
			return
		}
		if msgType != websocket.TextMessage || len(msg) == 0 {
			continue
		}

		scores, err := s.engine.Evaluate(string(msg))
		if err != nil {
			log.Error().Err(err).Msg("websocket classification failed")
			return
		}
		rec := engine.Record{Text: string(msg), Scores: scores}
		line, err := rec.MarshalJSONL(true)
		if err != nil {
			log.Error().Err(err).Msg("failed to encode record")
			return
		}

		conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, line); err != nil {
			log.Warn().Err(err).Msg("websocket write failed")
			return
		}
	}
}
