// Package serve exposes the inference engine over HTTP: a JSON
// classification endpoint, a WebSocket stream for interactive use, and
// Prometheus metrics.
package serve

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"textheads/internal/engine"
	"textheads/internal/metrics"
)

// ClassifyRequest is the incoming classification request. Either a
// single text or a batch may be given.
type ClassifyRequest struct {
	Text  string   `json:"text,omitempty"`
	Texts []string `json:"texts,omitempty"`
}

// Server serves classification requests over HTTP and WebSocket.
type Server struct {
	engine  *engine.Engine
	metrics *metrics.Metrics
	server  *http.Server
}

// New builds the server on the given port.
func New(eng *engine.Engine, m *metrics.Metrics, port int) *Server {
	s := &Server{engine: eng, metrics: m}

	mux := http.NewServeMux()
	mux.HandleFunc("/classify", s.handleClassify)
	mux.HandleFunc("/heads", s.handleHeads)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ws", s.handleWS)
	mux.Handle("/metrics", promhttp.Handler())

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	log.Info().Str("addr", s.server.Addr).Msg("starting classification server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// handleClassify scores the request texts and streams back one
// JSON-Lines record per text, the same shape the CLI emits.
func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.metrics.RequestsTotal.Inc()

	var req ClassifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request: %v", err), http.StatusBadRequest)
		return
	}
	texts := req.Texts
	if req.Text != "" {
		texts = append([]string{req.Text}, texts...)
	}
	if len(texts) == 0 {
		http.Error(w, "no input texts", http.StatusBadRequest)
		return
	}

	records := make([]engine.Record, 0, len(texts))
	for _, text := range texts {
		scores, err := s.engine.Evaluate(text)
		if err != nil {
			log.Error().Err(err).Msg("classification failed")
			http.Error(w, fmt.Sprintf("classification failed: %v", err), http.StatusInternalServerError)
			return
		}
		records = append(records, engine.Record{Text: text, Scores: scores})
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	if err := engine.WriteJSONL(w, records, true); err != nil {
		log.Error().Err(err).Msg("failed to write response")
	}
}

func (s *Server) handleHeads(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	type headInfo struct {
		Head      string  `json:"head"`
		Threshold float64 `json:"threshold"`
	}
	heads := make([]headInfo, 0)
	for _, h := range s.engine.Heads() {
		heads = append(heads, headInfo{Head: h, Threshold: s.engine.Threshold(h)})
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(heads); err != nil {
		log.Error().Err(err).Msg("failed to write heads response")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status":"ok","heads":%d}`, len(s.engine.Heads()))
}
