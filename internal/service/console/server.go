package console

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/kapu/game-character-etl/internal/constants"
)

// QueryRequest is one message read from a /ws/query connection.
type QueryRequest struct {
	Database string `json:"database"`
	Query    string `json:"query"`
}

// QueryResponse carries either a result or an error message.
type QueryResponse struct {
	Columns   []string `json:"columns,omitempty"`
	Rows      [][]any  `json:"rows,omitempty"`
	Truncated bool     `json:"truncated,omitempty"`
	ElapsedMS int64    `json:"elapsed_ms"`
	Error     string   `json:"error,omitempty"`
}

type Server struct {
	service  *Service
	logger   *zap.Logger
	upgrader websocket.Upgrader
	http     *http.Server
}

func NewServer(addr string, service *Service, logger *zap.Logger) *Server {
	s := &Server{
		service: service,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: constants.ConsoleConfig.ReadTimeout,
	}
	return s
}

func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/databases", s.handleDatabases).Methods(http.MethodGet)
	r.HandleFunc("/api/databases/{database}/schemas/{schema}/examples", s.handleExamples).Methods(http.MethodGet)
	r.HandleFunc("/ws/query", s.handleQuery)
	return r
}

// ListenAndServe blocks until ctx is cancelled or the listener fails.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Console server listening", zap.String("addr", s.http.Addr))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ConsoleConfig.WriteTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info("Console server stopped")
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDatabases(w http.ResponseWriter, r *http.Request) {
	views, err := s.service.Describe(r.Context())
	if err != nil {
		s.logger.Error("Failed to describe databases", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleExamples(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	examples, err := s.service.Examples(vars["database"], vars["schema"])
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, examples)
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	conn.SetReadLimit(constants.ConsoleConfig.MaxMessageSize)

	s.logger.Info("Console client connected", zap.String("remote", r.RemoteAddr))
	defer s.logger.Info("Console client disconnected", zap.String("remote", r.RemoteAddr))

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("WebSocket read error", zap.Error(err))
			}
			return
		}

		response := s.execute(r.Context(), data)

		_ = conn.SetWriteDeadline(time.Now().Add(constants.ConsoleConfig.WriteTimeout))
		if err := conn.WriteJSON(response); err != nil {
			s.logger.Warn("WebSocket write error", zap.Error(err))
			return
		}
	}
}

func (s *Server) execute(ctx context.Context, data []byte) QueryResponse {
	var request QueryRequest
	if err := json.Unmarshal(data, &request); err != nil {
		return QueryResponse{Error: "invalid request: " + err.Error()}
	}

	result, err := s.service.Run(ctx, request.Database, request.Query)
	if err != nil {
		return QueryResponse{Error: err.Error()}
	}
	return QueryResponse{
		Columns:   result.Columns,
		Rows:      result.Rows,
		Truncated: result.Truncated,
		ElapsedMS: result.Elapsed.Milliseconds(),
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
