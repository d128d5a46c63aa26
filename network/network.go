package network

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/fsoubelet/toychain/full_node"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Server exposes one node over HTTP.
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
}

// NewRouter wires every endpoint of the node.
func NewRouter(sev *full_node.FullNodeServer, logger *zap.Logger) *mux.Router {
	h := &handler{sev: sev, logger: logger}
	r := mux.NewRouter()
	r.Use(h.logRequests)

	r.HandleFunc("/", h.root).Methods(http.MethodGet)
	r.HandleFunc("/mine", h.mine).Methods(http.MethodGet)
	r.HandleFunc("/transactions/new", h.newTransaction).Methods(http.MethodPost)
	r.HandleFunc("/transactions/pending", h.pendingTransactions).Methods(http.MethodGet)
	r.HandleFunc("/nodes", h.nodes).Methods(http.MethodGet)
	r.HandleFunc("/nodes/register", h.registerNodes).Methods(http.MethodPost)
	r.HandleFunc("/nodes/resolve", h.resolve).Methods(http.MethodGet)
	r.HandleFunc("/chain", h.chain).Methods(http.MethodGet)
	return r
}

func NewServer(addr string, sev *full_node.FullNodeServer, logger *zap.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           NewRouter(sev, logger),
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Start serves HTTP requests and blocks until the server is shut down.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP API server", zap.String("addr", s.httpServer.Addr))
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
