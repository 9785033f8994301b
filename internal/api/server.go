package api

import (
	"net/http"

	"craftbox-server/internal/config"
	"craftbox-server/internal/database"
	"craftbox-server/internal/tree"
	"craftbox-server/internal/websocket"
)

type Server struct {
	config  *config.Config
	store   *database.PostgresStore
	storage tree.BlobStore
	tree    *tree.Service
	wsHub   *websocket.Hub
}

func NewServer(cfg *config.Config, store *database.PostgresStore, storage tree.BlobStore, wsHub *websocket.Hub) *Server {
	return &Server{
		config:  cfg,
		store:   store,
		storage: storage,
		tree:    tree.NewService(store, storage),
		wsHub:   wsHub,
	}
}

// @Summary      Health check
// @Tags         system
// @Success      200  {string}  string "ok"
// @Router       /health [get]
func (s *Server) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.store.GetPool().Ping(r.Context()); err != nil {
		http.Error(w, "database unreachable", http.StatusServiceUnavailable)
		return
	}
	w.Write([]byte("ok"))
}
