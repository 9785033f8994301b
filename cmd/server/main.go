// @title           CraftBox Server API
// @version         1.0
// @host            localhost
// @schemes         http https
// @BasePath        /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"context"
	"log"
	"net/http"

	"craftbox-server/internal/api"
	"craftbox-server/internal/config"
	"craftbox-server/internal/database"
	"craftbox-server/internal/storage"
	"craftbox-server/internal/tree"
	"craftbox-server/internal/websocket"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	_ "craftbox-server/docs"

	httpSwagger "github.com/swaggo/http-swagger"
)

func newBlobStore(cfg *config.Config) (tree.BlobStore, error) {
	if cfg.Storage.Driver == "s3" {
		return storage.NewS3Storage(context.Background(), cfg.Storage.S3)
	}
	return storage.NewLocalStorage(cfg.Storage.Path)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Nie można wczytać konfiguracji: %v", err)
	}

	dbpool, err := pgxpool.New(context.Background(), cfg.DB.Source)
	if err != nil {
		log.Fatalf("Nie można połączyć się z bazą danych: %v", err)
	}
	defer dbpool.Close()

	if err := dbpool.Ping(context.Background()); err != nil {
		log.Fatalf("Nie można pingować bazy danych: %v", err)
	}
	log.Println("Pomyślnie połączono z bazą danych")

	blobStore, err := newBlobStore(cfg)
	if err != nil {
		log.Fatalf("Nie można zainicjować magazynu plików: %v", err)
	}
	log.Printf("Magazyn plików: %s", cfg.Storage.Driver)

	wsHub := websocket.NewHub()
	go wsHub.Run()

	store := database.NewStore(dbpool, wsHub)
	server := api.NewServer(cfg, store, blobStore, wsHub)

	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(api.MetricsMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("https://localhost/swagger/doc.json"),
	))

	r.Get("/ws", server.ServeWsHandler)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Serwer CraftBox działa! Dokumentacja dostępna pod /swagger/index.html"))
	})

	r.Post("/api/v1/auth/login", server.LoginHandler)
	r.Post("/api/v1/auth/refresh", server.RefreshHandler)

	r.Get("/health", server.HealthCheckHandler)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(server.AuthMiddleware)
		r.Get("/me", server.GetCurrentUserHandler)
		r.Get("/usage", server.GetStorageUsageHandler)
		r.Get("/sessions", server.ListSessionsHandler)
		r.Delete("/sessions/{sessionId}", server.DeleteSessionHandler)
		r.Post("/sessions/terminate_all", server.TerminateAllSessionsHandler)
		r.Get("/nodes", server.ListNodesHandler)
		r.Post("/nodes/folder", server.CreateFolderHandler)
		r.Post("/nodes/file", server.UploadFileHandler)
		r.Get("/nodes/{nodeId}/download", server.DownloadFileHandler)
		r.Get("/nodes/{nodeId}/path", server.GetNodePathHandler)
		r.Post("/nodes/{nodeId}/repair", server.RepairNodePathsHandler)
		r.Patch("/nodes/{nodeId}", server.UpdateNodeHandler)
		r.Delete("/nodes/{nodeId}", server.DeleteNodeHandler)
		r.Get("/events", server.GetEventsHandler)
	})

	log.Println("Uruchamianie serwera na porcie :8080")
	if err := http.ListenAndServe(":8080", r); err != nil {
		log.Fatalf("Nie można uruchomić serwera: %v", err)
	}
}
