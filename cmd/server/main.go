package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/coder/websocket"
	"github.com/gorilla/mux"

	"github.com/inamate/visualdrag/internal/asset"
	"github.com/inamate/visualdrag/internal/auth"
	"github.com/inamate/visualdrag/internal/canvas"
	"github.com/inamate/visualdrag/internal/config"
	"github.com/inamate/visualdrag/internal/document"
	"github.com/inamate/visualdrag/internal/export"
	"github.com/inamate/visualdrag/internal/live"
	mw "github.com/inamate/visualdrag/internal/middleware"
	"github.com/inamate/visualdrag/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Level()})))

	engineOpts, err := cfg.EngineOptions()
	if err != nil {
		slog.Error("engine options", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := store.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	st := store.New(pool)
	if err := st.Migrate(ctx); err != nil {
		slog.Error("migrate database", "error", err)
		os.Exit(1)
	}

	authService := auth.NewService(cfg.JWTSecret)

	canvasService := canvas.NewService(st, authService, engineOpts.Editor.MaxCanvas)
	canvasHandler := canvas.NewHandler(canvasService, engineOpts.Palette)

	// Document saver for live sessions
	docSaver := func(ctx context.Context, canvasID string, doc *document.Document) (int, bool, error) {
		res, err := canvasService.SaveDocument(ctx, canvasID, doc)
		if err != nil {
			return 0, false, err
		}
		return res.Version, res.Saved, nil
	}

	hub := live.NewHub(canvasService.LoadDocument, docSaver, live.HubOptions{
		Engine:   engineOpts,
		Autosave: cfg.AutosaveInterval,
	})
	go hub.Run()

	assetHandler := asset.NewHandler(cfg.AssetDir)

	exportOpts := export.DefaultOptions()
	exportOpts.Snap = engineOpts.Gesture.Snap
	exportHandler := export.NewHandler(canvasService.LoadDocument, canvas.ErrNotFound, exportOpts)

	r := mux.NewRouter()

	// Global middleware
	r.Use(mw.Recovery)
	r.Use(mw.Logger)
	r.Use(mw.CORS(cfg.Origins()))

	// Preflight for every path; CORS answers it
	r.Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Asset endpoints
	r.HandleFunc("/assets/upload", assetHandler.Upload).Methods("POST")
	r.HandleFunc("/assets/{assetId}", assetHandler.Remove).Methods("DELETE")
	r.PathPrefix("/assets/").Handler(assetHandler.Serve()).Methods("GET")

	// Public API routes
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/palette", canvasHandler.Palette).Methods("GET")
	api.HandleFunc("/canvases", canvasHandler.List).Methods("GET")
	api.HandleFunc("/canvases", canvasHandler.Create).Methods("POST")
	api.HandleFunc("/canvases/{canvasId}/token", canvasHandler.Token).Methods("POST")

	// Routes that need a token for the canvas in the path
	protected := api.PathPrefix("/canvases/{canvasId}").Subrouter()
	protected.Use(authService.AuthMiddleware)
	protected.HandleFunc("", canvasHandler.Get).Methods("GET")
	protected.HandleFunc("", canvasHandler.Delete).Methods("DELETE")
	protected.HandleFunc("/document", canvasHandler.GetDocument).Methods("GET")
	protected.HandleFunc("/document", canvasHandler.SaveDocument).Methods("PUT")
	protected.HandleFunc("/wireframe.png", exportHandler.Wireframe).Methods("GET")

	// WebSocket endpoint
	r.HandleFunc("/ws/canvas/{canvasId}", func(w http.ResponseWriter, r *http.Request) {
		handleWebSocket(w, r, hub, authService, cfg.Origins())
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server")

		// Stop hub first so open sessions are saved
		slog.Info("saving open sessions")
		hub.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("server starting", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func handleWebSocket(w http.ResponseWriter, r *http.Request, hub *live.Hub, authSvc *auth.Service, origins []string) {
	canvasID := mux.Vars(r)["canvasId"]

	// Browsers cannot set headers on websocket requests; the token rides in the query.
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}
	tokenCanvas, err := authSvc.ValidateToken(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}
	if tokenCanvas != canvasID {
		http.Error(w, "token not valid for this canvas", http.StatusForbidden)
		return
	}

	patterns := make([]string, len(origins))
	for i, o := range origins {
		patterns[i] = strings.TrimPrefix(strings.TrimPrefix(o, "https://"), "http://")
	}
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: patterns,
	})
	if err != nil {
		slog.Error("websocket accept", "error", err)
		return
	}

	ctx := r.Context()
	client := live.NewClient(hub, conn, canvasID)
	if err := hub.Register(ctx, client); err != nil {
		status := websocket.StatusInternalError
		if errors.Is(err, live.ErrCanvasBusy) || errors.Is(err, canvas.ErrNotFound) {
			status = websocket.StatusPolicyViolation
		}
		slog.Warn("open session", "error", err, "canvas", canvasID)
		conn.Close(status, err.Error())
		return
	}

	go client.WritePump(ctx)
	client.ReadPump(ctx)
}
