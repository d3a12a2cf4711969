// Command jigsaw serves the jigsaw puzzle engine.
//
// It supports these modes:
//  1. "server" (default) – runs the HTTP server exposing REST API, WebSocket, and an /mcp HTTP endpoint
//  2. "stdio-mcp" – runs an MCP stdio server and spins up an internal HTTP API if none is available
//  3. "play" – solves a puzzle in the terminal with the mouse
//  4. "progress" – inspects, clears, imports and summarizes saved progress
//
// Flags control host/port, preset and data directories, the progress store,
// logging, and optional ngrok tunneling for easy external access during development.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/inconshreveable/log15"
	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/wricardo/mcp-training/jigsaw/api"
	"github.com/wricardo/mcp-training/jigsaw/game/config"
	"github.com/wricardo/mcp-training/jigsaw/game/progress"
	"github.com/wricardo/mcp-training/jigsaw/game/service"
	"github.com/wricardo/mcp-training/jigsaw/game/session"
	"github.com/wricardo/mcp-training/jigsaw/game/tiles"
	"github.com/wricardo/mcp-training/jigsaw/logging"
	"github.com/wricardo/mcp-training/jigsaw/transport/mcp"
	"github.com/wricardo/mcp-training/jigsaw/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Jigsaw Puzzle Server"
)

// Store backends selectable with --store.
const (
	storeFile   = "file"
	storeSQLite = "sqlite"
	storeMemory = "memory"
)

const (
	idleSessionTTL       = 24 * time.Hour
	cleanupInterval      = time.Hour
	progressSyncInterval = 5 * time.Second
)

// app carries what the commands share once flags are parsed.
type app struct {
	log    log15.Logger
	logOut io.Writer
	// envErr is the result of loading .env, reported once logging is up.
	envErr error
}

// services is everything initializeServices wires together.
type services struct {
	store    *progress.Store
	presets  *config.Manager
	sessions *session.Manager
	puzzles  service.PuzzleService
	hub      *websocket.Hub
	tiles    *tiles.Renderer
}

// main loads .env, parses flags and starts the selected mode.
func main() {
	// Load .env file if it exists (ignore error if not found)
	a := &app{logOut: os.Stderr, envErr: godotenv.Load()}
	cmd := a.command()
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", cmd.Name, err)
		os.Exit(1)
	}
}

// command builds the CLI. Root flags are visible to every subcommand.
func (a *app) command() *cli.Command {
	return &cli.Command{
		Name:           "jigsaw",
		Usage:          AppName,
		Version:        Version,
		DefaultCommand: "server",
		Before:         a.before,
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "port", Value: 8080, Usage: "HTTP server port", Sources: cli.EnvVars("PORT")},
			&cli.StringFlag{Name: "host", Value: "localhost", Usage: "HTTP server host", Sources: cli.EnvVars("HOST")},
			&cli.StringFlag{Name: "presets-dir", Value: "presets", Usage: "Directory containing difficulty presets", Sources: cli.EnvVars("PRESETS_DIR")},
			&cli.StringFlag{Name: "images-dir", Value: ".", Usage: "Directory image references resolve against", Sources: cli.EnvVars("IMAGES_DIR")},
			&cli.BoolFlag{Name: "remote-images", Usage: "Allow http(s) image references for piece tiles", Sources: cli.EnvVars("REMOTE_IMAGES")},
			&cli.StringFlag{Name: "static-dir", Usage: "Serve a web frontend from this directory", Sources: cli.EnvVars("STATIC_DIR")},
			&cli.StringFlag{Name: "store", Value: storeFile, Usage: "Progress store: file, sqlite or memory", Sources: cli.EnvVars("PROGRESS_STORE")},
			&cli.StringFlag{Name: "data-dir", Value: "data", Usage: "Directory for saved progress", Sources: cli.EnvVars("DATA_DIR")},
			&cli.StringFlag{Name: "namespace", Value: progress.DefaultNamespace, Usage: "Progress namespace (file name or database name)", Sources: cli.EnvVars("PROGRESS_NAMESPACE")},
			&cli.StringFlag{Name: "log-level", Value: "info", Usage: "Log level: debug, info, warn, error", Sources: cli.EnvVars("LOG_LEVEL")},
			&cli.StringFlag{Name: "log-format", Value: "logfmt", Usage: "Log format: logfmt, terminal or json", Sources: cli.EnvVars("LOG_FORMAT")},
			&cli.StringFlag{Name: "log-file", Usage: "Append logs to this file instead of stderr", Sources: cli.EnvVars("LOG_FILE")},
			&cli.BoolFlag{Name: "debug", Usage: "Enable debug logging"},
			&cli.BoolFlag{Name: "ngrok", Usage: "Enable ngrok tunnel", Sources: cli.EnvVars("NGROK_ENABLED")},
			&cli.StringFlag{Name: "ngrok-auth", Usage: "Ngrok auth token", Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN")},
			&cli.StringFlag{Name: "ngrok-domain", Usage: "Custom ngrok domain (optional)", Sources: cli.EnvVars("NGROK_DOMAIN")},
		},
		Commands: []*cli.Command{
			{
				Name:    "server",
				Aliases: []string{"http"},
				Usage:   "Run HTTP server with API, WebSocket, and MCP endpoint",
				Action:  a.runServer,
			},
			{
				Name:    "stdio-mcp",
				Aliases: []string{"mcp-stdio", "mcp"},
				Usage:   "Run MCP stdio server with internal HTTP server",
				Action:  a.runStdioMCP,
			},
			a.playCommand(),
			a.progressCommand(),
		},
	}
}

func (a *app) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if err := a.setupLogging(cmd); err != nil {
		return ctx, err
	}
	switch {
	case a.envErr == nil:
		a.log.Debug("Loaded environment variables from .env file")
	case !os.IsNotExist(a.envErr):
		a.log.Warn("Error loading .env file", "err", a.envErr)
	}
	return ctx, nil
}

// setupLogging builds the root logger from the logging flags.
func (a *app) setupLogging(cmd *cli.Command) error {
	level := cmd.String("log-level")
	if cmd.Bool("debug") {
		level = "debug"
	}
	out := a.logOut
	if path := cmd.String("log-file"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		out = f
	}
	a.log = logging.New(logging.Options{Level: level, Format: cmd.String("log-format"), Writer: out})
	return nil
}

// openStore opens the progress backend selected by --store.
func openStore(cmd *cli.Command, logger log15.Logger) (*progress.Store, error) {
	dataDir := cmd.String("data-dir")
	namespace := cmd.String("namespace")

	var backend progress.Backend
	switch kind := cmd.String("store"); kind {
	case storeMemory:
		backend = progress.NewMemoryBackend()
	case storeFile:
		fb, err := progress.NewFileBackend(dataDir, namespace)
		if err != nil {
			return nil, fmt.Errorf("failed to create file store: %w", err)
		}
		backend = fb
	case storeSQLite:
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		db, err := progress.OpenSQLiteBackend(filepath.Join(dataDir, namespace+".db"))
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		backend = db
	default:
		return nil, fmt.Errorf("unknown store %q (want %s, %s or %s)", kind, storeFile, storeSQLite, storeMemory)
	}
	logger.Info("Progress store ready", "store", cmd.String("store"), "data_dir", dataDir, "namespace", namespace)
	return progress.NewStore(backend, logger), nil
}

// initializeServices wires the store, preset and session managers, the
// websocket hub and the puzzle service. In-progress puzzles are reopened.
func initializeServices(cmd *cli.Command, logger log15.Logger) (*services, error) {
	store, err := openStore(cmd, logger)
	if err != nil {
		return nil, err
	}

	presets, err := config.NewManager(cmd.String("presets-dir"))
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to create preset manager: %w", err)
	}

	sessions := session.NewManager(store, logger)
	sessions.Restore(store.GetAll(), presets.GetDefault().Settings)

	hub := websocket.NewHub(logger)
	go hub.Run()

	puzzles := service.NewPuzzleService(sessions, store, presets,
		service.WithLogger(logger),
		service.WithCompletionHook(func(st session.State) {
			hub.BroadcastEvent(st.PuzzleID, websocket.EventPuzzleCompleted, map[string]interface{}{
				"message": service.MessageCompleted,
				"state":   st,
			})
		}),
	)

	loader := tiles.NewLoader(cmd.String("images-dir"))
	loader.AllowRemote = cmd.Bool("remote-images")
	renderer := tiles.NewRenderer(loader, tiles.WithLogger(logger))

	return &services{
		store:    store,
		presets:  presets,
		sessions: sessions,
		puzzles:  puzzles,
		hub:      hub,
		tiles:    renderer,
	}, nil
}

func (s *services) Close() error {
	return s.store.Close()
}

// apiServer builds the REST/WebSocket handler for the services.
func (s *services) apiServer(cmd *cli.Command, logger log15.Logger) *api.Server {
	opts := []api.Option{api.WithLogger(logger), api.WithTiles(s.tiles)}
	if dir := cmd.String("static-dir"); dir != "" {
		opts = append(opts, api.WithStaticDir(dir))
	}
	return api.NewServer(s.puzzles, s.hub, opts...)
}

// mcpHandler serves MCP JSON-RPC messages over plain HTTP POST.
func mcpHandler(mcpClient *mcp.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := mcpClient.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	}
}

// runServer starts the HTTP server with REST API, WebSocket hub, and an /mcp endpoint.
// If ngrok is enabled it also provisions a public tunnel.
func (a *app) runServer(ctx context.Context, cmd *cli.Command) error {
	a.log.Info("Starting "+AppName, "version", Version, "mode", "server")

	svcs, err := initializeServices(cmd, a.log)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer svcs.Close()

	addr := fmt.Sprintf("%s:%d", cmd.String("host"), cmd.Int("port"))
	baseURL := fmt.Sprintf("http://%s", addr)
	mcpClient := mcp.NewClient(baseURL)

	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", svcs.apiServer(cmd, a.log))
	mainRouter.HandleFunc("/mcp", mcpHandler(mcpClient))

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mainRouter,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var wg sync.WaitGroup
	serverErr := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()

		a.log.Info("HTTP server listening", "addr", addr)
		a.log.Info("Endpoints",
			"api", baseURL+"/api",
			"websocket", fmt.Sprintf("ws://%s/ws?puzzle=<puzzle_id>", addr),
			"mcp", baseURL+"/mcp")

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
			cancel()
		}
	}()

	wg.Add(2)
	go func() {
		defer wg.Done()
		sessionCleanupRoutine(ctx, svcs.sessions, a.log)
	}()
	go func() {
		defer wg.Done()
		progressSyncRoutine(ctx, svcs.sessions, svcs.store, a.log)
	}()

	if cmd.Bool("ngrok") {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.runNgrok(ctx, cmd, mainRouter)
		}()
	}

	<-ctx.Done()
	a.log.Info("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		a.log.Error("HTTP server shutdown error", "err", err)
	}

	wg.Wait()
	a.log.Info("Server stopped")

	select {
	case err := <-serverErr:
		return fmt.Errorf("HTTP server failed: %w", err)
	default:
		return nil
	}
}

// runNgrok serves handler through an ngrok tunnel until ctx is done.
func (a *app) runNgrok(ctx context.Context, cmd *cli.Command, handler http.Handler) {
	authToken := cmd.String("ngrok-auth")
	if authToken == "" {
		a.log.Warn("Ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN env var)")
		return
	}

	a.log.Info("Starting ngrok tunnel...")

	var tunnel ngrokConfig.Tunnel
	if domain := cmd.String("ngrok-domain"); domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(domain))
		a.log.Info("Using custom ngrok domain", "domain", domain)
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(authToken))
	if err != nil {
		a.log.Error("Failed to start ngrok tunnel", "err", err)
		return
	}
	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			a.log.Error("Failed to close ngrok tunnel", "err", err)
		}
	}()

	ngrokURL := tun.URL()
	a.log.Info("Ngrok tunnel established",
		"url", ngrokURL,
		"api", ngrokURL+"/api",
		"websocket", ngrokURL+"/ws?puzzle=<puzzle_id>",
		"mcp", ngrokURL+"/mcp")

	if err := http.Serve(tun, handler); err != nil && err != http.ErrServerClosed && ctx.Err() == nil {
		a.log.Error("Ngrok server error", "err", err)
	}
	a.log.Info("Ngrok tunnel closed")
}

// sessionCleanupRoutine periodically closes puzzles nobody has touched
// within idleSessionTTL. Their progress stays in the store.
func sessionCleanupRoutine(ctx context.Context, manager *session.Manager, logger log15.Logger) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := manager.CleanupIdle(idleSessionTTL); removed > 0 {
				logger.Info("Closed idle puzzles", "count", removed)
			}
		}
	}
}

// progressSyncRoutine periodically closes open puzzles whose saved progress
// was cleared behind the server's back (another process, a deleted file).
func progressSyncRoutine(ctx context.Context, manager *session.Manager, store *progress.Store, logger log15.Logger) {
	ticker := time.NewTicker(progressSyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if pruned := pruneCleared(manager, store, logger); pruned > 0 {
				logger.Info("Progress sync: closed puzzles without saved progress", "count", pruned)
			}
		}
	}
}

// pruneCleared closes open puzzles whose saved record was deleted. Puzzles
// whose last save failed, and records the store cannot read, are kept: the
// open session may be the only copy of that progress.
func pruneCleared(manager *session.Manager, store *progress.Store, logger log15.Logger) int {
	pruned := 0
	for _, sess := range manager.List() {
		if !sess.State().Persisted || !store.Missing(sess.ID()) {
			continue
		}
		if err := manager.Close(sess.ID()); err == nil {
			pruned++
			logger.Debug("Closed puzzle (progress cleared)", "puzzle", sess.ID())
		}
	}
	return pruned
}

// runStdioMCP runs an MCP stdio server.
// It tries to reuse an API at the configured host/port; if unavailable, it
// starts an internal HTTP API bound to a random loopback port and targets that.
func (a *app) runStdioMCP(ctx context.Context, cmd *cli.Command) error {
	externalURL := fmt.Sprintf("http://%s:%d", cmd.String("host"), cmd.Int("port"))
	a.log.Info("Checking for external API server", "url", externalURL)

	baseURL := externalURL
	testClient := &http.Client{Timeout: 2 * time.Second}
	resp, err := testClient.Get(externalURL + "/health")
	if err == nil && resp.StatusCode < 500 {
		resp.Body.Close()
		a.log.Info("External API server found, using it for MCP", "url", externalURL)
	} else {
		if resp != nil {
			resp.Body.Close()
		}
		a.log.Info("No external API server found, starting internal HTTP server")

		svcs, err := initializeServices(cmd, a.log)
		if err != nil {
			return fmt.Errorf("failed to initialize services: %w", err)
		}
		defer svcs.Close()

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}

		httpServer := &http.Server{Handler: svcs.apiServer(cmd, a.log)}
		go func() {
			if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
				a.log.Error("Internal HTTP server error", "err", err)
			}
		}()
		defer httpServer.Close()

		baseURL = fmt.Sprintf("http://%s", listener.Addr().String())
		a.log.Info("Internal HTTP server started for MCP stdio", "url", baseURL)
	}

	mcpClient := mcp.NewClient(baseURL)
	a.log.Info("MCP stdio server ready", "api", baseURL)

	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}
