// Command agentrouted runs the query routing service over HTTP.
package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/halcyonworks/agentroute"
	"github.com/halcyonworks/agentroute/internal/adapters/ollama"
	"github.com/halcyonworks/agentroute/internal/cache"
	"github.com/halcyonworks/agentroute/internal/config"
	"github.com/halcyonworks/agentroute/internal/engine"
	"github.com/halcyonworks/agentroute/internal/eventbus"
	"github.com/halcyonworks/agentroute/internal/history"
	"github.com/halcyonworks/agentroute/internal/knowledge"
	"github.com/halcyonworks/agentroute/internal/metrics"
)

func main() {
	configPath := flag.String("config", "", "path to YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runtime, cleanup, err := buildRuntime(ctx, cfg)
	if err != nil {
		log.Fatalf("Startup error: %v", err)
	}
	defer cleanup()

	server := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: newHandler(runtime),
	}

	go func() {
		log.Printf("Listening (addr: %s)", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}

// buildRuntime assembles the collaborators according to the configuration.
func buildRuntime(ctx context.Context, cfg config.Config) (*agentroute.Runtime, func(), error) {
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	// Knowledge corpus: directory if configured, otherwise the seed set.
	corpus := knowledge.NewCorpus(knowledge.SeedDocuments()...)
	if cfg.Knowledge.Dir != "" {
		docs, err := knowledge.LoadDirectory(cfg.Knowledge.Dir)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		corpus.Replace(docs)
		log.Printf("Knowledge corpus loaded (dir: %s, documents: %d)", cfg.Knowledge.Dir, len(docs))

		if cfg.Knowledge.Watch {
			watcher, err := knowledge.NewWatcher(corpus, cfg.Knowledge.Dir)
			if err != nil {
				cleanup()
				return nil, nil, err
			}
			go watcher.Run(ctx)
			cleanups = append(cleanups, func() { watcher.Stop() })
		}
	}

	recorder := metrics.NewRecorder(nil)

	runtimeCfg := agentroute.DefaultConfig()
	runtimeCfg.HistoryWindow = cfg.Routing.HistoryWindow
	runtimeCfg.ProcessTimeout = cfg.Routing.ProcessTimeout

	// One bus shared by the runtime and the engine, so pipeline and step
	// lifecycle events land on the same subscribers.
	bus := eventbus.NewChannelEventBus(
		eventbus.WithBufferSize(runtimeCfg.EventBusBufferSize),
		eventbus.WithWorkerCount(runtimeCfg.EventBusWorkerCount),
	)
	cleanups = append(cleanups, func() { bus.Close() })

	eng := engine.New(
		engine.WithRetriever(corpus),
		engine.WithGenerator(ollama.NewGenerator(cfg.Ollama.BaseURL, cfg.Ollama.ChatModel)),
		engine.WithVision(ollama.NewVision(cfg.Ollama.BaseURL, cfg.Ollama.VisionModel)),
		engine.WithTopK(cfg.Routing.RetrievalTopK),
		engine.WithObserver(recorder),
		engine.WithEventBus(bus),
	)

	var store agentroute.HistoryStore
	if cfg.History.Path != "" {
		sqliteStore, err := history.NewSQLiteStore(cfg.History.Path, cfg.History.MaxTurns)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		cleanups = append(cleanups, func() { sqliteStore.Close() })
		store = sqliteStore
	} else {
		store = history.NewMemoryStore(cfg.History.MaxTurns)
	}

	var planCache agentroute.Cache
	if cfg.Cache.Path != "" {
		planCache = cache.NewPlanFileCache(cfg.Cache.TTL, cfg.Cache.Path, &cache.StdLogger{})
	} else {
		memCache := cache.NewInMemoryCache(cfg.Cache.TTL)
		cleanups = append(cleanups, memCache.Stop)
		planCache = memCache
	}

	runtime, err := agentroute.New(
		agentroute.WithConfig(runtimeCfg),
		agentroute.WithEngine(eng),
		agentroute.WithHistory(store),
		agentroute.WithPlanCache(planCache),
		agentroute.WithEventBus(bus),
	)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	cleanups = append(cleanups, func() { runtime.Close() })

	return runtime, cleanup, nil
}

// queryRequest is the /api/query request body. Image is base64-encoded.
type queryRequest struct {
	Query   string `json:"query"`
	UserID  string `json:"user_id"`
	Image   string `json:"image,omitempty"`
	Explain bool   `json:"explain,omitempty"`
}

type userRequest struct {
	UserID string `json:"user_id"`
}

func newHandler(runtime *agentroute.Runtime) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/query", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req queryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		var image []byte
		if req.Image != "" {
			decoded, err := base64.StdEncoding.DecodeString(req.Image)
			if err != nil {
				http.Error(w, "invalid image encoding", http.StatusBadRequest)
				return
			}
			image = decoded
		}

		response, err := runtime.Process(r.Context(), agentroute.Request{
			Query:   req.Query,
			UserID:  req.UserID,
			Image:   image,
			Explain: req.Explain,
		})
		if err != nil {
			writeProcessError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, response)
	})

	mux.HandleFunc("/api/summarize", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req userRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		summary, err := runtime.Summarize(r.Context(), req.UserID)
		if err != nil {
			writeProcessError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"summary": summary})
	})

	mux.HandleFunc("/api/history", func(w http.ResponseWriter, r *http.Request) {
		userID := r.URL.Query().Get("user_id")

		switch r.Method {
		case http.MethodDelete:
			if err := runtime.ClearHistory(r.Context(), userID); err != nil {
				writeProcessError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
		case http.MethodGet:
			count, err := runtime.HistoryStats(r.Context(), userID)
			if err != nil {
				writeProcessError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]int{"turns": count})
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.Handle("/metrics", metrics.Handler())

	return mux
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("Response encoding failed: %v", err)
	}
}

// writeProcessError maps pipeline errors to HTTP statuses.
func writeProcessError(w http.ResponseWriter, err error) {
	switch {
	case agentroute.IsEmptyQuery(err):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case agentroute.IsBackendUnavailable(err):
		http.Error(w, err.Error(), http.StatusBadGateway)
	case errors.Is(err, context.DeadlineExceeded):
		http.Error(w, err.Error(), http.StatusGatewayTimeout)
	default:
		var routeErr *agentroute.RouteError
		if errors.As(err, &routeErr) && routeErr.Code == agentroute.ErrCodeValidation {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
