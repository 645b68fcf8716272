// Command agentroute answers a single query from the command line.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/halcyonworks/agentroute"
	"github.com/halcyonworks/agentroute/internal/adapters/ollama"
	"github.com/halcyonworks/agentroute/internal/config"
	"github.com/halcyonworks/agentroute/internal/engine"
	"github.com/halcyonworks/agentroute/internal/history"
	"github.com/halcyonworks/agentroute/internal/knowledge"
)

func main() {
	configPath := flag.String("config", "", "path to YAML configuration file")
	imagePath := flag.String("image", "", "path to an image to analyze instead of a text query")
	explain := flag.Bool("explain", false, "print the routing decision alongside the answer")
	flag.Parse()

	query := strings.TrimSpace(strings.Join(flag.Args(), " "))
	if query == "" && *imagePath == "" {
		fmt.Fprintln(os.Stderr, "usage: agentroute [-config file] [-image file] [-explain] <query>")
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	var image []byte
	if *imagePath != "" {
		image, err = os.ReadFile(*imagePath)
		if err != nil {
			log.Fatalf("Cannot read image: %v", err)
		}
	}

	corpus := knowledge.NewCorpus(knowledge.SeedDocuments()...)
	if cfg.Knowledge.Dir != "" {
		docs, err := knowledge.LoadDirectory(cfg.Knowledge.Dir)
		if err != nil {
			log.Fatalf("Cannot load knowledge directory: %v", err)
		}
		corpus.Replace(docs)
	}

	eng := engine.New(
		engine.WithRetriever(corpus),
		engine.WithGenerator(ollama.NewGenerator(cfg.Ollama.BaseURL, cfg.Ollama.ChatModel)),
		engine.WithVision(ollama.NewVision(cfg.Ollama.BaseURL, cfg.Ollama.VisionModel)),
		engine.WithTopK(cfg.Routing.RetrievalTopK),
	)

	runtimeCfg := agentroute.DefaultConfig()
	runtimeCfg.HistoryWindow = cfg.Routing.HistoryWindow
	runtimeCfg.ProcessTimeout = cfg.Routing.ProcessTimeout
	runtimeCfg.EnableEventBus = false

	runtime, err := agentroute.New(
		agentroute.WithConfig(runtimeCfg),
		agentroute.WithEngine(eng),
		agentroute.WithHistory(history.NewMemoryStore(cfg.History.MaxTurns)),
	)
	if err != nil {
		log.Fatalf("Startup error: %v", err)
	}
	defer runtime.Close()

	response, err := runtime.Process(context.Background(), agentroute.Request{
		Query:   query,
		Image:   image,
		Explain: *explain,
	})
	if err != nil {
		log.Fatalf("Query failed: %v", err)
	}

	if *explain && response.PlanExplanation != "" {
		fmt.Println(response.PlanExplanation)
		fmt.Println()
	}

	fmt.Println(response.Answer)
	if len(response.Sources) > 0 {
		fmt.Printf("\nSources: %s\n", strings.Join(response.Sources, ", "))
	}
}
