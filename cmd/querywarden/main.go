package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/querywarden/querywarden/internal/analyst"
	"github.com/querywarden/querywarden/internal/audit"
	"github.com/querywarden/querywarden/internal/auth"
	"github.com/querywarden/querywarden/internal/client"
	"github.com/querywarden/querywarden/internal/config"
	"github.com/querywarden/querywarden/internal/detect"
	"github.com/querywarden/querywarden/internal/knowledge"
	"github.com/querywarden/querywarden/internal/orchestrator"
	"github.com/querywarden/querywarden/internal/peer"
	"github.com/querywarden/querywarden/internal/provider"
	"github.com/querywarden/querywarden/internal/server"
	"github.com/querywarden/querywarden/internal/telemetry"
)

func main() {
	addrFlag := flag.String("addr", "", "HTTP listen address (overrides config)")
	configPath := flag.String("config", "querywarden.yaml", "Path to QueryWarden config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := config.Validate(cfg); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	addr := cfg.Server.Addr
	if *addrFlag != "" {
		addr = *addrFlag
	}

	ctx := context.Background()

	tel, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:  cfg.Telemetry.Enabled,
		Endpoint: cfg.Telemetry.Endpoint,
		Protocol: cfg.Telemetry.Protocol,
		Service:  cfg.Telemetry.Service,
		Version:  cfg.Telemetry.Version,
	})
	if err != nil {
		log.Fatalf("failed to init telemetry: %v", err)
	}
	defer tel.Shutdown(ctx)

	var openai *provider.OpenAIClient
	if cfg.Analyst.Enabled {
		apiKey := cfg.Provider.APIKey
		if apiKey == "" {
			apiKey = os.Getenv(cfg.Provider.APIKeyEnv)
		}
		if apiKey == "" {
			log.Fatalf("analyst enabled but no API key in %s", cfg.Provider.APIKeyEnv)
		}
		openai = provider.NewOpenAI(provider.OpenAIConfig{
			APIKey:         apiKey,
			BaseURL:        cfg.Provider.BaseURL,
			EmbeddingModel: cfg.Provider.EmbeddingModel,
			ChatModel:      cfg.Provider.ChatModel,
		})
	}

	var store knowledge.Store
	switch cfg.Retrieval.Store {
	case "memory":
		store = knowledge.NewInMemoryStore()
	case "sqlite":
		sqlStore, err := knowledge.NewSQLiteStore(cfg.Retrieval.SQLitePath)
		if err != nil {
			log.Fatalf("failed to open document store: %v", err)
		}
		defer sqlStore.Close()
		store = sqlStore
	case "none":
		// Knowledge-base-only mode.
	}

	var embedder provider.Embedder
	if openai != nil {
		embedder = openai
	}
	retriever := knowledge.NewRetriever(embedder, store, knowledge.Config{
		DefaultK:         cfg.Retrieval.K,
		DefaultThreshold: cfg.Retrieval.ScoreThreshold,
		HybridWeight:     cfg.Retrieval.HybridWeight,
		ChunkSize:        cfg.Retrieval.ChunkSize,
		ChunkOverlap:     cfg.Retrieval.ChunkOverlap,
	})
	retriever.Warm(ctx)

	svc := client.New(client.Config{
		Timeout:          time.Duration(cfg.Client.TimeoutMs) * time.Millisecond,
		Retries:          cfg.Client.Retries,
		BackoffBase:      time.Duration(cfg.Client.BackoffBaseMs) * time.Millisecond,
		BreakerThreshold: cfg.Client.BreakerThreshold,
		Cooldown:         time.Duration(cfg.Client.CooldownMs) * time.Millisecond,
	})

	var analyzer *analyst.Analyzer
	if openai != nil {
		analyzer = analyst.NewAnalyzer(openai, analyst.Config{
			ContextBudget: cfg.Analyst.ContextBudget,
			Temperature:   cfg.Analyst.Temperature,
			MaxTokens:     cfg.Analyst.MaxTokens,
		})
	}

	var peers []*peer.Client
	for _, p := range cfg.Peers {
		token := ""
		if p.TokenEnv != "" {
			token = os.Getenv(p.TokenEnv)
		}
		peers = append(peers, peer.New(p.Name, p.URL, token, svc))
	}

	var sinks []audit.Sink
	for _, sc := range cfg.Audit.Sinks {
		switch sc.Type {
		case "file_jsonl":
			sink, err := audit.NewFileSink(sc.Path)
			if err != nil {
				log.Fatalf("failed to open audit file sink: %v", err)
			}
			sinks = append(sinks, sink)
		case "webhook":
			sink, err := audit.NewWebhookSink(sc.URL, sc.Headers, 0)
			if err != nil {
				log.Fatalf("failed to build audit webhook sink: %v", err)
			}
			sinks = append(sinks, sink)
		}
	}
	var emitter *audit.Emitter
	if len(sinks) > 0 {
		emitter = audit.NewEmitter(audit.EmitterConfig{}, sinks)
		defer emitter.Close(ctx)
	}

	orch := orchestrator.New(orchestrator.Deps{
		Engine:    detect.NewEngine(),
		Retriever: retriever,
		Analyzer:  analyzer,
		Peers:     peer.NewPool(peers),
		Service:   svc,
		Telemetry: tel,
		Audit:     emitter,
	}, orchestrator.Config{
		MaxQueryLength:   cfg.Detection.MaxQueryLength,
		EscalationLength: cfg.Detection.EscalationLength,
		Tier2Budget:      time.Duration(cfg.Analyst.BudgetMs) * time.Millisecond,
		RetrievalK:       cfg.Retrieval.K,
		BatchConcurrency: cfg.Batch.Concurrency,
	})

	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           auth.New(cfg.Server.APIKeys).Middleware(server.New(orch, retriever).Handler()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Starting QueryWarden on %s...", addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
