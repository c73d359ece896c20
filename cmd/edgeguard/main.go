package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/edgeguard-ai/edgeguard/internal/allowlist"
	"github.com/edgeguard-ai/edgeguard/internal/audit"
	"github.com/edgeguard-ai/edgeguard/internal/cache"
	"github.com/edgeguard-ai/edgeguard/internal/config"
	"github.com/edgeguard-ai/edgeguard/internal/correlation"
	"github.com/edgeguard-ai/edgeguard/internal/extractor"
	"github.com/edgeguard-ai/edgeguard/internal/fetcher"
	"github.com/edgeguard-ai/edgeguard/internal/guardmodel"
	"github.com/edgeguard-ai/edgeguard/internal/notify"
	"github.com/edgeguard-ai/edgeguard/internal/pipeline"
	"github.com/edgeguard-ai/edgeguard/internal/redact"
	"github.com/edgeguard-ai/edgeguard/internal/scanner"
	"github.com/edgeguard-ai/edgeguard/internal/server"
)

func main() {
	addrFlag := flag.String("addr", "", "HTTP listen address (overrides config)")
	configPath := flag.String("config", "edgeguard.yaml", "Path to edgeguard config file")
	flag.Parse()

	// Secrets come from the environment; .env is a dev convenience.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("warning: could not load .env: %v", err)
	}

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

	var guard *guardmodel.Model
	if cfg.Guard.BundleDir != "" {
		guard, err = guardmodel.Load(cfg.Guard.BundleDir, cfg.Guard.SeqLen)
		if err != nil {
			redact.Logf("guard model unavailable, continuing with rules only: %v", err)
			guard = nil
		}
	}
	scan := scanner.New(guard)

	store, err := audit.NewFileLog(cfg.Audit.Path, cfg.Audit.MaxBytes)
	if err != nil {
		log.Fatalf("failed to open audit log: %v", err)
	}

	var fetch fetcher.Fetcher
	if cfg.Fetcher.Enabled {
		fetch = fetcher.NewClient(cfg.Fetcher.BaseURL, os.Getenv(cfg.Fetcher.BearerEnv),
			time.Duration(cfg.Fetcher.TimeoutSecs)*time.Second)
	}

	ext := extractor.NewOpenAI(os.Getenv(cfg.Extractor.APIKeyEnv), cfg.Extractor.BaseURL, cfg.Extractor.Model)

	var extractionCache *cache.ExtractionCache
	if cfg.Cache.Addr != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		extractionCache, err = cache.NewFromAddr(ctx, cfg.Cache.Addr, cfg.Cache.Password, cfg.Cache.DB, cfg.CacheTTL())
		cancel()
		if err != nil {
			redact.Logf("extraction cache unavailable, continuing without: %v", err)
			extractionCache = nil
		}
	}

	var emitter *notify.Emitter
	if cfg.Notify.WebhookURL != "" {
		sink, err := notify.NewWebhookSink(cfg.Notify.WebhookURL, cfg.Notify.Headers, 0)
		if err != nil {
			log.Fatalf("invalid notify config: %v", err)
		}
		emitter = notify.NewEmitter(notify.EmitterConfig{
			QueueSize: cfg.Notify.QueueSize,
			Workers:   cfg.Notify.Workers,
		}, []notify.Sink{sink})
		defer emitter.Close(context.Background())
	}

	var tokens *allowlist.Set
	if cfg.Allowlist.Path != "" {
		tokens, err = allowlist.Load(cfg.Allowlist.Path)
		if err != nil {
			log.Fatalf("failed to load allowlist: %v", err)
		}
	}

	engine := correlation.NewEngine(cfg.Correlation.Dir)

	pipe := pipeline.New(pipeline.Params{
		Scanner:   scan,
		Fetcher:   fetch,
		Extractor: ext,
		Audit:     store,
		Cache:     extractionCache,
		Notifier:  emitter,
	})

	srv := server.New(pipe, engine, store, tokens)
	if err := srv.Start(addr); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
