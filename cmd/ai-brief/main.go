package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/ryosukesatoh/ai-daily-brief/internal/brief"
	"github.com/ryosukesatoh/ai-daily-brief/internal/config"
	"github.com/ryosukesatoh/ai-daily-brief/internal/history"
	"github.com/ryosukesatoh/ai-daily-brief/internal/publisher"
	"github.com/ryosukesatoh/ai-daily-brief/internal/retry"
	"github.com/ryosukesatoh/ai-daily-brief/internal/runner"
)

// app holds the wired pipeline and the resources that need closing.
type app struct {
	runner  *runner.Runner
	web     *publisher.WebPublisher
	history *history.Store
}

func (a *app) Close() {
	if a.history != nil {
		if err := a.history.Close(); err != nil {
			log.Printf("History close error: %v", err)
		}
	}
}

// build wires the pipeline from cfg. The API key is checked first so that a
// missing credential is reported before anything touches the network.
func build(cfg *config.Config, daemon bool) (*app, error) {
	client, err := brief.NewDeepSeekClient(brief.ClientConfig{
		BaseURL:            cfg.LLM.BaseURL,
		APIKey:             cfg.LLM.APIKey,
		Model:              cfg.LLM.Model,
		Temperature:        *cfg.LLM.Temperature,
		MaxTokens:          cfg.LLM.MaxTokens,
		Timeout:            cfg.LLM.Timeout,
		InsecureSkipVerify: cfg.LLM.InsecureSkipVerify,
		Retry: retry.Config{
			MaxRetries: cfg.LLM.MaxRetries,
			BaseDelay:  retry.DefaultConfig().BaseDelay,
		},
	})
	if err != nil {
		return nil, err
	}

	a := &app{}

	var pubs []publisher.Publisher
	if daemon && cfg.Publisher.Web.Addr != "" {
		a.web = publisher.NewWebPublisher(cfg.Publisher.Web.Addr)
		pubs = append(pubs, a.web)
	}
	if e := cfg.Publisher.Email; e.SMTPHost != "" {
		pubs = append(pubs, publisher.NewEmailPublisher(e.SMTPHost, e.SMTPPort, e.Username, e.Password, e.From, e.To))
	}
	if d := cfg.Publisher.Discord; d.WebhookURL != "" {
		pubs = append(pubs, publisher.NewDiscordPublisher(d.WebhookURL, d.PageURL))
	}

	var rec runner.Recorder
	if cfg.History.Path != "" {
		store, err := history.Open(cfg.History.Path)
		if err != nil {
			return nil, err
		}
		a.history = store
		rec = store
	}

	a.runner = runner.New(
		brief.NewGenerator(client, cfg.LookbackDays),
		publisher.NewFilePublisher(cfg.OutputPath),
		pubs,
		rec,
	)
	return a, nil
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file (optional)")
	once := flag.Bool("once", false, "run the pipeline once and exit, ignoring schedule")
	flag.Parse()

	// A missing .env is fine; the environment may already carry the key.
	_ = godotenv.Load()

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	daemon := cfg.Schedule != "" && !*once

	a, err := build(cfg, daemon)
	if errors.Is(err, brief.ErrMissingAPIKey) {
		log.Fatalf("Cannot generate brief: %v", err)
	}
	if err != nil {
		log.Fatalf("Failed to set up pipeline: %v", err)
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Single-run mode: run the pipeline once and exit
	if !daemon {
		log.Println("Generating brief (once mode)...")
		if err := a.runner.Run(ctx); err != nil {
			a.Close()
			log.Fatalf("Brief generation failed: %v", err)
		}
		log.Println("Done")
		return
	}

	if a.web != nil {
		if err := a.web.Start(); err != nil {
			a.Close()
			log.Fatalf("Failed to start web publisher: %v", err)
		}
	}

	if cfg.RunOnStart {
		log.Println("Running initial brief...")
		if err := a.runner.Run(ctx); err != nil {
			log.Printf("Initial run failed: %v", err)
		}
	}

	c := cron.New()
	_, err = c.AddFunc(cfg.Schedule, func() {
		log.Println("Cron triggered, generating brief...")
		if err := a.runner.Run(ctx); err != nil {
			log.Printf("Scheduled run failed: %v", err)
		}
	})
	if err != nil {
		a.Close()
		log.Fatalf("Failed to set up cron schedule %q: %v", cfg.Schedule, err)
	}
	c.Start()
	log.Printf("Scheduled brief with cron expression: %s", cfg.Schedule)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Printf("Received signal %v, shutting down...", sig)

	cancel()
	<-c.Stop().Done()

	if a.web != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := a.web.Shutdown(shutdownCtx); err != nil {
			log.Printf("Web server shutdown error: %v", err)
		}
	}

	log.Println("Shutdown complete")
}
