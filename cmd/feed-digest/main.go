package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"

	"github.com/ryosukesatoh/feed-digest/internal/api"
	"github.com/ryosukesatoh/feed-digest/internal/config"
	"github.com/ryosukesatoh/feed-digest/internal/fetcher"
	"github.com/ryosukesatoh/feed-digest/internal/logging"
	"github.com/ryosukesatoh/feed-digest/internal/pipeline"
	"github.com/ryosukesatoh/feed-digest/internal/publisher"
	"github.com/ryosukesatoh/feed-digest/internal/runner"
	"github.com/ryosukesatoh/feed-digest/internal/summarizer"
)

func main() {
	configPath := flag.String("config", "", "path to config file (optional)")
	once := flag.Bool("once", false, "run the push digest once and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.LogLevel)

	if err := run(cfg, *once, logger); err != nil {
		logger.Error("exiting", "error", err)
		os.Exit(1)
	}
}

// app holds everything built from the config.
type app struct {
	model   summarizer.Model
	orch    *pipeline.Orchestrator
	latest  *publisher.LatestPublisher
	pubs    []publisher.Publisher
	closers []io.Closer
	runner  *runner.Runner
	server  *api.Server
}

func build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{}

	model, err := summarizer.NewModel(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.model = model
	s := summarizer.New(cfg, model, logger.With("component", "summarizer"))
	if model == nil {
		logger.Warn("no model API key configured, using heuristic summaries")
	}

	client := fetcher.NewHTTPClient(cfg.Fetch.Timeout)
	feeds := fetcher.NewFeedFetcher(client, cfg.Fetch.UserAgent, logger.With("component", "feed"))
	pages := fetcher.NewPageFetcher(client, cfg.Fetch.UserAgent, logger.With("component", "page"))

	a.orch = pipeline.New(feeds, pages, s, pipeline.Limits{
		MaxFeeds:          cfg.Limits.MaxFeeds,
		MaxEntriesPerFeed: cfg.Limits.MaxEntriesPerFeed,
		MaxArticles:       cfg.Limits.MaxArticles,
		MaxContentChars:   cfg.Limits.MaxContentChars,
		Workers:           cfg.Limits.Workers,
		RequestTimeout:    cfg.Server.RequestTimeout,
	}, logger)

	if err := a.buildPublishers(cfg, logger); err != nil {
		return nil, err
	}
	a.runner = runner.New(cfg.Digest.Feeds, a.orch, a.pubs, logger)
	a.server = api.New(cfg.Server.Addr, a.orch, a.latest, model != nil, logger)

	logger.Info("configured",
		"backend", s.Backend(),
		"addr", cfg.Server.Addr,
		"push", cfg.PushEnabled(),
		"publishers", len(a.pubs),
	)
	return a, nil
}

func (a *app) buildPublishers(cfg *config.Config, logger *slog.Logger) error {
	for _, pc := range cfg.Publishers {
		switch pc.Type {
		case "stdout":
			a.pubs = append(a.pubs, publisher.NewStdoutPublisher())
		case "web":
			if a.latest == nil {
				a.latest = publisher.NewLatestPublisher(logger.With("component", "latest"))
				a.pubs = append(a.pubs, a.latest)
			}
		case "discord":
			a.pubs = append(a.pubs, publisher.NewDiscordPublisher(pc.Discord.WebhookURL))
		case "email":
			a.pubs = append(a.pubs, publisher.NewEmailPublisher(
				pc.Email.SMTPHost,
				pc.Email.SMTPPort,
				pc.Email.Username,
				pc.Email.Password,
				pc.Email.From,
				pc.Email.To,
			))
		case "redis":
			rp := publisher.NewRedisPublisher(pc.Redis.Addr, pc.Redis.Password, pc.Redis.DB, pc.Redis.Channel, pc.Redis.ListKey, pc.Redis.Keep)
			a.pubs = append(a.pubs, rp)
			a.closers = append(a.closers, rp)
		default:
			return fmt.Errorf("unknown publisher type: %s", pc.Type)
		}
	}
	return nil
}

func (a *app) close(logger *slog.Logger) {
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			logger.Warn("close failed", "error", err)
		}
	}
	if err := summarizer.CloseModel(a.model); err != nil {
		logger.Warn("model close failed", "error", err)
	}
}

func run(cfg *config.Config, once bool, logger *slog.Logger) error {
	if !strings.EqualFold(cfg.LogLevel, "debug") {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close(logger)

	// Single-run mode: run the digest once and exit
	if once {
		if len(cfg.Digest.Feeds) == 0 {
			return errors.New("-once requires digest.feeds or DIGEST_FEEDS")
		}
		logger.Info("running digest (once mode)")
		return a.runner.Run(ctx)
	}

	if err := a.server.Start(); err != nil {
		return err
	}

	var c *cron.Cron
	if cfg.PushEnabled() {
		if cfg.Digest.RunOnStart {
			go func() {
				if err := a.runner.Run(ctx); err != nil {
					logger.Error("initial run failed", "error", err)
				}
			}()
		}

		c = cron.New()
		if _, err := c.AddFunc(cfg.Digest.Schedule, func() {
			logger.Info("cron triggered, running digest")
			if err := a.runner.Run(ctx); err != nil {
				logger.Error("scheduled run failed", "error", err)
			}
		}); err != nil {
			return fmt.Errorf("failed to set up cron schedule %q: %w", cfg.Digest.Schedule, err)
		}
		c.Start()
		logger.Info("scheduled digest", "schedule", cfg.Digest.Schedule, "feeds", len(cfg.Digest.Feeds))
	}

	<-ctx.Done()
	logger.Info("shutting down")

	if c != nil {
		<-c.Stop().Done()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}
