// Package main runs a small blog whose article methods are performed in
// the background: publishing at each article's publish time, retracting
// with retries, and archiving every article in one bulk enqueue.
//
// Usage:
//
//	go run ./cmd/performs-demo
//	go run ./cmd/performs-demo -config performs.yaml
//
// With a config selecting the redis driver, jobs survive restarts.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/xraph/performs"
	"github.com/xraph/performs/backoff"
	"github.com/xraph/performs/config"
	"github.com/xraph/performs/engine"
)

var errFeedDown = errors.New("feed service unavailable")

// Article is the demo record type.
type Article struct {
	ID        string
	Title     string
	PublishAt time.Time
}

func (a *Article) publish(ctx context.Context, args performs.Args) error {
	slog.InfoContext(ctx, "article published",
		slog.String("id", a.ID),
		slog.String("title", a.Title),
		slog.String("channel", args.GetString("channel")),
	)
	return nil
}

// pushFeed fails the first two attempts per article.
func (a *Article) pushFeed(ctx context.Context, _ performs.Args) error {
	if attempts.next(a.ID) < 3 {
		return errFeedDown
	}
	slog.InfoContext(ctx, "feed updated", slog.String("id", a.ID))
	return nil
}

func (a *Article) archive(ctx context.Context, _ performs.Args) error {
	slog.InfoContext(ctx, "article archived", slog.String("id", a.ID))
	return nil
}

type counter struct {
	mu sync.Mutex
	n  map[string]int
}

func (c *counter) next(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n[key]++
	return c.n[key]
}

var attempts = &counter{n: make(map[string]int)}

type articles struct {
	mu   sync.RWMutex
	byID map[string]*Article
}

func (r *articles) find(_ context.Context, id string) (*Article, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("article %s not found", id)
	}
	return a, nil
}

func (r *articles) all(context.Context) ([]*Article, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Article, 0, len(r.byID))
	for _, a := range r.byID {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)

	if err := run(*configPath, logger); err != nil {
		logger.Error("demo failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(configPath string, logger *slog.Logger) error {
	// ──────────────────────────────────────────────────
	// 1. Load configuration and build the engine
	// ──────────────────────────────────────────────────

	var (
		cfg *config.File
		err error
	)
	if configPath != "" {
		cfg, err = config.Load(configPath)
	} else {
		cfg, err = config.Parse([]byte("engine:\n  concurrency: 4\n  poll_interval: 200ms\n"))
	}
	if err != nil {
		return err
	}

	store, closeStore, err := cfg.OpenStore(logger)
	if err != nil {
		return err
	}
	defer closeStore()

	eng, err := engine.New(append(cfg.EngineOptions(),
		engine.WithStore(store),
		engine.WithLogger(logger),
	)...)
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}

	// ──────────────────────────────────────────────────
	// 2. Define the model and declare its methods
	// ──────────────────────────────────────────────────

	now := time.Now()
	repo := &articles{byID: map[string]*Article{
		"1": {ID: "1", Title: "Hello", PublishAt: now.Add(time.Second)},
		"2": {ID: "2", Title: "Background jobs", PublishAt: now.Add(3 * time.Second)},
	}}

	cat := performs.New(eng, append(cfg.CatalogOptions(), performs.WithLogger(logger))...)
	m, err := performs.Define(cat, "Article",
		func(a *Article) string { return a.ID },
		repo.find,
		performs.WithAll(repo.all),
	)
	if err != nil {
		return err
	}
	if err := m.Configure(performs.Timeout(30 * time.Second)); err != nil {
		return err
	}

	publish, err := performs.Declare(m, "publish!", (*Article).publish,
		performs.WaitUntilFunc(func(a *Article) time.Time { return a.PublishAt }))
	if err != nil {
		return err
	}
	feed, err := performs.Declare(m, "push_feed", (*Article).pushFeed,
		performs.RetryOn(errFeedDown, 3, backoff.NewConstant(100*time.Millisecond)))
	if err != nil {
		return err
	}
	archive, err := performs.Declare(m, "archive", (*Article).archive,
		performs.Wait(5*time.Second))
	if err != nil {
		return err
	}

	// ──────────────────────────────────────────────────
	// 3. Start workers and enqueue
	// ──────────────────────────────────────────────────

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := eng.Start(ctx); err != nil {
		return fmt.Errorf("start engine: %w", err)
	}

	all, err := repo.all(ctx)
	if err != nil {
		return fmt.Errorf("load articles: %w", err)
	}
	for _, a := range all {
		if _, err := publish.Later(ctx, a, performs.Kw("channel", "web")); err != nil {
			return err
		}
		if _, err := feed.Later(ctx, a, performs.Args{}); err != nil {
			return err
		}
	}
	if _, err := archive.LaterBulk(ctx, nil); err != nil {
		return err
	}

	logger.Info("demo running, press Ctrl+C to stop",
		slog.Any("models", cat.Models()),
		slog.String("worker_id", eng.WorkerID().String()),
	)
	<-ctx.Done()

	// ──────────────────────────────────────────────────
	// 4. Graceful shutdown
	// ──────────────────────────────────────────────────

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return eng.Stop(shutdownCtx)
}
