package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/haukened/rr-filter/internal/filter/common/clock"
	"github.com/haukened/rr-filter/internal/filter/common/log"
	"github.com/haukened/rr-filter/internal/filter/config"
	"github.com/haukened/rr-filter/internal/filter/domain"
	"github.com/haukened/rr-filter/internal/filter/repos/listfile"
	"github.com/haukened/rr-filter/internal/filter/repos/rulelist"
	"github.com/haukened/rr-filter/internal/filter/repos/rulelist/bloom"
	"github.com/haukened/rr-filter/internal/filter/repos/rulelist/bolt"
	"github.com/haukened/rr-filter/internal/filter/repos/rulelist/lru"
	"github.com/haukened/rr-filter/internal/filter/repos/rulelist/parsers"
	"github.com/haukened/rr-filter/internal/filter/services/dispatch"
	"github.com/haukened/rr-filter/internal/filter/services/domainlist"
	"github.com/haukened/rr-filter/internal/filter/services/evaluator"
	"github.com/haukened/rr-filter/internal/filter/services/extractor"
	"github.com/haukened/rr-filter/internal/filter/services/resolver"
)

const (
	// Version information
	version = "0.1.0-dev"
	appName = "rr-filterd"
)

// Application holds all the components of the filter service
type Application struct {
	config *config.AppConfig
	store  rulelist.Store
	repo   rulelist.Repository
	bus    *dispatch.Bus
	logger log.Logger
}

func main() {
	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	// Configure global logging
	err = log.Configure(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Logging configuration error: %v\n", err)
		os.Exit(1)
	}

	log.Info(map[string]any{
		"app":           appName,
		"version":       version,
		"env":           cfg.Env,
		"log_level":     cfg.LogLevel,
		"lists_dir":     cfg.ListsDir,
		"feeds":         cfg.Feeds,
		"db":            cfg.DB,
		"cache_size":    cfg.CacheSize,
		"bloom_fp_rate": cfg.BloomFPRate,
	}, "Starting RR-Filter")

	// Build application with all dependencies
	app, err := buildApplication(cfg, clock.RealClock{})
	if err != nil {
		log.Fatal(map[string]any{"error": err}, "Failed to build application")
	}
	defer app.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := app.Run(ctx, os.Stdin, os.Stdout); err != nil {
		log.Error(map[string]any{"error": err}, "Filter loop failed")
		return
	}

	log.Info(nil, "RR-Filter stopped")
}

// buildApplication constructs all components and wires them together
func buildApplication(cfg *config.AppConfig, clk clock.Clock) (*Application, error) {
	logger := log.GetLogger()

	// Build repository layer
	if err := os.MkdirAll(filepath.Dir(cfg.DB), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	store, err := bolt.New(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to open rule store: %w", err)
	}
	repo := rulelist.NewRepository(store, lru.Factory(cfg.CacheSize), bloom.NewFactory(), cfg.BloomFPRate, logger)

	if err := loadRules(cfg, repo, store, clk, logger); err != nil {
		_ = store.Close()
		return nil, err
	}

	// Build service layer
	controller := domainlist.New(domainlist.Options{
		Source:    repo,
		Extractor: extractor.New(),
		Evaluator: evaluator.New(logger),
		Resolver:  resolver.New(),
		Logger:    logger,
	})

	bus := dispatch.New(logger)
	if err := bus.Subscribe(controller, domain.EventMessage, domain.EventMessageEdit); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to subscribe %s list: %w", controller.Name(), err)
	}

	st := repo.RepoStats()
	log.Info(map[string]any{
		"rules":   st.Rules,
		"version": st.Version,
	}, "Rule repository ready")

	return &Application{
		config: cfg,
		store:  store,
		repo:   repo,
		bus:    bus,
		logger: logger,
	}, nil
}

// loadRules applies the configured list files and feeds. When they cannot be
// applied the last persisted snapshot is restored instead.
func loadRules(cfg *config.AppConfig, repo rulelist.Repository, store rulelist.Store, clk clock.Clock, logger log.Logger) error {
	now := clk.Now()
	list, err := buildDomainList(cfg, now, logger)
	if err == nil {
		version := store.Stats().Version + 1
		err = repo.UpdateAll(list, version, now.Unix())
	}
	if err == nil {
		return nil
	}

	logger.Warn(map[string]any{"error": err.Error()}, "Rule update failed, restoring last snapshot")
	if rerr := repo.Restore(); rerr != nil {
		return fmt.Errorf("failed to load rules: %w (restore: %v)", err, rerr)
	}
	return nil
}

// buildDomainList merges the domain list file with the configured feeds.
// Feed rules are numbered after the highest id of the list file.
func buildDomainList(cfg *config.AppConfig, now time.Time, logger log.Logger) (domain.FilterList, error) {
	lists, err := listfile.LoadListDirectory(cfg.ListsDir, now)
	if err != nil {
		return domain.FilterList{}, fmt.Errorf("failed to load list directory: %w", err)
	}

	list := domain.NewFilterList(domainlist.Name)
	for _, l := range lists {
		if l.Name != domainlist.Name {
			logger.Warn(map[string]any{"list": l.Name}, "Ignoring list without a handler")
			continue
		}
		list = l
	}

	for _, feed := range cfg.ParsedFeeds() {
		rules, err := parseFeed(feed, list.MaxID()+1, logger, now)
		if err != nil {
			return domain.FilterList{}, fmt.Errorf("failed to load feed %s: %w", feed.Path, err)
		}
		list.AddRules(rules...)
		logger.Info(map[string]any{"feed": feed.Path, "kind": feed.Kind, "rules": len(rules)}, "Feed loaded")
	}
	return list, nil
}

func parseFeed(feed config.Feed, firstID int, logger log.Logger, now time.Time) ([]domain.DomainRule, error) {
	f, err := os.Open(feed.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if feed.Kind == config.FeedHosts {
		return parsers.ParseHostsFile(f, feed.Path, firstID, logger, now)
	}
	return parsers.ParsePlainList(f, feed.Path, firstID, logger, now)
}

// Run reads events from in until EOF or until ctx is cancelled, and writes
// one line to out for every list that triggered.
func (app *Application) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	lines := readLines(ctx, in)
	for {
		select {
		case <-ctx.Done():
			log.Info(nil, "Shutdown initiated")
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if line.err != nil {
				return fmt.Errorf("failed to read events: %w", line.err)
			}
			if err := app.handleLine(ctx, line.text, out); err != nil {
				return err
			}
		}
	}
}

func (app *Application) handleLine(ctx context.Context, text string, out io.Writer) error {
	fctx, err := parseEvent(text)
	if err != nil {
		app.logger.Warn(map[string]any{"error": err.Error()}, "Skipping malformed event")
		return nil
	}
	if fctx == nil {
		return nil
	}

	results, err := app.bus.Dispatch(ctx, fctx)
	if err != nil {
		app.logger.Error(map[string]any{"error": err.Error(), "event": fctx.Event.String()}, "Dispatch failed")
		return nil
	}
	for _, res := range results {
		if !res.Verdict.Triggered() {
			continue
		}
		app.logger.Info(map[string]any{
			"list":                res.List,
			"message":             res.Verdict.Message,
			"notification_domain": res.NotificationDomain,
			"actions":             res.Verdict.Actions.Fields(),
		}, "Filter triggered")
		if err := writeVerdict(out, fctx, res); err != nil {
			return fmt.Errorf("failed to write verdict: %w", err)
		}
	}
	return nil
}

// Close releases the rule store.
func (app *Application) Close() error {
	return app.store.Close()
}
