package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/mfenderov/lifeadmin/internal/categorize"
	"github.com/mfenderov/lifeadmin/internal/config"
	"github.com/mfenderov/lifeadmin/internal/elasticsearch"
	"github.com/mfenderov/lifeadmin/internal/extract"
	"github.com/mfenderov/lifeadmin/internal/ingestion"
	"github.com/mfenderov/lifeadmin/internal/llm"
	"github.com/mfenderov/lifeadmin/internal/pipeline"
	"github.com/mfenderov/lifeadmin/internal/scraper"
	"github.com/mfenderov/lifeadmin/internal/search"
	"github.com/mfenderov/lifeadmin/internal/storage"
	"github.com/mfenderov/lifeadmin/internal/store"
	"github.com/mfenderov/lifeadmin/internal/summary"
)

// app bundles the services a command needs. Fields stay nil when the
// corresponding backend is not configured or not requested.
type app struct {
	cfg    config.Config
	store  *store.Store
	llm    llm.Completer
	blobs  *storage.Client
	index  *elasticsearch.Client
	engine *ingestion.Engine
}

// needs selects optional backends for newApp.
type needs struct {
	blobs bool
	index bool
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func newApp(ctx context.Context, n needs) (*app, error) {
	cfg := GetConfig()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	s, err := store.Open(store.Config{
		Driver: cfg.Database.Driver,
		DSN:    cfg.Database.DSN,
		Debug:  cfg.Database.Debug,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	a := &app{cfg: cfg, store: s}

	a.llm, err = llm.New(ctx, llm.Config{
		Enabled:    cfg.LLM.Enabled,
		Provider:   cfg.LLM.Provider,
		Model:      cfg.LLM.Model,
		APIKey:     cfg.LLM.APIKey,
		BaseURL:    cfg.LLM.BaseURL,
		SocketPath: cfg.LLM.SocketPath,
		Timeout:    cfg.LLM.Timeout,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	if a.llm != nil {
		slog.Info("AI features enabled", "provider", cfg.LLM.Provider, "model", a.llm.Model())
	}

	if (n.index || n.blobs) && cfg.Elasticsearch.Enabled {
		a.index, err = elasticsearch.New(elasticsearch.Config{
			Addresses: cfg.Elasticsearch.Addresses,
			Index:     cfg.Elasticsearch.Index,
			Username:  cfg.Elasticsearch.Username,
			Password:  cfg.Elasticsearch.Password,
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to create ES client: %w", err)
		}
		if err := a.index.CreateIndex(ctx); err != nil {
			slog.Warn("failed to ensure search index", "error", err)
		}
	}

	if n.blobs {
		if cfg.Storage.Endpoint == "" || cfg.Storage.Bucket == "" {
			a.Close()
			return nil, fmt.Errorf("storage not configured - check config file")
		}
		a.blobs, err = storage.New(storage.Config{
			Endpoint:        cfg.Storage.Endpoint,
			Bucket:          cfg.Storage.Bucket,
			AccessKeyID:     cfg.Storage.AccessKeyID,
			SecretAccessKey: cfg.Storage.SecretAccessKey,
			UseSSL:          cfg.Storage.UseSSL,
			Region:          cfg.Storage.Region,
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to create storage client: %w", err)
		}
		if err := a.blobs.EnsureBucket(ctx); err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to ensure bucket: %w", err)
		}

		clipper := scraper.New(scraper.Config{
			UserAgent:   cfg.Scraper.UserAgent,
			Timeout:     cfg.Scraper.Timeout,
			MaxBodySize: cfg.Scraper.MaxBodySize,
		})
		a.engine = ingestion.New(s, a.blobs, extract.New(0), a.indexer(), clipper)
	}
	return a, nil
}

// indexer returns the index as an interface value that is nil when disabled.
func (a *app) indexer() ingestion.Indexer {
	if a.index == nil {
		return nil
	}
	return a.index
}

func (a *app) searchIndex() search.Index {
	if a.index == nil {
		return nil
	}
	return a.index
}

func (a *app) aiEnabled() bool {
	return a.llm != nil
}

func (a *app) pipeline() *pipeline.Pipeline {
	return pipeline.New(a.store, a.llm)
}

func (a *app) summarizer() *summary.Summarizer {
	return summary.New(a.store, a.llm)
}

func (a *app) categorizer() *categorize.Categorizer {
	return categorize.New(a.store, a.llm)
}

func (a *app) search() *search.Service {
	return search.New(a.store, a.searchIndex(), a.llm)
}

// Close releases the database and the LLM client.
func (a *app) Close() {
	if c, ok := a.llm.(io.Closer); ok {
		c.Close()
	}
	if err := a.store.Close(); err != nil {
		slog.Warn("failed to close database", "error", err)
	}
}
