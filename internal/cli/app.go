package cli

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"policyqa/internal/answer"
	"policyqa/internal/chunker"
	"policyqa/internal/config"
	"policyqa/internal/embedding"
	openaiembed "policyqa/internal/embedding/openai"
	"policyqa/internal/embedding/tfidf"
	"policyqa/internal/generation"
	openaigen "policyqa/internal/generation/openai"
	"policyqa/internal/loader"
	"policyqa/internal/logging"
	"policyqa/internal/metrics"
	"policyqa/internal/service"
	"policyqa/internal/vectorstore"
	"policyqa/internal/vectorstore/memory"
	"policyqa/internal/vectorstore/qdrant"
)

// commonFlags are shared by every subcommand.
type commonFlags struct {
	configPath string
	corpusDir  string
	debug      bool
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", "", "Path to YAML config (default ./policyqa.yaml or ~/.config/policyqa/config.yaml)")
	fs.StringVar(&c.corpusDir, "corpus", "", "Directory of policy documents (overrides config)")
	fs.BoolVar(&c.debug, "debug", false, "Enable debug logging")
}

func (c *commonFlags) load() (*config.AppConfig, error) {
	var (
		cfg *config.AppConfig
		err error
	)
	if c.configPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(c.configPath)
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if c.corpusDir != "" {
		cfg.Corpus.Dir = c.corpusDir
	}
	if c.debug {
		cfg.Debug = true
	}
	return cfg, nil
}

// app is a fully wired, indexed pipeline.
type app struct {
	cfg      *config.AppConfig
	logger   *zap.Logger
	registry *prometheus.Registry
	pipeline *service.Pipeline
	overview string
}

// bootstrap loads config, builds every component and indexes the corpus.
func bootstrap(ctx context.Context, flags *commonFlags) (*app, error) {
	cfg, err := flags.load()
	if err != nil {
		return nil, err
	}
	logger, err := logging.NewLogger(cfg.Debug)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	a, err := newApp(cfg, logger)
	if err != nil {
		return nil, err
	}
	docs, err := loader.LoadDir(cfg.Corpus.Dir, cfg.Corpus.Extensions)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("no policy documents found in %s", cfg.Corpus.Dir)
	}
	a.overview, err = a.pipeline.IngestDocuments(ctx, docs)
	if err != nil {
		return nil, fmt.Errorf("index corpus: %w", err)
	}
	logger.Info("corpus indexed", zap.Int("documents", len(docs)), zap.Int("passages", a.pipeline.Len()))
	return a, nil
}

func newApp(cfg *config.AppConfig, logger *zap.Logger) (*app, error) {
	emb, err := newEmbedder(cfg.Embedder)
	if err != nil {
		return nil, err
	}
	store, err := newStore(cfg.VectorStore)
	if err != nil {
		return nil, err
	}
	gen, err := newGenerator(cfg.Generator)
	if err != nil {
		return nil, err
	}
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	p := service.NewPipeline(service.Options{
		Chunker:  chunker.NewSentenceChunker(cfg.Chunker.ChunkSize),
		Embedder: emb,
		Store:    store,
		Synth:    answer.NewSynthesizer(gen, logger, m),
		Logger:   logger,
		Metrics:  m,
		TopK:     cfg.Retrieval.TopK,
	})
	return &app{cfg: cfg, logger: logger, registry: reg, pipeline: p}, nil
}

func newEmbedder(cfg config.EmbedderConfig) (embedding.Embedder, error) {
	var emb embedding.Embedder
	switch cfg.Type {
	case "tfidf", "":
		emb = tfidf.NewEmbedder()
	case "openai":
		if cfg.OpenAI == nil {
			return nil, fmt.Errorf("openai embedder config missing")
		}
		client, err := openaiembed.NewClient(openaiembed.Config{
			BaseURL:    cfg.OpenAI.BaseURL,
			APIKeyEnv:  cfg.OpenAI.APIKeyEnv,
			Model:      cfg.OpenAI.Model,
			Timeout:    cfg.OpenAI.Timeout(),
			BatchSize:  cfg.OpenAI.BatchSize,
			MaxRetries: cfg.OpenAI.MaxRetries,
		})
		if err != nil {
			return nil, fmt.Errorf("openai embedder: %w", err)
		}
		emb = client
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Type)
	}
	if cfg.CacheSize > 0 {
		cached, err := embedding.NewCachingEmbedder(emb, cfg.CacheSize)
		if err != nil {
			return nil, err
		}
		return cached, nil
	}
	return emb, nil
}

func newStore(cfg config.VectorStoreConfig) (vectorstore.Storage, error) {
	switch cfg.Type {
	case "memory", "":
		return memory.NewStorage(), nil
	case "qdrant":
		if cfg.Qdrant == nil {
			return nil, fmt.Errorf("qdrant config missing")
		}
		return qdrant.NewStorage(qdrant.Config{
			URL:        cfg.Qdrant.URL,
			APIKey:     cfg.Qdrant.APIKey,
			Collection: cfg.Qdrant.Collection,
			Timeout:    time.Duration(cfg.Qdrant.TimeoutSecs) * time.Second,
		}), nil
	default:
		return nil, fmt.Errorf("unknown vector store: %s", cfg.Type)
	}
}

func newGenerator(cfg config.GeneratorConfig) (generation.Generator, error) {
	switch cfg.Type {
	case "disabled":
		return generation.Disabled{}, nil
	case "openai", "":
		if cfg.OpenAI == nil {
			return nil, fmt.Errorf("openai generator config missing")
		}
		gen, err := openaigen.NewGenerator(openaigen.Config{
			BaseURL:    cfg.OpenAI.BaseURL,
			APIKeyEnv:  cfg.OpenAI.APIKeyEnv,
			Model:      cfg.OpenAI.Model,
			Timeout:    cfg.OpenAI.Timeout(),
			MaxRetries: cfg.OpenAI.MaxRetries,
		})
		if err != nil {
			return nil, fmt.Errorf("openai generator: %w", err)
		}
		return gen, nil
	default:
		return nil, fmt.Errorf("unknown generator: %s", cfg.Type)
	}
}
