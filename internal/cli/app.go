package cli

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ppiankov/tinthat/internal/cache"
	"github.com/ppiankov/tinthat/internal/encoder"
	"github.com/ppiankov/tinthat/internal/extract"
	"github.com/ppiankov/tinthat/internal/logging"
	"github.com/ppiankov/tinthat/internal/metrics"
	"github.com/ppiankov/tinthat/internal/model"
	"github.com/ppiankov/tinthat/internal/nli"
	"github.com/ppiankov/tinthat/internal/pipeline"
	"github.com/ppiankov/tinthat/internal/store"
	"github.com/ppiankov/tinthat/internal/tei"
	"github.com/ppiankov/tinthat/internal/worker"
)

// app holds the long-lived components shared by the commands
type app struct {
	cfg       *model.Config
	logger    *zap.Logger
	limiter   *worker.Limiter
	encoder   encoder.Encoder
	store     store.Store
	verifiers *nli.Holder
	metrics   *metrics.Metrics
	pipeline  *pipeline.Pipeline
}

// openKnowledgeBase loads config and connects the encoder and knowledge store.
// Both must agree on the vector dimension.
func openKnowledgeBase(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		logger:  logger,
		limiter: worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize),
	}

	enc, err := encoder.New(cfg.Embedding,
		encoder.WithLimiter(a.limiter),
		encoder.WithProxy(cfg.HTTP.HTTPProxy, cfg.HTTP.HTTPSProxy, cfg.HTTP.NoProxy))
	if err != nil {
		return nil, fmt.Errorf("create encoder: %w", err)
	}
	c, err := cache.New(cfg.Cache)
	if err != nil {
		logger.Warn("embedding cache disabled", zap.Error(err))
	} else if c != nil {
		enc = encoder.NewCachedEncoder(enc, c, cfg.Cache.MemoryTTL)
	}
	a.encoder = enc

	st, err := store.Open(ctx, cfg.Database, enc)
	if err != nil {
		return nil, fmt.Errorf("open knowledge store: %w", err)
	}
	a.store = st

	dim, err := st.Dimension(ctx)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("read store dimension: %w", err)
	}
	if err := encoder.Canary(ctx, enc, dim); err != nil {
		a.Close()
		return nil, fmt.Errorf("encoder check: %w", err)
	}

	logger.Info("knowledge base ready",
		zap.String("driver", cfg.Database.Driver),
		zap.String("encoder", enc.Name()),
		zap.Int("dimension", enc.Dimension()))
	return a, nil
}

// newApp builds the full verification pipeline. It refuses to start when
// the NLI model fails its canary; the claim classifier may be absent.
func newApp(ctx context.Context) (*app, error) {
	a, err := openKnowledgeBase(ctx)
	if err != nil {
		return nil, err
	}

	v, err := nli.New(a.cfg.NLI, a.modelServerConfig())
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("create nli verifier: %w", err)
	}
	if err := nli.Canary(ctx, v); err != nil {
		a.Close()
		return nil, err
	}
	a.verifiers = nli.NewHolder(v)
	a.metrics = metrics.New()
	a.metrics.NLIGeneration.Set(float64(a.verifiers.Generation()))

	p, err := pipeline.New(a.cfg, pipeline.Deps{
		Encoder:    a.encoder,
		Store:      a.store,
		Verifiers:  a.verifiers,
		Classifier: a.classifier(ctx),
		Logger:     a.logger,
		Metrics:    a.metrics,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.pipeline = p

	a.logger.Info("pipeline ready", zap.String("nli", v.Name()))
	return a, nil
}

// reloadVerifier re-reads the config file and builds an NLI verifier from
// its nli section, so a reload can switch model, server or label map.
// The rest of the running config is left alone.
func (a *app) reloadVerifier() (nli.Verifier, error) {
	cfg, err := reloadConfig()
	if err != nil {
		return nil, err
	}
	a.logger.Info("building nli verifier",
		zap.String("provider", cfg.NLI.Provider),
		zap.String("model", cfg.NLI.Model),
		zap.String("base_url", cfg.NLI.BaseURL))
	return nli.New(cfg.NLI, a.modelServerConfig())
}

func (a *app) modelServerConfig() tei.Config {
	return tei.Config{
		Timeout:    a.cfg.HTTP.Timeout,
		HTTPProxy:  a.cfg.HTTP.HTTPProxy,
		HTTPSProxy: a.cfg.HTTP.HTTPSProxy,
		NoProxy:    a.cfg.HTTP.NoProxy,
		Limiter:    a.limiter,
	}
}

// classifier returns nil (heuristic claim detection) when no classifier
// server is configured or it does not answer its health check
func (a *app) classifier(ctx context.Context) extract.Classifier {
	url := a.cfg.Extractor.ClassifierURL
	if url == "" {
		return nil
	}

	tc := a.modelServerConfig()
	tc.BaseURL = url
	tc.Timeout = a.cfg.Extractor.ClassifierTimeout
	client, err := tei.NewClient(tc)
	if err == nil {
		err = client.Healthy(ctx)
	}
	if err != nil {
		a.logger.Warn("claim classifier unavailable, using heuristic detection",
			zap.String("url", url), zap.Error(err))
		return nil
	}
	return extract.NewRemoteClassifier(client, a.cfg.Extractor.ClassifierLabel)
}

// Close releases the knowledge store and flushes logs
func (a *app) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("close knowledge store", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}

// unavailable reports whether err is a transient dependency failure
func unavailable(err error) bool {
	return errors.Is(err, model.ErrStoreUnavailable) || errors.Is(err, model.ErrModelUnavailable)
}
