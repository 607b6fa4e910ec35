package common

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/hughisie/agent0-article-pipeline/models"
	"github.com/hughisie/agent0-article-pipeline/pkg/caching"
	"github.com/hughisie/agent0-article-pipeline/pkg/contentmatch"
	"github.com/hughisie/agent0-article-pipeline/pkg/db"
	"github.com/hughisie/agent0-article-pipeline/pkg/fetcher"
	"github.com/hughisie/agent0-article-pipeline/pkg/linkcheck"
	"github.com/hughisie/agent0-article-pipeline/pkg/llm"
	"github.com/hughisie/agent0-article-pipeline/pkg/pipeline"
	"github.com/hughisie/agent0-article-pipeline/pkg/registry"
	"github.com/hughisie/agent0-article-pipeline/pkg/resolver"
	"github.com/hughisie/agent0-article-pipeline/pkg/validator"
	"github.com/hughisie/agent0-article-pipeline/pkg/weaver"
)

// HistoryFlag disables writing validation verdicts to the history database.
var HistoryFlag = &cli.BoolFlag{
	Name:  "no-history",
	Usage: "do not record validations in the history database",
}

// Services wires the packages together from a Config. LLM clients are nil
// when no API key is configured, which turns off rediscovery, repair search
// and LLM weaving.
type Services struct {
	Config    *models.Config
	Logger    *slog.Logger
	Fetcher   *fetcher.Fetcher
	Validator *validator.Validator
	Registry  *registry.Registry
	DB        *db.DB
	Writer    llm.Generator
	Search    llm.Generator
}

// NewServices loads the config and builds every shared component. The
// history database is opened unless --no-history is set.
func NewServices(c *cli.Context) (*Services, error) {
	logger := NewLogger(c)
	cfg, err := LoadConfig(c)
	if err != nil {
		return nil, err
	}

	s := &Services{
		Config:  cfg,
		Logger:  logger,
		Fetcher: fetcher.NewFetcher(fetcher.WithTimeout(cfg.Timeout)),
		Registry: registry.New(cfg.RegistryPath,
			registry.WithLogger(logger)),
	}

	validatorOpts := []validator.Option{validator.WithLogger(logger)}
	if !c.Bool("no-history") {
		database, err := db.Open(cfg.DBPath)
		if err != nil {
			logger.Warn("History database unavailable, continuing without it", "error", err)
		} else {
			s.DB = database
			validatorOpts = append(validatorOpts, validator.WithRecorder(database))
		}
	}
	s.Validator = validator.New(s.Fetcher, validatorOpts...)

	if cfg.HasLLM() {
		limiter := llm.NewLimiter()
		s.Writer = llm.NewGeminiClient(cfg.GeminiAPIKey, cfg.GeminiModel,
			llm.WithLimiter(limiter), llm.WithLogger(logger))
		s.Search = llm.NewSearchClient(cfg.GeminiAPIKey, cfg.GeminiSearchModel,
			llm.WithLimiter(limiter), llm.WithLogger(logger))
	} else {
		logger.Debug("No Gemini API key configured, LLM features disabled")
	}
	return s, nil
}

// Close releases the history database.
func (s *Services) Close() {
	if s.DB != nil {
		_ = s.DB.Close()
	}
}

func (s *Services) Resolver() *resolver.Resolver {
	opts := []resolver.Option{resolver.WithRegistry(s.Registry), resolver.WithLogger(s.Logger)}
	if s.Search != nil {
		opts = append(opts, resolver.WithSearch(s.Search))
	}
	return resolver.New(s.Validator, opts...)
}

func (s *Services) LinkChecker() *linkcheck.Checker {
	opts := []linkcheck.Option{
		linkcheck.WithRedirector(s.Fetcher),
		linkcheck.WithInternalDomain(s.Config.InternalDomain),
		linkcheck.WithOutboundValidation(s.Config.OutboundValidationEnabled()),
		linkcheck.WithLogger(s.Logger),
	}
	if s.Search != nil {
		opts = append(opts, linkcheck.WithSearch(s.Search))
	}
	return linkcheck.New(s.Validator, opts...)
}

// Weaver returns the internal link weaver, caching LLM rewrites under
// cache_dir when one is configured.
func (s *Services) Weaver() *weaver.Weaver {
	opts := []weaver.Option{weaver.WithLogger(s.Logger)}
	if s.Writer != nil {
		opts = append(opts, weaver.WithGenerator(s.Writer))
		if s.Config.CacheDir != "" {
			cache, err := caching.NewCache(s.Config.CacheDir, s.Config.CacheTTL)
			if err != nil {
				s.Logger.Warn("Failed to open LLM cache", "dir", s.Config.CacheDir, "error", err)
			} else {
				opts = append(opts, weaver.WithCache(cache))
			}
		}
	}
	return weaver.New(opts...)
}

func (s *Services) ContentChecker() *contentmatch.Checker {
	return contentmatch.New(fetcher.NewFetcher(fetcher.WithTimeout(contentmatch.DefaultTimeout)),
		contentmatch.WithLogger(s.Logger))
}

// AuditValidator is the stricter validator used for registry maintenance.
func (s *Services) AuditValidator(timeout time.Duration) *validator.Validator {
	return validator.New(fetcher.NewFetcher(fetcher.WithTimeout(timeout)),
		validator.WithRetries(1), validator.WithLogger(s.Logger))
}

// Pipeline wires every pass together; runs are recorded when the history
// database is open. extra options are applied last.
func (s *Services) Pipeline(extra ...pipeline.Option) *pipeline.Pipeline {
	opts := []pipeline.Option{pipeline.WithLogger(s.Logger)}
	if s.DB != nil {
		opts = append(opts, pipeline.WithRunStore(s.DB))
	}
	opts = append(opts, extra...)
	return pipeline.New(s.Config, s.Resolver(), s.Weaver(), s.LinkChecker(), opts...)
}

// RequireDB fails when the history database could not be opened.
func (s *Services) RequireDB() error {
	if s.DB == nil {
		return fmt.Errorf("history database is not available (path %q)", s.Config.DBPath)
	}
	return nil
}
