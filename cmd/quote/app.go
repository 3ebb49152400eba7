package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/quotedesk/internal/backend"
	"github.com/Veraticus/quotedesk/internal/catalog"
	"github.com/Veraticus/quotedesk/internal/cli"
	"github.com/Veraticus/quotedesk/internal/common"
	"github.com/Veraticus/quotedesk/internal/config"
	"github.com/Veraticus/quotedesk/internal/history"
	"github.com/Veraticus/quotedesk/internal/model"
	"github.com/Veraticus/quotedesk/internal/orchestrator"
	"github.com/Veraticus/quotedesk/internal/pricing"
	"github.com/Veraticus/quotedesk/internal/session"
	"github.com/Veraticus/quotedesk/internal/storage"
)

// remote is everything the commands need from the backend service.
type remote interface {
	session.Backend
	catalog.Source
	orchestrator.Analyzer
	history.Lister
	UpdateRetentionTemplate(ctx context.Context, content string) error
}

// connectionTester is implemented by backends that can check the LLM settings.
type connectionTester interface {
	TestConnection(ctx context.Context, llm model.LLMConfig) error
}

// Swapped in tests.
var (
	loadConfig = func() (*config.Config, error) {
		return config.Load(viper.GetViper())
	}
	newRemote = func(cfg *config.Config, logger *slog.Logger) (remote, error) {
		return backend.New(backend.Config{
			BaseURL: cfg.BackendURL,
			Timeout: cfg.BackendTimeout,
			Retries: cfg.BackendRetries,
			Logger:  logger,
		})
	}
	openState = func(ctx context.Context, cfg *config.Config) (storage.Store, error) {
		return storage.Open(ctx, storage.Options{
			Backend:  cfg.StateBackend,
			Path:     cfg.StatePath,
			RedisURL: cfg.RedisURL,
		})
	}
)

// app wires the components for one command invocation.
type app struct {
	cfg          *config.Config
	remote       remote
	state        storage.Store
	catalog      *catalog.Catalog
	sessions     *session.Store
	estimator    *pricing.Estimator
	orchestrator *orchestrator.Orchestrator
	logger       *slog.Logger
	out          io.Writer
	errOut       io.Writer
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, common.NewUserError("Invalid configuration", err)
	}
	logger := slog.Default()

	r, err := newRemote(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create backend client: %w", err)
	}
	state, err := openState(cmd.Context(), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open local state: %w", err)
	}

	cat := catalog.New(r, logger)
	sessions := session.NewStore(r, state, logger)
	est := pricing.NewEstimator(cat, state, logger)
	orch, err := orchestrator.New(orchestrator.Config{
		Analyzer: r,
		Sessions: sessions,
		Prices:   est,
		State:    state,
		LLM:      func() model.LLMConfig { return cfg.LLM },
		Logger:   logger,
	})
	if err != nil {
		_ = state.Close()
		return nil, err
	}

	return &app{
		cfg:          cfg,
		remote:       r,
		state:        state,
		catalog:      cat,
		sessions:     sessions,
		estimator:    est,
		orchestrator: orch,
		logger:       logger,
		out:          cmd.OutOrStdout(),
		errOut:       cmd.ErrOrStderr(),
	}, nil
}

func (a *app) Close() {
	if err := a.state.Close(); err != nil {
		a.logger.Debug("Failed to close local state", "error", err)
	}
}

// restore brings back the price list, the coefficient, the current session
// and any failed send from an earlier invocation.
func (a *app) restore(ctx context.Context) error {
	if _, err := a.catalog.Load(ctx); err != nil {
		a.logger.Warn("Failed to load price list", "error", err)
	}
	if err := a.estimator.LoadCoefficient(ctx); err != nil {
		a.logger.Warn("Failed to load coefficient", "error", err)
	}
	if _, err := a.sessions.Restore(ctx); err != nil {
		return fmt.Errorf("failed to restore session: %w", err)
	}
	if cur := a.sessions.Current(); cur != nil && cur.LatestAnalysis != nil {
		a.estimator.Update(cur.LatestAnalysis.ExtractedInfo)
	}
	if _, err := a.orchestrator.RestoreFailure(ctx); err != nil {
		a.logger.Warn("Failed to restore failed message", "error", err)
	}
	return nil
}

// view collects what `show` and the send commands print.
func (a *app) view() cli.SessionView {
	snap := a.orchestrator.Snapshot()
	cur := a.sessions.Current()
	v := cli.SessionView{
		Session:    cur,
		Selections: a.sessions.Selections(),
		Hint:       snap.Hint,
		Pending:    snap.Pending,
	}
	if f := snap.Failed; f != nil {
		stored := f.MessageID != 0 && cur != nil && cur.TurnIndex(f.MessageID) >= 0
		if !stored {
			v.Failed = f.Content
		}
	}
	return v
}

func (a *app) render() error {
	if err := cli.RenderSession(a.out, a.view()); err != nil {
		return err
	}
	if a.sessions.Current() == nil {
		return nil
	}
	_, err := fmt.Fprintln(a.out, "\n"+cli.FormatEstimate(a.estimator.Estimate()))
	return err
}

// sendResult prints the outcome of a send or retry and maps errors onto
// messages the seller can act on.
func (a *app) sendResult(err error) error {
	switch {
	case errors.Is(err, common.ErrMissingLLMConfig):
		return common.NewUserError("LLM is not configured: set llm.api_key and llm.model, or QUOTE_LLM_API_KEY and QUOTE_LLM_MODEL", err)
	case errors.Is(err, common.ErrValidation):
		return common.NewUserError("Nothing to send: the message is empty", err)
	case errors.Is(err, common.ErrNoFailedMessage):
		return common.NewUserError("Nothing to retry", err)
	}
	if rerr := a.render(); rerr != nil {
		return rerr
	}
	if err != nil {
		return common.NewUserError(cli.ErrorIcon+" Analysis failed", err)
	}
	return nil
}
