package cmd

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/saravenpi/haggle/internal/api"
	"github.com/saravenpi/haggle/internal/chat"
	"github.com/saravenpi/haggle/internal/config"
	"github.com/saravenpi/haggle/internal/logging"
	"github.com/saravenpi/haggle/internal/sellers"
	"github.com/saravenpi/haggle/internal/session"
	"github.com/saravenpi/haggle/internal/state"
	"github.com/saravenpi/haggle/internal/ui"
)

// runtime is everything a command needs, built once from the config.
type runtime struct {
	cfg    *config.Config
	log    *zap.Logger
	auth   *session.Service
	client *api.Client
	state  *state.DB
	app    *ui.App
	cancel context.CancelFunc
}

func setup(cmd *cobra.Command) (*runtime, error) {
	configPath, _ := cmd.Flags().GetString("config")
	verbose, _ := cmd.Flags().GetBool("verbose")

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Log.Level = "debug"
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.File, cfg.Log.Dev)
	if err != nil {
		return nil, err
	}

	auth := session.New(cfg.SessionPath())
	if err := auth.Init(); err != nil {
		_ = logger.Sync()
		return nil, err
	}

	classifier := session.NewClassifier()
	classifier.Register(session.ClassUser, api.UserRoutes()...)
	client := api.NewClient(cfg.API.BaseURL, session.NewSigners(auth, classifier), logger, api.Options{
		Timeout:           cfg.API.Timeout,
		RequestsPerSecond: cfg.API.RequestsPerSecond,
		Burst:             cfg.API.Burst,
		BreakerFailures:   cfg.API.BreakerFailures,
		BreakerTimeout:    cfg.API.BreakerTimeout,
	})

	db, err := state.Open(cfg.StatePath())
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}

	inbox := chat.NewInbox(db)
	inbox.Warm()

	ctx, cancel := context.WithCancel(cmd.Context())
	app := ui.NewApp(ctx, client, auth, sellers.NewBook(cfg.SellersDir()), inbox, cfg.Chat, logger)

	logger.Info("haggle started",
		zap.String("version", version),
		zap.String("api", cfg.API.BaseURL),
		zap.String("data_dir", cfg.DataDir))

	return &runtime{
		cfg:    cfg,
		log:    logger,
		auth:   auth,
		client: client,
		state:  db,
		app:    app,
		cancel: cancel,
	}, nil
}

func (r *runtime) Close() {
	r.cancel()
	if err := r.state.Close(); err != nil {
		r.log.Warn("failed to close state", zap.Error(err))
	}
	_ = r.log.Sync()
}

// startScreen restores the last open conversation, falling back to the menu.
func (r *runtime) startScreen() func() tea.Model {
	return func() tea.Model {
		if id, ok := r.app.Inbox.Restore(); ok {
			return ui.NewMessagesModel(r.app, id)
		}
		return ui.NewMenuModel(r.app)
	}
}

// run starts the TUI on the screen next builds, behind the sign-in screen when there is
// no valid session.
func (r *runtime) run(next func() tea.Model) error {
	var initial tea.Model
	if r.auth.Authenticated() {
		initial = next()
	} else {
		initial = ui.NewLoginModel(r.app, next)
	}

	p := tea.NewProgram(initial, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("failed to run interface: %w", err)
	}
	return nil
}
