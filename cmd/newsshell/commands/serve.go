package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"NewsShell/internal/app"
	"NewsShell/internal/config"
	"NewsShell/internal/domain"
	"NewsShell/internal/infrastructure/account"
	"NewsShell/internal/infrastructure/chromesurface"
	"NewsShell/internal/infrastructure/httpapi"
	"NewsShell/internal/infrastructure/masterconfig"
	"NewsShell/internal/infrastructure/pagemeta"
	"NewsShell/internal/infrastructure/scheduler"
	"NewsShell/internal/infrastructure/storage"
	"NewsShell/internal/logging"
)

const authTokenEnv = "NEWSSHELL_AUTH_TOKEN"

var _ httpapi.Shell = (*app.Session)(nil)

type serveOptions struct {
	addr       string
	headless   bool
	intent     string
	noJournal  bool
	watchFile  bool
	fetchFirst bool
}

func newServeCmd(rt *runtime) *cobra.Command {
	opts := serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a session on Chrome tabs and expose the HTTP API",
		Long: `serve runs one session on Chrome tabs and exposes the HTTP API.

The session routes with the master config it was started with. --watch and the
remote refresh schedule update the config store and publish a config event on
/ws/events; the new snapshot applies to the next serve run.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, rt, opts)
		},
	}
	cmd.Flags().StringVar(&opts.addr, "addr", "", "listen address (defaults to http.addr)")
	cmd.Flags().BoolVar(&opts.headless, "headless", true, "run Chrome without a window")
	cmd.Flags().StringVar(&opts.intent, "intent", "", "URL to route as a pending deep-link intent on start")
	cmd.Flags().BoolVar(&opts.noJournal, "no-journal", false, "do not persist decisions")
	cmd.Flags().BoolVar(&opts.watchFile, "watch", true, "reload the config file when it changes")
	cmd.Flags().BoolVar(&opts.fetchFirst, "fetch-config", true, "fetch the remote master config before starting")
	return cmd
}

func serve(ctx context.Context, rt *runtime, opts serveOptions) error {
	cfg := rt.cfg
	logger := rt.logger
	addr := opts.addr
	if addr == "" {
		addr = cfg.HTTP.Addr
	}

	remote := masterconfig.NewClient(cfg.Remote.MasterConfigURL, cfg.Master, cfg.Remote.Timeout)
	master := cfg.Master
	if opts.fetchFirst && cfg.Remote.MasterConfigURL != "" {
		fetched, err := remote.Fetch(ctx)
		if err != nil {
			logger.Warn("remote master config unavailable, using local", "error", err)
		} else {
			master = fetched
		}
	}
	cfg.Master = master
	store := config.NewStore(master)
	if path := config.Path(); opts.watchFile && path != "" {
		if err := config.Watch(ctx, path, store, logging.Component(logger, "config")); err != nil {
			logger.Warn("config watch disabled", "error", err)
		}
	}

	deps := app.Deps{
		Config: cfg,
		Store:  store,
		Titles: app.PageTitles{Extractor: pagemeta.NewExtractor(5*time.Second, master.AppHeaders)},
		Logger: logger,
	}

	if !opts.noJournal {
		journal, err := storage.OpenSQLiteJournal(ctx, cfg.Journal.DSN)
		if err != nil {
			return err
		}
		defer journal.Close()
		deps.Journal = journal
	}

	if cfg.Account.CheckURL != "" {
		deps.Auth = account.NewClient(cfg.Account.CheckURL, func() string { return os.Getenv(authTokenEnv) }, cfg.Remote.Timeout)
	}
	if cfg.Remote.MasterConfigURL != "" {
		deps.Source = remote
		deps.Cron = scheduler.NewCronScheduler(cfg.Scheduler.CronExpression, cfg.Scheduler.Location(), false)
	}

	browser, err := chromesurface.NewBrowser(ctx, chromesurface.Options{
		ExecPath: cfg.Headless.ExecPath,
		Width:    cfg.Headless.Width,
		Height:   cfg.Headless.Height,
		Timeout:  cfg.Headless.Timeout,
		Headless: opts.headless,
	}, logging.Component(logger, "chrome"))
	if err != nil {
		return err
	}
	defer browser.Close()
	deps.Factory = browser

	session, err := app.New(deps)
	if err != nil {
		return err
	}

	var intent *domain.PendingIntent
	if opts.intent != "" {
		intent = &domain.PendingIntent{URL: opts.intent, Source: domain.IntentDeepLink, ReceivedAt: time.Now()}
	}
	if err := session.Start(ctx, intent); err != nil {
		_ = session.Close(context.Background())
		return err
	}

	api := httpapi.New(httpapi.Deps{
		Shell:   session,
		Journal: deps.Journal,
		Events:  session.Events(),
		Meta:    pagemeta.NewExtractor(cfg.Headless.Timeout, master.AppHeaders),
		Logger:  logging.Component(logger, "http"),
	})
	serveErr := api.ListenAndServe(ctx, addr)

	closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := session.Close(closeCtx); err != nil {
		serveErr = errors.Join(serveErr, fmt.Errorf("close session: %w", err))
	}
	return serveErr
}
