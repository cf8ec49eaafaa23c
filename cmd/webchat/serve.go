package main

import (
	"context"
	"fmt"
	"net/url"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"pkt.systems/pslog"
	"pkt.systems/webchat"
	"pkt.systems/webchat/core"
	"pkt.systems/webchat/httpapi"
	"pkt.systems/webchat/internal/appconfig"
	"pkt.systems/webchat/internal/persist"
)

func newServeCmd() *cobra.Command {
	var cfgPath string
	var browser bool
	var headless bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the relay",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := pslog.Ctx(cmd.Context())
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("browser") {
				cfg.Shell.Browser = browser
			}
			if cmd.Flags().Changed("headless") {
				cfg.Shell.Headless = headless
			}

			store, closeStore, err := openStore(cfg.Store, logger)
			if err != nil {
				return err
			}
			defer func() { _ = closeStore() }()
			logger.Info("store selected", "backend", cfg.Store.Backend, "path", cfg.Store.Path)

			serverCfg := webchat.ServerConfig{
				Coordinator: cfg.CoordinatorSettings(),
				HTTP:        toHTTPConfig(cfg.HTTP),
				Shell: webchat.ShellConfig{
					PanelURL: panelURL(cfg),
					Headless: cfg.Shell.Headless,
					ExecPath: cfg.Shell.ChromePath,
				},
			}
			opts := []webchat.ServerOption{webchat.WithHTTP()}
			if cfg.Shell.Browser {
				opts = append(opts, webchat.WithBrowserShell())
			}
			server, err := webchat.New(serverCfg, webchat.ServerDeps{Store: store, Logger: logger}, opts...)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			go func() {
				<-ctx.Done()
				stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := server.Stop(stopCtx); err != nil {
					logger.Warn("server stop failed", "err", err)
				}
			}()
			logger.Info("panel available", "url", redactToken(serverCfg.Shell.PanelURL))
			if err := server.Start(ctx); err != nil {
				return err
			}
			return server.Wait()
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().BoolVar(&browser, "browser", false, "open the panel in a DevTools-driven browser on demand")
	cmd.Flags().BoolVar(&headless, "headless", false, "run the panel browser headless")
	return cmd
}

func openStore(cfg appconfig.StoreConfig, logger pslog.Logger) (core.KVStore, func() error, error) {
	switch cfg.Backend {
	case appconfig.StoreBackendSQLite:
		store, err := persist.OpenSQLite(cfg.Path, logger)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	case appconfig.StoreBackendFile, "":
		store, err := persist.NewFileStoreWithLogger(cfg.Path, logger)
		if err != nil {
			return nil, nil, err
		}
		return store, func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unsupported store backend %q", cfg.Backend)
	}
}

func toHTTPConfig(cfg appconfig.HTTPConfig) httpapi.Config {
	return httpapi.Config{
		Addr:                      cfg.Addr,
		BaseURL:                   cfg.BaseURL,
		BasePath:                  cfg.BasePath,
		AuthToken:                 cfg.AuthToken,
		HistorySize:               cfg.HistorySize,
		CloseOnConsumerDisconnect: cfg.CloseOnConsumerDisconnect,
	}
}

// panelURL returns the configured panel url or derives one from the listen
// address, carrying the auth token for the page's requests.
func panelURL(cfg appconfig.Config) string {
	if explicit := strings.TrimSpace(cfg.Shell.PanelURL); explicit != "" {
		return httpapi.WithToken(explicit, cfg.HTTP.AuthToken)
	}
	return httpapi.PanelURL(toHTTPConfig(cfg.HTTP))
}

func redactToken(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	if q.Get("token") == "" {
		return raw
	}
	q.Set("token", "REDACTED")
	u.RawQuery = q.Encode()
	return u.String()
}
