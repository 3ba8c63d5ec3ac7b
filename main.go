// Command graphdb starts the graph database server: configuration is
// loaded, the database opened, the default space bootstrapped and the
// HTTP API served until interrupted.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"graphdb.evalgo.org/common"
	"graphdb.evalgo.org/config"
	"graphdb.evalgo.org/httpapi"
	"graphdb.evalgo.org/schema"
	"graphdb.evalgo.org/server"
	"graphdb.evalgo.org/session"
)

func main() {
	configPath := flag.String("config", "", "path to a config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		common.Logger.WithError(err).Fatal("failed to load configuration")
	}

	logger := common.NewLogger(common.LoggerConfig{
		Level:  cfg.Log.Level,
		Format: "text",
	})

	db, err := session.OpenWithConfig(cfg)
	if err != nil {
		logger.WithError(err).Fatal("failed to open database")
	}
	defer db.Close()

	if cfg.Bootstrap.AutoCreateDefaultSpace {
		name := cfg.Bootstrap.DefaultSpaceName
		if _, err := db.Schema().GetSpace(name); err != nil {
			if _, err := db.CreateSpace(name, schema.SpaceConfig{}); err != nil {
				logger.WithError(err).Fatal("failed to bootstrap default space")
			}
		}
	}

	svc := server.NewGraphService(db, server.Config{
		EnableAuthorize:     cfg.Auth.EnableAuthorize,
		MaxConnections:      cfg.Database.MaxConnections,
		FailedLoginAttempts: cfg.Auth.FailedLoginAttempts,
		SessionIdleTimeout:  cfg.SessionIdleTimeout(),
		DefaultUsername:     cfg.Auth.DefaultUsername,
		DefaultPassword:     cfg.Auth.DefaultPassword,
	}, logger)
	defer svc.Close()

	httpCfg := httpapi.DefaultServerConfig()
	httpCfg.Host = cfg.Database.Host
	httpCfg.Port = cfg.Database.Port
	srv := httpapi.NewServer(svc, httpCfg, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.WithField("signal", sig.String()).Info("shutting down")
		if err := srv.Shutdown(context.Background()); err != nil {
			logger.WithError(err).Error("shutdown failed")
		}
	case err := <-errCh:
		if err != nil {
			logger.WithError(err).Error("http server failed")
		}
	}
}
