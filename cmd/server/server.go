// Copyright 2026 Felix Köhler
// Licensed under the EUPL-1.2

package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/urfave/cli/v3"

	"codeberg.org/fkoehler/go-account-service/internal/config"
	"codeberg.org/fkoehler/go-account-service/internal/database"
	"codeberg.org/fkoehler/go-account-service/internal/handlers"
	"codeberg.org/fkoehler/go-account-service/internal/i18n"
	"codeberg.org/fkoehler/go-account-service/internal/middleware"
	"codeberg.org/fkoehler/go-account-service/internal/repository"
	"codeberg.org/fkoehler/go-account-service/internal/services/auth"
	"codeberg.org/fkoehler/go-account-service/internal/services/email"
	"codeberg.org/fkoehler/go-account-service/internal/services/password"
	"codeberg.org/fkoehler/go-account-service/internal/services/token"
	"codeberg.org/fkoehler/go-account-service/internal/services/verification"
)

func runServer(ctx context.Context, cmd *cli.Command) error {
	cfg := config.NewFromCLI(cmd)

	setupLogger(cfg.Log.Level, cfg.Log.Format)

	db, err := database.Open(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	if err := i18n.Init(); err != nil {
		return fmt.Errorf("initializing i18n: %w", err)
	}

	keys, err := loadKeys(cfg)
	if err != nil {
		return err
	}

	// All services are built once here and shared; request handlers only
	// ever see these immutable instances.
	repo := repository.New(db)

	tokenService, err := token.NewService(keys, token.Config{
		AccessTTL:          cfg.Token.AccessTTL(),
		RefreshTTL:         cfg.Token.RefreshTTL(),
		ExtendedRefreshTTL: cfg.Token.ExtendedRefreshTTL(),
	})
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}

	codes := verification.NewEngine(repo, verification.Config{
		CodeTTL:        cfg.Verification.CodeTTL(),
		ResendCooldown: cfg.Verification.ResendCooldown(),
	})

	mailer, err := setupMailer(cfg)
	if err != nil {
		return err
	}

	authService := auth.NewService(repo, tokenService, password.NewHasher(), codes, mailer)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger())
	e.Use(middleware.Locale())

	setupRoutes(e, handlers.New(authService), authService)

	return startWithGracefulShutdown(ctx, e, cfg)
}

// startWithGracefulShutdown serves until the context is canceled, a signal
// arrives, or a listener fails, then drains in-flight requests.
func startWithGracefulShutdown(ctx context.Context, e *echo.Echo, cfg *config.Config) error {
	tlsResult, err := setupTLS(cfg)
	if err != nil {
		return fmt.Errorf("TLS setup: %w", err)
	}

	errChan := make(chan error, 2)
	var redirectServer *http.Server

	switch tlsResult.mode {
	case tlsModeOff:
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		slog.Info("server_start", "addr", addr, "tls", false)
		go func() {
			if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()

	case tlsModeACME:
		slog.Info("server_start", "addr", ":443", "tls", true)
		go func() {
			if err := startTLSServer(ctx, e, ":443", tlsResult.tlsConfig); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()

		// Port 80 answers the HTTP-01 challenge and redirects everything
		// else to HTTPS.
		redirectServer = &http.Server{
			Addr:              ":80",
			Handler:           tlsResult.httpHandler,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			if err := redirectServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()

	case tlsModeSelfSigned, tlsModeManual:
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		slog.Info("server_start", "addr", addr, "tls", true)
		go func() {
			if err := startTLSServer(ctx, e, addr, tlsResult.tlsConfig); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-ctx.Done():
		slog.Info("server_stopping", "reason", "context canceled")
	case <-quit:
		slog.Info("server_stopping", "reason", "signal")
	case err := <-errChan:
		slog.Error("server_failed", "error", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("server_shutdown_failed", "error", err)
	}
	if redirectServer != nil {
		if err := redirectServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("redirect_shutdown_failed", "error", err)
		}
	}

	slog.Info("server_stopped")
	return nil
}

func startTLSServer(ctx context.Context, e *echo.Echo, addr string, tlsConfig *tls.Config) error {
	lc := &net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	e.TLSListener = tls.NewListener(ln, tlsConfig)
	e.TLSServer.TLSConfig = tlsConfig
	return e.Server.Serve(e.TLSListener)
}

// loadKeys loads the configured RSA key pair, or generates an ephemeral one
// for development when no path is configured.
func loadKeys(cfg *config.Config) (*token.KeyPair, error) {
	if cfg.Token.KeysPath == "" {
		slog.Warn("token_keys_ephemeral", "reason", "no keys path configured, tokens will not survive restarts")
		keys, err := token.GenerateKeyPair()
		if err != nil {
			return nil, fmt.Errorf("generating dev key pair: %w", err)
		}
		return keys, nil
	}
	keys, err := token.LoadKeyPair(cfg.Token.KeysPath, cfg.Token.PrivateKeyFile, cfg.Token.PublicKeyFile)
	if err != nil {
		return nil, fmt.Errorf("loading key pair: %w", err)
	}
	return keys, nil
}

// setupMailer uses SMTP when configured and the log mailer otherwise.
func setupMailer(cfg *config.Config) (auth.Mailer, error) {
	if cfg.SMTP.Host == "" {
		slog.Warn("mailer_log_only", "reason", "no SMTP host configured")
		return email.LogMailer{}, nil
	}
	mailer, err := email.NewService(&cfg.SMTP)
	if err != nil {
		return nil, fmt.Errorf("creating mail service: %w", err)
	}
	return mailer, nil
}
