package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Layr-Labs/permaweb-uploader-go/internal/app"
	"github.com/Layr-Labs/permaweb-uploader-go/pkg/config"
	"github.com/Layr-Labs/permaweb-uploader-go/pkg/logger"
	"github.com/Layr-Labs/permaweb-uploader-go/pkg/server"
	"github.com/Layr-Labs/permaweb-uploader-go/pkg/uploadErrors"
	"github.com/urfave/cli/v2"
)

const shutdownTimeout = 15 * time.Second

func main() {
	flags := []cli.Flag{
		&cli.IntFlag{
			Name:    "port",
			Aliases: []string{"p"},
			Value:   config.DefaultPort,
			Usage:   "HTTP server port",
			EnvVars: []string{config.EnvUploaderPort},
		},
		&cli.Float64Flag{
			Name:    "rate-limit",
			Usage:   "Upload requests per second across all clients (0 disables)",
			EnvVars: []string{config.EnvUploaderRateLimit},
		},
		&cli.IntFlag{
			Name:    "rate-burst",
			Usage:   "Uploads allowed in a burst when rate limiting",
			Value:   config.DefaultRateBurst,
			EnvVars: []string{config.EnvUploaderRateBurst},
		},
	}

	cliApp := &cli.App{
		Name:  "uploader-server",
		Usage: "Permaweb upload service",
		Description: `An HTTP service that stores payloads on an Arweave-style permanent storage network.

Every upload is:
- validated and tagged with its content type
- built into a format 2 transaction priced and anchored by the gateway
- signed with the wallet's RSA key using RSA-PSS
- submitted to the gateway, whose answer is classified and recorded as a receipt`,
		Version: "1.0.0",
		Flags:   append(flags, app.CommonFlags()...),
		Action:  runServer,
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func runServer(c *cli.Context) error {
	cfg, err := app.ConfigFromCLI(c)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: cfg.Debug})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = l.Sync() }()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	components, err := app.NewComponents(ctx, cfg, l)
	if err != nil {
		return err
	}
	defer func() {
		if err := components.Close(); err != nil {
			l.Sugar().Errorw("Failed to close receipt store", "error", err)
		}
	}()

	// A broken wallet is reported per request, so the service still starts
	if key, err := components.Keys.Load(ctx); err != nil {
		l.Sugar().Warnw("Wallet key could not be loaded", "kind", uploadErrors.KindOf(err), "error", err)
	} else {
		l.Sugar().Infow("Wallet key loaded", "address", key.Address())
	}

	if cfg.Verbose {
		l.Sugar().Infow("Uploader Server Configuration",
			"port", cfg.Port,
			"gateway", cfg.Gateway.BaseURL(),
			"gateway_timeout", cfg.Gateway.Timeout,
			"persistence", cfg.Persistence.Type,
			"max_upload_bytes", cfg.MaxUploadBytes,
			"rate_limit", cfg.RateLimit,
			"verify_uploads", cfg.VerifyUploads,
		)
	}

	srv := server.NewServer(&server.Config{
		Port:           cfg.Port,
		MaxUploadBytes: cfg.MaxUploadBytes,
		RateLimit:      cfg.RateLimit,
		RateBurst:      cfg.RateBurst,
	}, components.Uploader, l)

	if err := srv.Start(); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	l.Sugar().Infow("Uploader Server running", "port", cfg.Port, "gateway", cfg.Gateway.BaseURL())
	l.Sugar().Infow("Available endpoints",
		"health", "GET /health",
		"upload_text", "POST /upload-text",
		"upload_file", "POST /upload-file",
		"receipt", "GET /tx/{id}")
	l.Sugar().Info("Press Ctrl+C to stop")

	<-ctx.Done()
	l.Sugar().Infow("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Stop(shutdownCtx)
}
