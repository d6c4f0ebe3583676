package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/lehigh-university-libraries/passport/internal/config"
	"github.com/lehigh-university-libraries/passport/internal/editing"
	"github.com/lehigh-university-libraries/passport/internal/export"
	"github.com/lehigh-university-libraries/passport/internal/handlers"
	"github.com/lehigh-university-libraries/passport/internal/rasterizer"
	"github.com/lehigh-university-libraries/passport/internal/storage"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCmd() *cobra.Command {
	var (
		port       string
		provider   string
		rasterName string
		publicURL  string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start web server for the passport photo interface",
		Long: `Starts the Passport web interface on the specified port.

The web interface lets you upload a portrait, retouch it with an image
model (Gemini or OpenAI), arrange six copies on an A4 sheet and download
or print the result.`,
		Example: `  # Start server on default port 8888
  passport serve

  # Use OpenAI and the built-in sheet renderer
  passport serve --provider openai --rasterizer native

  # Start server on custom port
  passport serve --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if provider != "" {
				cfg.Provider = provider
			}
			if rasterName != "" {
				cfg.Rasterizer = rasterName
			}
			if publicURL != "" {
				cfg.PublicURL = publicURL
			}
			if cfg.PublicURL == "" {
				cfg.PublicURL = "http://localhost:" + port
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			editor, err := editing.New(cfg)
			if err != nil {
				return err
			}

			r, closeRasterizer := newRasterizer(cfg)
			defer closeRasterizer()

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			store := storage.New()
			defer store.CloseAll()

			handler := handlers.New(store, handlers.Options{
				Editor:      editor,
				Exporter:    export.New(r),
				Instruction: cfg.Instruction,
				UploadLimit: cfg.UploadLimit(),
				PublicURL:   cfg.PublicURL,
				BaseContext: ctx,

				AllowPrivateURLs: cfg.AllowPrivateURLs,
			})

			addr := ":" + port
			server := &http.Server{
				Addr:              addr,
				Handler:           handler.Routes(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				slog.Info("Passport interface available", "addr", addr, "url", "http://localhost"+addr,
					"provider", cfg.Provider, "rasterizer", cfg.Rasterizer)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				sweepSessions(gctx, store, cfg.SessionTTL)
				return nil
			})
			g.Go(func() error {
				// Wait for context cancellation (Ctrl+C) or server error
				<-gctx.Done()
				slog.Info("Shutting down server...")
				// Give server 5 seconds to shut down gracefully
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				slog.Info("Server stopped")
				return nil
			})

			return g.Wait()
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "8888", "Port to listen on")
	cmd.Flags().StringVar(&provider, "provider", "", "Image editing provider (gemini, openai)")
	cmd.Flags().StringVar(&rasterName, "rasterizer", "", "Sheet rasterizer (chrome, native)")
	cmd.Flags().StringVar(&publicURL, "public-url", "", "Base URL the rasterizer uses to reach this server")

	return cmd
}

func newRasterizer(cfg config.Config) (rasterizer.Rasterizer, func()) {
	if cfg.Rasterizer == config.RasterizerNative {
		return rasterizer.NewNative(), func() {}
	}

	cc := rasterizer.DefaultChromeConfig()
	cc.Bin = cfg.Chrome.Bin
	cc.DebuggerURL = cfg.Chrome.DebuggerURL
	cc.Headless = cfg.Chrome.Headless
	cc.NoSandbox = cfg.Chrome.NoSandbox
	cc.Flags = cfg.Chrome.Flags

	chrome := rasterizer.NewChrome(cc)
	return chrome, func() {
		if err := chrome.Close(); err != nil {
			slog.Warn("Failed to close Chrome", "err", err)
		}
	}
}

// sweepSessions drops idle sessions until ctx is done.
func sweepSessions(ctx context.Context, store *storage.SessionStore, ttl time.Duration) {
	if ttl <= 0 {
		<-ctx.Done()
		return
	}

	interval := ttl / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := store.Sweep(ttl, now); n > 0 {
				slog.Info("Expired idle sessions", "count", n, "remaining", store.Len())
			}
		}
	}
}
