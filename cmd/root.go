package cmd

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/lehigh-university-libraries/passport/internal/config"
	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
)

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "passport",
		Short: "Passport photo tool with AI retouching and A4 print layouts",
		Long: `Passport turns a portrait into a print-ready passport photo.

Upload a portrait, let an image model retouch it onto a solid blue
background, then download the photo or an A4 sheet of six 35x45mm copies.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
			setupLogging(logLevel)
		},
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML config file")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	// Add subcommands
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newEditCmd())
	cmd.AddCommand(newSheetCmd())

	return cmd
}

func setupLogging(level string) {
	if level == "" {
		level = os.Getenv("PASSPORT_LOG_LEVEL")
	}
	lvl, err := config.ParseLevel(level)
	if err != nil {
		slog.Warn("Ignoring log level", "err", err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}

// loadConfig reads the config file and environment, then applies the
// persistent flags. Commands validate after applying their own flags.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	} else {
		// The file may set a level the environment did not.
		setupLogging(cfg.LogLevel)
	}
	return cfg, nil
}
