package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	configPath  string
	mappingPath string
	debug       bool
	logger      = log.Default()
)

func main() {
	root := &cobra.Command{
		Use:           "dealgraph",
		Short:         "Relationship intelligence for B2B sales pipelines",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if err := godotenv.Load(); err != nil {
				// A missing .env is normal; the environment is used as is.
				logger.Debug("no .env file loaded", "err", err)
			}
			logger = newLogger(debug)
			log.SetDefault(logger)
		},
	}
	root.Version = version
	root.SetVersionTemplate("{{.Version}}\n")
	root.PersistentFlags().StringVar(&configPath, "config", "dealgraph.yaml", "Project config file")
	root.PersistentFlags().StringVar(&mappingPath, "mapping", "mapping.yaml", "CRM field mapping file, built-in providers when absent")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	root.AddCommand(initCmd())
	root.AddCommand(ingestCmd())
	root.AddCommand(trackCmd())
	root.AddCommand(queryCmd())
	root.AddCommand(analyzeCmd())
	root.AddCommand(validateCmd())
	root.AddCommand(exportCmd())
	root.AddCommand(statusCmd())
	root.AddCommand(resetCmd())
	root.AddCommand(emitCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(versionCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := root.ExecuteContext(ctx); err != nil {
		logger.Error(err)
		stop()
		os.Exit(1)
	}
}

func newLogger(debug bool) *log.Logger {
	level := log.InfoLevel
	if debug {
		level = log.DebugLevel
	}
	return log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Level:           level,
	})
}
