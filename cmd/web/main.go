package main

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/de-tools/site-warden/pkg/server"
	"github.com/de-tools/site-warden/pkg/store/history"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	historyPath string
	logDir      string
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "web",
		Short: "Serve finished audit runs over a read-only HTTP API",
		RunE:  runServer,
	}

	rootCmd.Flags().StringVar(&historyPath, "history-path", "site-warden.db",
		"path to the run history database")
	rootCmd.Flags().StringVar(&logDir, "log-dir", "logs",
		"audit log directory used for run digests")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Error loading .env file: %v\n", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := history.NewDB(history.Settings{DbPath: historyPath})
	if err != nil {
		return fmt.Errorf("failed to open run history: %w", err)
	}
	defer db.Close()

	store, err := history.NewStore(db)
	if err != nil {
		return fmt.Errorf("failed to create run history store: %w", err)
	}

	host := os.Getenv("SERVER_HOST")
	port := os.Getenv("SERVER_PORT")

	if host == "" || port == "" {
		logger.Error().Msgf("Missing server configuration from .env file")
		os.Exit(1)
	}

	api := server.NewWebAPI(logger, server.Config{
		Addr:            net.JoinHostPort(host, port),
		ShutdownTimeout: 10 * time.Second,
		Dependencies: server.Dependencies{
			History: store,
			LogDir:  logDir,
		},
	})

	return api.Start()
}
