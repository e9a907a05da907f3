package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/perfline/perfline/internal/server"
	"github.com/perfline/perfline/internal/timeline"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the entry timeline HTTP API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().Int("capacity", timeline.DefaultCapacity, "maximum buffered entry count")
	serveCmd.Flags().String("listen", ":8080", "HTTP listen address")

	viper.BindPFlag("capacity", serveCmd.Flags().Lookup("capacity"))
	viper.BindPFlag("listen", serveCmd.Flags().Lookup("listen"))
}

func runServe(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	cfg := timeline.DefaultConfig()
	if v := viper.GetInt("capacity"); v != 0 {
		cfg.Capacity = v
	}
	if v := viper.GetString("listen"); v != "" {
		cfg.ListenAddr = v
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	buffer := timeline.NewEntryBuffer(cfg.Capacity, logger)
	recorder := timeline.NewRecorder(buffer, nil, logger)
	srv := server.New(cfg, buffer, recorder, logger)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	logger.Info("Perfline started",
		zap.Int("capacity", cfg.Capacity),
		zap.String("listen_addr", cfg.ListenAddr),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-sigCh:
		logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Stop(ctx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}

func newLogger() (*zap.Logger, error) {
	if verbose || viper.GetBool("verbose") {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
