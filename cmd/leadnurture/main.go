package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/app"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/config"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/dispatch"
	transport "github.com/hasebahmdai-arch/lead-nurturing-agent/internal/transport/http"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/pkg/logx"
)

const shutdownTimeout = 10 * time.Second

var (
	// Global flags
	logLevel string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "leadnurture",
	Short: "Real-estate lead nurturing service",
	Long: `leadnurture shortlists CRM leads, sends personalized campaign outreach
and answers customer follow-ups with an agent that routes each question
to text-to-SQL analytics or brochure retrieval.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		level := cfg.LogLevel
		if logLevel != "" {
			level = logLevel
		}
		logx.Init(logx.LoggerOpts{Environment: cfg.Env(), Level: level})
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the campaign feed",
	RunE:  runServe,
}

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consume queued outreach and deliver it",
	Long: `Drains the RabbitMQ outreach queue and sends each message by email or
WhatsApp. Requires AMQP_URL.`,
	RunE: runWorker,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override LOG_LEVEL (debug, info, warn, error)")

	rootCmd.AddCommand(serveCmd, workerCmd, createUserCmd, ingestCmd, evalCmd, feedCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	server := transport.NewServer(a.Service, a.Hub)
	addr := fmt.Sprintf(":%d", cfg.HTTPPort)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.Hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		logx.Info().Str("addr", addr).Str("env", string(cfg.Env())).Bool("queued_outreach", a.Queue != nil).
			Msg("http server started")
		if err := server.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logx.Info().Msg("shutting down http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func runWorker(cmd *cobra.Command, args []string) error {
	if !cfg.Queue.Enabled() {
		return errors.New("AMQP_URL is required for the worker")
	}
	ctx := cmd.Context()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	deliveries, err := a.Queue.Consume()
	if err != nil {
		return err
	}
	logx.Info().Str("queue", cfg.Queue.Queue).Msg("outreach worker started")
	return dispatch.NewWorker(a.Direct).Run(ctx, deliveries)
}
