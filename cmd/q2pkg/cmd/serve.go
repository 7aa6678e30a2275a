package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bokulich-lab/q2pkg/internal/server"
	"github.com/bokulich-lab/q2pkg/pkg/metrics"
)

var serveListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the build status API",
	Long: `Serve exposes recorded artifacts and Prometheus metrics over HTTP:
/api/v1/artifacts, /api/v1/health and /metrics.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveListen, "listen", ":9464", "listen address")
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	db, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	exporter := metrics.NewExporter(db)
	srv := server.New(serveListen, db, exporter, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return srv.Run(ctx)
}
