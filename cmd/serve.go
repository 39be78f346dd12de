package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/assessment-finder/internal/metrics"
	"github.com/spigell/assessment-finder/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the query form over HTTP",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("listen", "l", "", "address to listen on (default is :8080)")

	viper.BindPFlag("server.listen", serveCmd.Flags().Lookup("listen"))
}

func serve() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, config, client := setup()

	if !viper.GetBool("debug") {
		gin.SetMode(gin.ReleaseMode)
	}

	logger.Info("starting the assessment-finder server", zap.String("version", version))

	collector, err := metrics.New(prometheus.DefaultRegisterer)
	if err != nil {
		logger.Fatal("registering metrics", zap.Error(err))
	}
	client.Observer = collector

	srv, err := web.New(config.Server, web.Deps{
		Upstream: client,
		Logger:   logger,
		Metrics:  collector,
		Gatherer: prometheus.DefaultGatherer,
		Version:  version,
	})
	if err != nil {
		logger.Fatal("creating the server", zap.Error(err))
	}

	if err := srv.Run(ctx); err != nil {
		logger.Fatal("serving", zap.Error(err))
	}

	logger.Info("server stopped")
}
