package cli

import (
	"github.com/urfave/cli/v2"

	"digital.vasic.harness/pkg/logging"
	"digital.vasic.harness/pkg/metrics"
)

var metricsCommand = &cli.Command{
	Name:  "metrics",
	Usage: "Serve the metrics endpoint until interrupted",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "addr",
			Usage: "Listen address",
			Value: metrics.DefaultAddr,
		},
	},
	Action: serveMetrics,
}

func serveMetrics(c *cli.Context) error {
	h, err := setup(c)
	if err != nil {
		return err
	}
	defer h.Close()

	ctx, stop := interruptible(c.Context)
	defer stop()

	prom := metrics.NewPrometheusMetrics()
	prom.SetEnvironment(h.label)
	server := metrics.NewServer(c.String("addr"), prom, h.logger)
	if err := server.Start(ctx); err != nil {
		return err
	}
	h.logger.Info("serving metrics", logging.StringField("addr", server.Addr()))

	<-ctx.Done()
	return nil
}
