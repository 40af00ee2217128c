package app

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/PolecatWorks/hams-sub000/hams"
	"github.com/PolecatWorks/hams-sub000/internal/hamsconfig"
	"github.com/PolecatWorks/hams-sub000/internal/hamslog"
	"github.com/PolecatWorks/hams-sub000/probe"
)

// NewServeCommand builds the "hamsd serve" command: it wires a Hams
// instance from configuration and blocks until the event loop exits on
// its own (signal, /hams/shutdown, or cancellation).
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "run the sample daemon under HaMS supervision",
		Args:  cobra.ExactArgs(0),
		RunE:  runServe,
	}
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := hamsconfig.Load()
	if err != nil {
		return err
	}

	logger := hamslog.New(
		hamslog.WithName(cfg.Name),
		hamslog.WithTags(map[string]string{"version": cfg.Version}),
	)
	defer logger.Flush()

	h, err := hams.New(cfg.Name,
		hams.WithVersion(cfg.Version),
		hams.WithBindAddress(cfg.BindAddress),
		hams.WithGracePeriod(cfg.GracePeriod),
		hams.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	ready, err := probe.NewManual("ready", false)
	if err != nil {
		return err
	}
	h.InsertReady(ready)

	for _, kp := range cfg.KickProbes {
		kick, err := probe.NewKick(kp.Name, kp.Margin)
		if err != nil {
			return err
		}
		h.InsertAlive(kick)
		if kp.Ready {
			h.InsertReady(kick)
		}
	}

	if err := h.RegisterPrometheus(prometheus.DefaultGatherer); err != nil {
		return err
	}

	if err := h.RegisterShutdown(func(ctx context.Context) {
		logger.Info("shutdown callback fired, releasing resources")
	}); err != nil {
		return err
	}

	if err := h.Start(context.Background()); err != nil {
		return fmt.Errorf("starting hams: %w", err)
	}

	ready.Enable()
	logger.Infow("hamsd serving", "bind_address", cfg.BindAddress)

	<-h.Done()
	logger.Info("hamsd stopped")
	return nil
}
