package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	oboe "github.com/JustHoIt/oboe-vintage"
	"github.com/JustHoIt/oboe-vintage/internal/config"
	"github.com/spf13/cobra"
)

// ErrUnhealthy is returned when the backend does not answer the probe.
var ErrUnhealthy = errors.New("backend unreachable")

type healthOptions struct {
	baseURL string
	timeout time.Duration
	envFile string
}

func newHealthCommand() *cobra.Command {
	opts := &healthOptions{}

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Probe the backend liveness endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHealth(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.baseURL, "base-url", "", "API base URL (overrides "+config.KeyBaseURL+")")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "probe timeout (overrides "+config.KeyTimeout+")")
	cmd.Flags().StringVar(&opts.envFile, "env-file", config.DefaultEnvFile, "optional env file")

	return cmd
}

func runHealth(cmd *cobra.Command, opts *healthOptions) error {
	cfg, err := config.Load(opts.envFile)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("base-url") {
		cfg.BaseURL = opts.baseURL
	}
	if cmd.Flags().Changed("timeout") {
		cfg.Timeout = opts.timeout
	}

	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: cfg.LogLevel}))

	client := oboe.New(cfg.ClientOptions(logger)...)
	if !client.IsValid() {
		return client.ValidationError()
	}

	status := client.CheckHealth(cmd.Context())
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s%s (%s)\n", status.Indicator(), cfg.BaseURL, oboe.HealthPath, status.Latency.Round(time.Millisecond))
	if !status.OK {
		return fmt.Errorf("%w: %v", ErrUnhealthy, status.Err)
	}
	return nil
}
