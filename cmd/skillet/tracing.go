package main

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/skillet-ai/skillet/pkg/logger"
	"github.com/skillet-ai/skillet/pkg/telemetry"
	"github.com/skillet-ai/skillet/pkg/version"
)

var tracer = telemetry.Tracer("skillet.cli")

// initTracing initializes the OpenTelemetry tracing system.
func initTracing(ctx context.Context) (func(context.Context) error, error) {
	config := telemetry.Config{
		Enabled:        viper.GetBool("tracing.enabled"),
		ServiceName:    "skillet",
		ServiceVersion: version.Get().Version,
		SamplerType:    viper.GetString("tracing.sampler"),
		SamplerRatio:   viper.GetFloat64("tracing.ratio"),
	}
	return telemetry.InitTracer(ctx, config)
}

// withTracing wraps a command's Run with a CLI-level span and tracer
// lifecycle management.
func withTracing(cmd *cobra.Command) *cobra.Command {
	originalRun := cmd.Run

	cmd.Run = func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		shutdown, err := initTracing(ctx)
		if err != nil {
			logger.G(ctx).WithError(err).Warn("failed to initialize tracing")
			originalRun(cmd, args)
			return
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				logger.G(ctx).WithError(err).Warn("failed to shut down tracing")
			}
		}()

		ctx, span := tracer.Start(ctx, cmd.CommandPath())
		span.SetAttributes(
			attribute.String("command.name", cmd.Name()),
			attribute.Int("args.count", len(args)),
		)
		defer span.End()
		span.SetStatus(codes.Ok, "")

		cmd.SetContext(ctx)
		originalRun(cmd, args)
	}
	return cmd
}
