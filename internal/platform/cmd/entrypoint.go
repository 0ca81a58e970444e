// Package cmd holds the startup steps shared by the attendance commands.
package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/ignitehq/attendance/internal/platform/config"
	"github.com/ignitehq/attendance/internal/platform/otel"
)

const otelShutdownTimeout = 5 * time.Second

// Service names reported to tracing.
const (
	ServiceAttendance = "attendance"
	ServiceSweep      = "attendance-sweep"
)

// ParseConfig loads dotenv files and environment defaults into cfg.
func ParseConfig[T any](cfg *T) error {
	if cfg == nil {
		return errors.New("config target is required")
	}
	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	return config.ParseEnv(cfg)
}

// ParseArgs parses command-line flags.
func ParseArgs(fs *flag.FlagSet, args []string) error {
	if fs == nil {
		return errors.New("flag parser is required")
	}
	if args == nil {
		args = []string{}
	}
	return fs.Parse(args)
}

// RunWithTelemetry sets up tracing labelled with attrs, runs the command and
// flushes spans once it returns.
func RunWithTelemetry(ctx context.Context, service string, run func(context.Context) error, attrs ...attribute.KeyValue) error {
	service = strings.TrimSpace(service)
	if service == "" {
		return fmt.Errorf("service name is required")
	}
	if run == nil {
		return fmt.Errorf("run function is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	shutdown, err := otel.Setup(ctx, service, attrs...)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), otelShutdownTimeout)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			log.Printf("%s otel shutdown: %v", service, err)
		}
	}()

	started := time.Now()
	err = run(ctx)
	log.Printf("%s stopped after %s", service, time.Since(started).Round(time.Millisecond))
	return err
}
