// Package sweep runs one attendance sweep and exits, for external schedulers.
package sweep

import (
	"context"
	"flag"
	"log"

	entrypoint "github.com/ignitehq/attendance/internal/platform/cmd"
	"github.com/ignitehq/attendance/internal/platform/otel"
	attendanceapp "github.com/ignitehq/attendance/internal/services/attendance/app"
)

// Config holds sweep command configuration.
type Config struct {
	DBPath         string `env:"ATTENDANCE_DB_PATH" envDefault:"data/attendance.db"`
	Timezone       string `env:"ATTENDANCE_TIMEZONE" envDefault:"Australia/Sydney"`
	SessionWeekday string `env:"ATTENDANCE_SESSION_WEEKDAY" envDefault:"sunday"`
	GoogleCreds    string `env:"ATTENDANCE_GOOGLE_CREDS"`
	SheetID        string `env:"ATTENDANCE_SHEET_ID"`
	SheetName      string `env:"ATTENDANCE_SHEET_NAME" envDefault:"Sheet1"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "The attendance SQLite database path")
	fs.StringVar(&cfg.Timezone, "timezone", cfg.Timezone, "The IANA zone sessions are scheduled in")
	fs.StringVar(&cfg.SessionWeekday, "session-weekday", cfg.SessionWeekday, "The weekday successor sessions fall on")
	fs.StringVar(&cfg.SheetID, "sheet-id", cfg.SheetID, "The lateness spreadsheet id")
	fs.StringVar(&cfg.SheetName, "sheet-name", cfg.SheetName, "The lateness sheet tab")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run performs a single sweep.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceSweep, func(ctx context.Context) error {
		result, err := attendanceapp.SweepOnce(ctx, attendanceapp.RuntimeConfig{
			DBPath:         cfg.DBPath,
			Timezone:       cfg.Timezone,
			SessionWeekday: cfg.SessionWeekday,
			GoogleCreds:    cfg.GoogleCreds,
			SheetID:        cfg.SheetID,
			SheetName:      cfg.SheetName,
		})
		if err != nil {
			return err
		}
		log.Printf("sweep done: %d deleted, %d created, %d late", result.Deleted, result.Created, result.LateReported)
		return nil
	}, otel.ScheduleAttributes(cfg.Timezone, cfg.SessionWeekday)...)
}
