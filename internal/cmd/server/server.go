// Package server parses attendance server flags and launches the runtime.
package server

import (
	"context"
	"flag"
	"fmt"
	"time"

	entrypoint "github.com/ignitehq/attendance/internal/platform/cmd"
	"github.com/ignitehq/attendance/internal/platform/otel"
	attendanceapp "github.com/ignitehq/attendance/internal/services/attendance/app"
)

// Config holds attendance server configuration.
type Config struct {
	HTTPAddr        string        `env:"ATTENDANCE_HTTP_ADDR" envDefault:":8080"`
	HealthPort      int           `env:"ATTENDANCE_HEALTH_PORT" envDefault:"0"`
	DBPath          string        `env:"ATTENDANCE_DB_PATH" envDefault:"data/attendance.db"`
	AdminToken      string        `env:"ATTENDANCE_ADMIN_TOKEN"`
	TokenSigningKey string        `env:"ATTENDANCE_TOKEN_SIGNING_KEY"`
	Timezone        string        `env:"ATTENDANCE_TIMEZONE" envDefault:"Australia/Sydney"`
	SessionWeekday  string        `env:"ATTENDANCE_SESSION_WEEKDAY" envDefault:"sunday"`
	SweepInterval   time.Duration `env:"ATTENDANCE_SWEEP_INTERVAL" envDefault:"0s"`
	CleanToken      string        `env:"ATTENDANCE_CLEAN_TOKEN"`
	GoogleCreds     string        `env:"ATTENDANCE_GOOGLE_CREDS"`
	SheetID         string        `env:"ATTENDANCE_SHEET_ID"`
	SheetName       string        `env:"ATTENDANCE_SHEET_NAME" envDefault:"Sheet1"`
	SecureCookies   bool          `env:"ATTENDANCE_SECURE_COOKIES" envDefault:"false"`
	LoginRate       float64       `env:"ATTENDANCE_LOGIN_RATE" envDefault:"0.1667"`
	LoginBurst      int           `env:"ATTENDANCE_LOGIN_BURST" envDefault:"5"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "The HTTP listen address")
	fs.IntVar(&cfg.HealthPort, "health-port", cfg.HealthPort, "The gRPC health server port (0 disables it)")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "The attendance SQLite database path")
	fs.StringVar(&cfg.Timezone, "timezone", cfg.Timezone, "The IANA zone sessions are scheduled in")
	fs.StringVar(&cfg.SessionWeekday, "session-weekday", cfg.SessionWeekday, "The weekday successor sessions fall on")
	fs.DurationVar(&cfg.SweepInterval, "sweep-interval", cfg.SweepInterval, "In-process sweep interval (0 disables it)")
	fs.StringVar(&cfg.SheetID, "sheet-id", cfg.SheetID, "The lateness spreadsheet id")
	fs.StringVar(&cfg.SheetName, "sheet-name", cfg.SheetName, "The lateness sheet tab")
	fs.BoolVar(&cfg.SecureCookies, "secure-cookies", cfg.SecureCookies, "Mark the admin cookie Secure")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// RuntimeConfig maps the command config onto the runtime.
func (c Config) RuntimeConfig() attendanceapp.RuntimeConfig {
	healthAddr := ""
	if c.HealthPort > 0 {
		healthAddr = fmt.Sprintf(":%d", c.HealthPort)
	}
	return attendanceapp.RuntimeConfig{
		HTTPAddr:        c.HTTPAddr,
		HealthAddr:      healthAddr,
		DBPath:          c.DBPath,
		AdminToken:      c.AdminToken,
		TokenSigningKey: c.TokenSigningKey,
		Timezone:        c.Timezone,
		SessionWeekday:  c.SessionWeekday,
		SweepInterval:   c.SweepInterval,
		CleanToken:      c.CleanToken,
		GoogleCreds:     c.GoogleCreds,
		SheetID:         c.SheetID,
		SheetName:       c.SheetName,
		SecureCookies:   c.SecureCookies,
		LoginRate:       c.LoginRate,
		LoginBurst:      c.LoginBurst,
	}
}

// Run starts the attendance server.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceAttendance, func(ctx context.Context) error {
		return attendanceapp.Run(ctx, cfg.RuntimeConfig())
	}, otel.ScheduleAttributes(cfg.Timezone, cfg.SessionWeekday)...)
}
