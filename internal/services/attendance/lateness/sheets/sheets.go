// Package sheets reports late members to a Google spreadsheet.
//
// The sheet keeps one row per member: column A holds the display name and
// column B the late counter. Row 1 is a header and is never matched.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"

	"github.com/ignitehq/attendance/internal/platform/timeouts"
	"github.com/ignitehq/attendance/internal/services/attendance/domain"
)

const defaultSheetName = "Sheet1"

// Config configures the spreadsheet reporter.
type Config struct {
	// CredentialsJSON is a service-account key.
	CredentialsJSON []byte
	SpreadsheetID   string
	SheetName       string

	// Endpoint and HTTPClient override the Google API transport.
	Endpoint   string
	HTTPClient *http.Client

	CallTimeout     time.Duration
	MaxTries        uint
	InitialInterval time.Duration
}

// valuesAPI is the slice of the Sheets values resource the reporter needs.
type valuesAPI interface {
	Get(ctx context.Context, spreadsheetID, readRange string) (*gsheets.ValueRange, error)
	Update(ctx context.Context, spreadsheetID, writeRange string, values *gsheets.ValueRange) error
	Append(ctx context.Context, spreadsheetID, appendRange string, values *gsheets.ValueRange) error
}

type serviceValues struct {
	values *gsheets.SpreadsheetsValuesService
}

func (s serviceValues) Get(ctx context.Context, spreadsheetID, readRange string) (*gsheets.ValueRange, error) {
	return s.values.Get(spreadsheetID, readRange).Context(ctx).Do()
}

func (s serviceValues) Update(ctx context.Context, spreadsheetID, writeRange string, values *gsheets.ValueRange) error {
	_, err := s.values.Update(spreadsheetID, writeRange, values).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	return err
}

func (s serviceValues) Append(ctx context.Context, spreadsheetID, appendRange string, values *gsheets.ValueRange) error {
	_, err := s.values.Append(spreadsheetID, appendRange, values).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	return err
}

// Reporter increments late counters in a spreadsheet.
type Reporter struct {
	api             valuesAPI
	spreadsheetID   string
	sheetName       string
	callTimeout     time.Duration
	maxTries        uint
	initialInterval time.Duration
}

// New builds a reporter backed by the Sheets API.
func New(ctx context.Context, cfg Config) (*Reporter, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, fmt.Errorf("spreadsheet id is required")
	}

	opts := []option.ClientOption{option.WithScopes(gsheets.SpreadsheetsScope)}
	switch {
	case cfg.HTTPClient != nil:
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	case len(cfg.CredentialsJSON) > 0:
		opts = append(opts, option.WithCredentialsJSON(cfg.CredentialsJSON))
	default:
		return nil, fmt.Errorf("spreadsheet credentials are required")
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}

	svc, err := gsheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return newReporter(serviceValues{values: svc.Spreadsheets.Values}, cfg), nil
}

func newReporter(api valuesAPI, cfg Config) *Reporter {
	r := &Reporter{
		api:             api,
		spreadsheetID:   cfg.SpreadsheetID,
		sheetName:       strings.TrimSpace(cfg.SheetName),
		callTimeout:     cfg.CallTimeout,
		maxTries:        cfg.MaxTries,
		initialInterval: cfg.InitialInterval,
	}
	if r.sheetName == "" {
		r.sheetName = defaultSheetName
	}
	if r.callTimeout <= 0 {
		r.callTimeout = timeouts.SheetsCall
	}
	if r.maxTries == 0 {
		r.maxTries = 4
	}
	if r.initialInterval <= 0 {
		r.initialInterval = 500 * time.Millisecond
	}
	return r
}

// IncrementLateCount bumps the counter in column B of name's row, appending a
// new row at 1 when the name is not listed.
func (r *Reporter) IncrementLateCount(ctx context.Context, name string) (int, error) {
	name = domain.NormalizeName(name)
	if name == "" {
		return 0, fmt.Errorf("member name is required")
	}

	row, count, found, err := r.findRow(ctx, name)
	if err != nil {
		return 0, err
	}
	if !found {
		if err := r.appendRow(ctx, name); err != nil {
			return 0, err
		}
		return 1, nil
	}

	next := count + 1
	cell := fmt.Sprintf("%s!B%d", r.quotedSheet(), row)
	_, err = retry(ctx, r, func(callCtx context.Context) (struct{}, error) {
		return struct{}{}, r.api.Update(callCtx, r.spreadsheetID, cell, &gsheets.ValueRange{
			Values: [][]interface{}{{next}},
		})
	})
	if err != nil {
		return 0, fmt.Errorf("update late count for %q: %w", name, err)
	}
	return next, nil
}

// RecordFirstLate appends name at 1 unless it already has a row.
func (r *Reporter) RecordFirstLate(ctx context.Context, name string) error {
	name = domain.NormalizeName(name)
	if name == "" {
		return fmt.Errorf("member name is required")
	}
	_, _, found, err := r.findRow(ctx, name)
	if err != nil {
		return err
	}
	if found {
		return nil
	}
	return r.appendRow(ctx, name)
}

// appendRow adds name at 1. Append is not idempotent, so every retry first
// rereads the sheet: a failed attempt may still have written the row.
func (r *Reporter) appendRow(ctx context.Context, name string) error {
	attempt := 0
	_, err := retry(ctx, r, func(callCtx context.Context) (struct{}, error) {
		attempt++
		if attempt > 1 {
			values, err := r.api.Get(callCtx, r.spreadsheetID, r.columns())
			if err != nil {
				return struct{}{}, err
			}
			if _, _, found, err := matchRow(values, name); err != nil || found {
				return struct{}{}, err
			}
		}
		return struct{}{}, r.api.Append(callCtx, r.spreadsheetID, r.columns(), &gsheets.ValueRange{
			Values: [][]interface{}{{name, 1}},
		})
	})
	if err != nil {
		return fmt.Errorf("append late row for %q: %w", name, err)
	}
	return nil
}

// findRow returns the 1-based sheet row holding name and its current count.
func (r *Reporter) findRow(ctx context.Context, name string) (int, int, bool, error) {
	values, err := retry(ctx, r, func(callCtx context.Context) (*gsheets.ValueRange, error) {
		return r.api.Get(callCtx, r.spreadsheetID, r.columns())
	})
	if err != nil {
		return 0, 0, false, fmt.Errorf("read late sheet: %w", err)
	}
	return matchRow(values, name)
}

// matchRow scans the sheet for name. Cells are normalized the same way as
// roster names, so a cell typed by hand still matches.
func matchRow(values *gsheets.ValueRange, name string) (int, int, bool, error) {
	if values == nil {
		return 0, 0, false, nil
	}

	var err error
	for i, row := range values.Values {
		if i == 0 || len(row) == 0 {
			continue
		}
		if domain.NormalizeName(fmt.Sprint(row[0])) != name {
			continue
		}
		count := 0
		if len(row) > 1 {
			count, err = parseCount(row[1])
			if err != nil {
				return 0, 0, false, fmt.Errorf("late count for %q at row %d: %w", name, i+1, err)
			}
		}
		return i + 1, count, true, nil
	}
	return 0, 0, false, nil
}

func (r *Reporter) quotedSheet() string {
	return "'" + strings.ReplaceAll(r.sheetName, "'", "''") + "'"
}

func (r *Reporter) columns() string {
	return r.quotedSheet() + "!A:B"
}

func parseCount(value interface{}) (int, error) {
	switch v := value.(type) {
	case float64:
		return int(v), nil
	case int:
		return v, nil
	}
	text := strings.TrimSpace(fmt.Sprint(value))
	if text == "" {
		return 0, nil
	}
	count, err := strconv.Atoi(text)
	if err != nil {
		return 0, fmt.Errorf("parse count %q: %w", text, err)
	}
	return count, nil
}

// retry runs op with a per-call timeout, retrying transient API failures with
// exponential backoff.
func retry[T any](ctx context.Context, r *Reporter, op func(context.Context) (T, error)) (T, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = r.initialInterval

	return backoff.Retry(ctx, func() (T, error) {
		callCtx, cancel := context.WithTimeout(ctx, r.callTimeout)
		defer cancel()

		result, err := op(callCtx)
		if err != nil && !transient(err) {
			return result, backoff.Permanent(err)
		}
		return result, err
	}, backoff.WithBackOff(policy), backoff.WithMaxTries(r.maxTries))
}

func transient(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
