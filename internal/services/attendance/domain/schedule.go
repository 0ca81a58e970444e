package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	apperrors "github.com/ignitehq/attendance/internal/platform/errors"
)

// DefaultZoneName is the civil zone sessions are scheduled in.
const DefaultZoneName = "Australia/Sydney"

// DefaultSessionTime is used when no default time has been configured.
var DefaultSessionTime = TimeOfDay{Hour: 16, Minute: 5}

// DateLayout is the civil date format accepted for explicit sessions.
const DateLayout = "2006-01-02"

// TimeOfDay is a wall-clock time without a date.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// String formats the time as zero-padded HH:MM.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Valid reports whether both fields are in range.
func (t TimeOfDay) Valid() bool {
	return t.Hour >= 0 && t.Hour <= 23 && t.Minute >= 0 && t.Minute <= 59
}

// ParseTimeOfDay parses "H:M" or "HH:MM".
func ParseTimeOfDay(value string) (TimeOfDay, error) {
	raw := strings.TrimSpace(value)
	hourPart, minutePart, ok := strings.Cut(raw, ":")
	if !ok || !isShortNumber(hourPart) || !isShortNumber(minutePart) {
		return TimeOfDay{}, invalidTime(value)
	}
	hour, err := strconv.Atoi(hourPart)
	if err != nil {
		return TimeOfDay{}, invalidTime(value)
	}
	minute, err := strconv.Atoi(minutePart)
	if err != nil {
		return TimeOfDay{}, invalidTime(value)
	}
	parsed := TimeOfDay{Hour: hour, Minute: minute}
	if !parsed.Valid() {
		return TimeOfDay{}, invalidTime(value)
	}
	return parsed, nil
}

func isShortNumber(value string) bool {
	if len(value) == 0 || len(value) > 2 {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func invalidTime(value string) error {
	return apperrors.WithMetadata(apperrors.CodeValidation,
		fmt.Sprintf("invalid time %q", value),
		map[string]string{"Reason": "invalid time format, expected HH:MM"},
	)
}

// LoadZone resolves a zone name, defaulting to DefaultZoneName.
func LoadZone(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultZoneName
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load zone %q: %w", name, err)
	}
	return loc, nil
}

// ParseWeekday parses an English weekday name such as "sunday" or "Sun".
func ParseWeekday(value string) (time.Weekday, error) {
	name := strings.ToLower(strings.TrimSpace(value))
	if name == "" {
		return time.Sunday, nil
	}
	for day := time.Sunday; day <= time.Saturday; day++ {
		full := strings.ToLower(day.String())
		if name == full || name == full[:3] {
			return day, nil
		}
	}
	return time.Sunday, fmt.Errorf("unknown weekday %q", value)
}

// ScheduleAt combines a civil date string and time in loc.
func ScheduleAt(date string, at TimeOfDay, loc *time.Location) (time.Time, error) {
	day, err := time.ParseInLocation(DateLayout, strings.TrimSpace(date), loc)
	if err != nil {
		return time.Time{}, apperrors.WithMetadata(apperrors.CodeValidation,
			fmt.Sprintf("invalid date %q", date),
			map[string]string{"Reason": "invalid date format, expected YYYY-MM-DD"},
		)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), at.Hour, at.Minute, 0, 0, loc), nil
}

// Retime keeps the civil date of instant in loc and replaces its time of day.
func Retime(instant time.Time, at TimeOfDay, loc *time.Location) time.Time {
	local := instant.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), at.Hour, at.Minute, 0, 0, loc)
}

// NextOccurrence returns the next target weekday strictly after today's date
// in loc, at the given time. When today is the target weekday the result is
// a week away.
func NextOccurrence(now time.Time, target time.Weekday, at TimeOfDay, loc *time.Location) time.Time {
	local := now.In(loc)
	daysAhead := (int(target) - int(local.Weekday()) + 7) % 7
	if daysAhead == 0 {
		daysAhead = 7
	}
	return time.Date(local.Year(), local.Month(), local.Day()+daysAhead, at.Hour, at.Minute, 0, 0, loc)
}
