package lateness

import "context"

// Reporter tracks cumulative late counts per member name.
type Reporter interface {
	// IncrementLateCount adds one to name's counter and returns the new value.
	// Unknown names start at 1.
	IncrementLateCount(ctx context.Context, name string) (int, error)
	// RecordFirstLate creates name's counter at 1 if it does not exist yet.
	RecordFirstLate(ctx context.Context, name string) error
}
