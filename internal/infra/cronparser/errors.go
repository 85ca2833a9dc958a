package cronparser

import "errors"

// ErrEmptySpec is returned for a blank schedule.
var ErrEmptySpec = errors.New("empty cron spec")
