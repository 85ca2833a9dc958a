package scheduler

import "time"

type scheduleParser interface {
	NextAfter(spec, tz string, after time.Time) (time.Time, error)
	Validate(spec string) error
}
