package governance

import "time"

// SuggestionDebounce is how long a search term must stay unchanged before
// suggestions are fetched for it.
const SuggestionDebounce = 500 * time.Millisecond

type Timer interface {
	Stop() bool
}

// Scheduler runs f once after d. Stop on the returned timer reports whether
// it prevented the call.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type clockScheduler struct{}

func (clockScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// ClockScheduler schedules on the wall clock.
var ClockScheduler Scheduler = clockScheduler{}
