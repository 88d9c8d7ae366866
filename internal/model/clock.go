package model

import "time"

// Clock abstracts wall time so expiry checks and the janitor are
// deterministic under test.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the wall clock used outside of tests.
var SystemClock Clock = systemClock{}
