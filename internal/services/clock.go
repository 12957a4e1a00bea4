package services

import "time"

// Clock supplies the current time. Services take a Clock instead of calling
// time.Now directly so that window and ladder arithmetic is testable with a
// fixed instant.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock backed by time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
