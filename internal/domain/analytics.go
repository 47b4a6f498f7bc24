package domain

import "time"

// Outcome labels a finished generation attempt.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// GenerationEvent is recorded once per remote call. It never carries image data.
type GenerationEvent struct {
	Outcome   Outcome
	Duration  time.Duration
	Country   string
	CreatedAt time.Time
}

// DailyStats stores aggregated generation counters for a day.
type DailyStats struct {
	Day       time.Time
	Attempts  int
	Successes int
	Failures  int
}

// CountryCount is the number of attempts seen from one country.
type CountryCount struct {
	Country  string
	Attempts int
}
