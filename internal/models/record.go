package models

import "time"

// TimestampLayout is the on-disk format of last_updated (UTC), the same
// layout SQLite's CURRENT_TIMESTAMP produces.
const TimestampLayout = "2006-01-02 15:04:05"

// Status thresholds, in whole days since the last update.
const (
	RecommendedUpdateAfterDays = 90
	UrgentUpdateAfterDays      = 365
)

// Status is the freshness of a stored password. It is derived from
// last_updated at read time and never stored authoritatively.
type Status string

const (
	StatusActive            Status = "Active"
	StatusRecommendedUpdate Status = "RecommendedUpdate"
	StatusUrgentUpdate      Status = "UrgentUpdate"
	StatusUnknown           Status = "Unknown"
)

// Label returns the human-readable wording shown in listings.
func (s Status) Label() string {
	switch s {
	case StatusActive:
		return "Active"
	case StatusRecommendedUpdate:
		return "Recommended to Update"
	case StatusUrgentUpdate:
		return "Very Important to Update"
	default:
		return "Unknown"
	}
}

// Record is a stored credential. Password holds the ciphertext token.
type Record struct {
	ID          int64
	Site        string
	Password    string
	LastUpdated string
}

// RecordView is a decrypted (or not) record returned to callers.
//
// When Decrypted is false, Password is the raw ciphertext and Err explains
// why decryption failed; the rest of a listing is unaffected.
type RecordView struct {
	ID          int64
	Site        string
	Password    string
	LastUpdated string
	Status      Status
	Decrypted   bool
	Err         error
}

// FormatTimestamp renders t in the on-disk last_updated format.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp parses an on-disk last_updated value as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	return time.ParseInLocation(TimestampLayout, s, time.UTC)
}

// StatusAt derives the status of a record last updated at lastUpdated, as
// seen at now. Unparsable timestamps yield StatusUnknown.
func StatusAt(lastUpdated string, now time.Time) Status {
	t, err := ParseTimestamp(lastUpdated)
	if err != nil {
		return StatusUnknown
	}
	days := int(now.UTC().Sub(t) / (24 * time.Hour))
	switch {
	case days > UrgentUpdateAfterDays:
		return StatusUrgentUpdate
	case days > RecommendedUpdateAfterDays:
		return StatusRecommendedUpdate
	default:
		return StatusActive
	}
}
