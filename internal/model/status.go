package model

// Status is the closed set of verification states a claim can be in.
// Only the aggregator produces a Status; other components copy it.
type Status string

const (
	StatusUnverified           Status = "unverified"
	StatusInProgress           Status = "verification_in_progress"
	StatusVerified             Status = "verified"
	StatusPartiallyVerified    Status = "partially_verified"
	StatusContradictory        Status = "contradictory"
	StatusAbsenceOfInformation Status = "absence_of_information"
	StatusUncertain            Status = "uncertain"
	StatusInconclusive         Status = "inconclusive"
)

// AllStatuses lists every status in declaration order
var AllStatuses = []Status{
	StatusUnverified,
	StatusInProgress,
	StatusVerified,
	StatusPartiallyVerified,
	StatusContradictory,
	StatusAbsenceOfInformation,
	StatusUncertain,
	StatusInconclusive,
}

// Valid reports whether s is one of the known statuses
func (s Status) Valid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// IsPositive reports whether the status marks the owning thought as verified.
// An authoritative absence of information counts as a positive outcome.
func (s Status) IsPositive() bool {
	switch s {
	case StatusVerified, StatusPartiallyVerified, StatusAbsenceOfInformation:
		return true
	default:
		return false
	}
}

// IsReusable reports whether a stored verification with this status may be
// trusted for new, similar content
func (s Status) IsReusable() bool {
	return s == StatusVerified || s == StatusPartiallyVerified
}

// ParseStatus converts a string into a Status, falling back to unverified
func ParseStatus(raw string) Status {
	s := Status(raw)
	if s.Valid() {
		return s
	}
	return StatusUnverified
}
