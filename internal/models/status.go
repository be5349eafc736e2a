package models

// Status represents a classified water-level band
type Status string

const (
	StatusNormal   Status = "NORMAL"
	StatusLow      Status = "LOW"
	StatusHigh     Status = "HIGH"
	StatusCritical Status = "CRITICAL"
)

// Band edges in inches. Bands are contiguous and closed on the upper end:
// NORMAL <= 8 < LOW <= 13 < HIGH <= 18 < CRITICAL.
const (
	NormalMaxLevel = 8.0
	LowMaxLevel    = 13.0
	HighMaxLevel   = 18.0
)

// Classify maps a numeric water level to its status band. The mapping is
// pure and total: every value, including negative or extreme ones, lands in
// exactly one band.
func Classify(level float64) Status {
	switch {
	case level <= NormalMaxLevel:
		return StatusNormal
	case level <= LowMaxLevel:
		return StatusLow
	case level <= HighMaxLevel:
		return StatusHigh
	default:
		return StatusCritical
	}
}

// Notifiable reports whether the status may trigger an alert cycle.
// Only HIGH and CRITICAL dispatch notifications; NORMAL and LOW are
// recorded but never alerted on.
func (s Status) Notifiable() bool {
	return s == StatusHigh || s == StatusCritical
}

// IsValid checks if the status is a known band
func (s Status) IsValid() bool {
	switch s {
	case StatusNormal, StatusLow, StatusHigh, StatusCritical:
		return true
	default:
		return false
	}
}
