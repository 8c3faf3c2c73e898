// Package confidence maps a scan's confirmed-account count to an ordinal level.
package confidence

import "fmt"

type Level int

const (
	None Level = iota
	Low
	Medium
	High
	VeryHigh
)

// FromCount returns the level for the total number of confirmed accounts
// across every variant of a scan.
func FromCount(n int) Level {
	switch {
	case n >= 5:
		return VeryHigh
	case n >= 3:
		return High
	case n >= 2:
		return Medium
	case n == 1:
		return Low
	default:
		return None
	}
}

func (l Level) String() string {
	switch l {
	case None:
		return "None"
	case Low:
		return "Low"
	case Medium:
		return "Medium"
	case High:
		return "High"
	case VeryHigh:
		return "Very High"
	default:
		return fmt.Sprintf("Level(%d)", int(l))
	}
}

// MarshalText renders the level with its display name.
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}
