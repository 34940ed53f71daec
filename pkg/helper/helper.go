package helper

import (
	"fmt"
	"math"
)

// method to convert from seconds to minutes:seconds.milliseconds
func SecondsToMinutes(seconds float64) string {
	if seconds <= 0 {
		return "-"
	}
	total := int64(math.Round(seconds * 1000))
	return fmt.Sprintf("%02d:%02d.%03d", total/60000, (total%60000)/1000, total%1000)
}

// Optional formats a channel that may be missing from a sample.
func Optional(v *float64, format string) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf(format, *v)
}

func OptionalInt(v *int) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprint(*v)
}

func Percent(ratio float64) string {
	return fmt.Sprintf("%.1f%%", ratio*100)
}
