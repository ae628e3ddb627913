package param

import (
	"fmt"
	"strconv"
	"strings"
)

// DecibelFormatter formats dB values
func DecibelFormatter(db float64) string {
	if db <= -60 {
		return "-inf dB"
	}
	return fmt.Sprintf("%.1f dB", db)
}

// DecibelParser parses dB strings
func DecibelParser(str string) (float64, error) {
	str = strings.ToLower(strings.TrimSpace(str))
	if strings.Contains(str, "inf") {
		return -96.0, nil
	}
	str = strings.TrimSpace(strings.TrimSuffix(str, "db"))
	return strconv.ParseFloat(str, 64)
}

// PercentFormatter formats percentage values
func PercentFormatter(value float64) string {
	return fmt.Sprintf("%.0f%%", value)
}

// PercentParser parses percentage strings
func PercentParser(str string) (float64, error) {
	str = strings.TrimSuffix(strings.TrimSpace(str), "%")
	return strconv.ParseFloat(strings.TrimSpace(str), 64)
}

// TimeFormatter formats millisecond values with a unit that fits.
func TimeFormatter(ms float64) string {
	switch {
	case ms < 1:
		return fmt.Sprintf("%.0f us", ms*1000)
	case ms < 1000:
		return fmt.Sprintf("%.1f ms", ms)
	}
	return fmt.Sprintf("%.2f s", ms/1000)
}

// TimeParser parses "12 ms", "1.5 s" or "250 us" into milliseconds.
func TimeParser(str string) (float64, error) {
	str = strings.TrimSpace(str)
	scale := 1.0
	switch {
	case strings.HasSuffix(str, "us"):
		str, scale = strings.TrimSuffix(str, "us"), 0.001
	case strings.HasSuffix(str, "ms"):
		str = strings.TrimSuffix(str, "ms")
	case strings.HasSuffix(str, "s"):
		str, scale = strings.TrimSuffix(str, "s"), 1000
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(str), 64)
	if err != nil {
		return 0, err
	}
	return v * scale, nil
}
