package incremental

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var overlapPattern = regexp.MustCompile(`^(\d+(?:\.\d+)?)(s|m|h|d)?$`)

// ParseOverlap parses an overlap duration such as "60s", "5m", "24h" or
// "3d". A bare number is seconds.
func ParseOverlap(s string) (time.Duration, error) {
	m := overlapPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, fmt.Errorf("invalid overlap duration %q", s)
	}
	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid overlap duration %q", s)
	}
	unit := time.Second
	switch m[2] {
	case "m":
		unit = time.Minute
	case "h":
		unit = time.Hour
	case "d":
		unit = 24 * time.Hour
	}
	return time.Duration(value * float64(unit)), nil
}
