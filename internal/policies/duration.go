package policies

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
)

const day = 24 * time.Hour

var durationUnits = map[string]time.Duration{
	"":        time.Second,
	"s":       time.Second,
	"sec":     time.Second,
	"secs":    time.Second,
	"second":  time.Second,
	"seconds": time.Second,
	"m":       time.Minute,
	"min":     time.Minute,
	"mins":    time.Minute,
	"minute":  time.Minute,
	"minutes": time.Minute,
	"h":       time.Hour,
	"hr":      time.Hour,
	"hrs":     time.Hour,
	"hour":    time.Hour,
	"hours":   time.Hour,
	"d":       day,
	"day":     day,
	"days":    day,
	"w":       7 * day,
	"wk":      7 * day,
	"wks":     7 * day,
	"week":    7 * day,
	"weeks":   7 * day,
	"mo":      30 * day,
	"mos":     30 * day,
	"month":   30 * day,
	"months":  30 * day,
	"y":       365 * day,
	"yr":      365 * day,
	"yrs":     365 * day,
	"year":    365 * day,
	"years":   365 * day,
}

var (
	humanDuration      = regexp.MustCompile(`^(\s*\d+(\.\d+)?\s*[a-z]*)+\s*$`)
	humanDurationToken = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*([a-z]*)`)
	durationSeparators = strings.NewReplacer(",", " ", " and ", " ")
)

// ParseHumanDuration parses Go durations ("36h") and human ones ("30 days",
// "2w", "1 year 2 months"). A bare number is seconds. Empty input is zero.
func ParseHumanDuration(value string) (time.Duration, error) {
	trimmed := strings.ToLower(strings.TrimSpace(value))
	if trimmed == "" {
		return 0, nil
	}
	if parsed, err := time.ParseDuration(trimmed); err == nil {
		return parsed, nil
	}
	normalized := durationSeparators.Replace(trimmed)
	if !humanDuration.MatchString(normalized) {
		return 0, invalidDuration(value)
	}
	var total time.Duration
	for _, match := range humanDurationToken.FindAllStringSubmatch(normalized, -1) {
		amount, err := strconv.ParseFloat(match[1], 64)
		if err != nil {
			return 0, invalidDuration(value)
		}
		unit, ok := durationUnits[match[2]]
		if !ok {
			return 0, invalidDuration(value)
		}
		term := amount * float64(unit)
		if term >= float64(math.MaxInt64) || time.Duration(term) > math.MaxInt64-total {
			return 0, invalidDuration(value)
		}
		total += time.Duration(term)
	}
	return total, nil
}

func invalidDuration(value string) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg("invalid duration " + strconv.Quote(value))
}
