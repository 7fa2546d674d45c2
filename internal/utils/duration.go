package utils

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var durationRegex = regexp.MustCompile(`^(\d+)([smhdwSMHDW])$`)

var durationUnits = map[string]time.Duration{
	"s": time.Second,
	"m": time.Minute,
	"h": time.Hour,
	"d": 24 * time.Hour,
	"w": 7 * 24 * time.Hour,
}

// ParseDuration accepts exactly one "<integer><unit>" token, unit in s, m, h, d, w.
// ok is false for anything else, including values that overflow time.Duration.
func ParseDuration(input string) (time.Duration, bool) {
	match := durationRegex.FindStringSubmatch(input)
	if match == nil {
		return 0, false
	}
	value, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil {
		return 0, false
	}
	unit := durationUnits[strings.ToLower(match[2])]
	if value > int64(1<<63-1)/int64(unit) {
		return 0, false
	}
	return time.Duration(value) * unit, true
}

// FormatDuration renders only the largest whole unit, so 90 minutes is "1 heure".
func FormatDuration(d time.Duration) string {
	seconds := int64(d / time.Second)
	minutes := seconds / 60
	hours := minutes / 60
	days := hours / 24

	switch {
	case days > 0:
		return plural(days, "jour")
	case hours > 0:
		return plural(hours, "heure")
	case minutes > 0:
		return plural(minutes, "minute")
	default:
		return plural(seconds, "seconde")
	}
}

func plural(value int64, unit string) string {
	if value > 1 {
		return fmt.Sprintf("%d %ss", value, unit)
	}
	return fmt.Sprintf("%d %s", value, unit)
}

// DiscordTimestamp formats t as a Discord rich timestamp, style "F" or "R".
func DiscordTimestamp(t time.Time, style string) string {
	return fmt.Sprintf("<t:%d:%s>", t.Unix(), style)
}
