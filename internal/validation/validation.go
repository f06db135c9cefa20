package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrPlateCodeEmpty is returned when the plate code is empty after trim.
var ErrPlateCodeEmpty = errors.New("plate code is required")

// ErrBadDate is returned when a date is not a valid YYYY-MM-DD string.
var ErrBadDate = errors.New("date must be YYYY-MM-DD")

// ErrBadClock is returned when a time of day is not a valid HH:MM string.
var ErrBadClock = errors.New("time must be HH:MM")

const dateLayout = "2006-01-02"

var (
	dateRe  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	clockRe = regexp.MustCompile(`^\d{1,2}:\d{2}$`)
)

// NormalizePlateCode trims the input and zero-pads a single-character code to
// the canonical two-character form. Whether the code exists is the directory's
// concern, not validation's.
func NormalizePlateCode(raw string) (string, error) {
	code := strings.TrimSpace(raw)
	if code == "" {
		return "", ErrPlateCodeEmpty
	}
	if len(code) == 1 {
		code = "0" + code
	}
	return code, nil
}

// ParseDate parses a YYYY-MM-DD date string.
func ParseDate(s string) (time.Time, error) {
	if !dateRe.MatchString(s) {
		return time.Time{}, fmt.Errorf("%w: %q", ErrBadDate, s)
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrBadDate, s)
	}
	return t, nil
}

// ParseClock parses an HH:MM string and enforces hour [0,23] and minute
// [0,59] bounds.
func ParseClock(s string) (hour, minute int, err error) {
	if !clockRe.MatchString(s) {
		return 0, 0, fmt.Errorf("%w: %q", ErrBadClock, s)
	}
	hourStr, minuteStr, _ := strings.Cut(s, ":")
	hour, err = strconv.Atoi(hourStr)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrBadClock, s)
	}
	minute, err = strconv.Atoi(minuteStr)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrBadClock, s)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: %q", ErrBadClock, s)
	}
	return hour, minute, nil
}
