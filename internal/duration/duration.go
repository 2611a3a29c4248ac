// Package duration parses the human-readable grace-period tokens accepted
// by --grace-period (e.g. "5m", "2h30m", "90s").
package duration

import (
	"fmt"
	"time"
)

// Parse converts a token of concatenated "<digits><unit>" groups (units h,
// m, s; case-insensitive; whitespace ignored between groups) into a
// time.Duration. It rejects the empty string, trailing digits with no
// unit, unrecognized characters, and a total of zero seconds.
func Parse(token string) (time.Duration, error) {
	var totalSecs int64
	var current int64
	haveDigits := false

	for _, r := range token {
		switch {
		case r == ' ' || r == '\t':
			continue
		case r >= '0' && r <= '9':
			current = current*10 + int64(r-'0')
			haveDigits = true
		case r == 'h' || r == 'H':
			if !haveDigits {
				return 0, fmt.Errorf("unit %q with no preceding digits", r)
			}
			totalSecs += current * 3600
			current = 0
			haveDigits = false
		case r == 'm' || r == 'M':
			if !haveDigits {
				return 0, fmt.Errorf("unit %q with no preceding digits", r)
			}
			totalSecs += current * 60
			current = 0
			haveDigits = false
		case r == 's' || r == 'S':
			if !haveDigits {
				return 0, fmt.Errorf("unit %q with no preceding digits", r)
			}
			totalSecs += current
			current = 0
			haveDigits = false
		default:
			return 0, fmt.Errorf("unexpected character %q in duration %q", r, token)
		}
	}

	if haveDigits {
		return 0, fmt.Errorf("trailing digits with no unit in duration %q", token)
	}
	if totalSecs == 0 {
		return 0, fmt.Errorf("duration %q is zero", token)
	}

	return time.Duration(totalSecs) * time.Second, nil
}

// MustParse is Parse but panics on error; useful for baking in defaults.
func MustParse(token string) time.Duration {
	d, err := Parse(token)
	if err != nil {
		panic(err)
	}
	return d
}
