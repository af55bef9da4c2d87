// Package phone normalizes Brazilian phone numbers into WhatsApp candidate
// identifiers. Mobile subscriber numbers migrated from 8 to 9 digits by
// prefixing a 9, so a scraped number can correspond to either form; the
// generator emits every plausible identifier and the base number collapses
// both forms for duplicate detection.
package phone

import "strings"

const (
	countryCode = "55"
	dddLen      = 2
	minNational = 10
	maxNational = 11
)

// Candidates derives the ordered set of normalized candidate identifiers
// for a raw phone string. It returns nil when the number cannot satisfy the
// national length constraints. The output is deterministic and free of
// duplicates.
func Candidates(raw string) []string {
	national, ok := nationalNumber(raw)
	if !ok {
		return nil
	}

	ddd := national[:dddLen]
	subscriber := national[dddLen:]

	var possibilities []string
	switch {
	case len(subscriber) == 9 && subscriber[0] == '9':
		possibilities = append(possibilities,
			countryCode+ddd+subscriber,
			countryCode+ddd+subscriber[1:],
		)
	case len(subscriber) == 8:
		possibilities = append(possibilities,
			countryCode+ddd+subscriber,
			countryCode+ddd+"9"+subscriber,
		)
	default:
		possibilities = append(possibilities, countryCode+ddd+subscriber)
	}

	return dedupe(possibilities)
}

// BaseNumber returns the canonical collapsed form of a raw phone: the
// current 9-digit subscriber form when the number is subject to the 8/9
// migration ambiguity. Two raw strings with the same base number address
// the same subscriber.
func BaseNumber(raw string) (string, bool) {
	national, ok := nationalNumber(raw)
	if !ok {
		return "", false
	}

	ddd := national[:dddLen]
	subscriber := national[dddLen:]
	if len(subscriber) == 8 {
		subscriber = "9" + subscriber
	}

	return countryCode + ddd + subscriber, true
}

// nationalNumber strips formatting and the country prefix, returning the
// DDD+subscriber digits, or false if the length is outside the plan.
func nationalNumber(raw string) (string, bool) {
	digits := stripNonDigits(raw)
	if strings.HasPrefix(digits, countryCode) && len(digits) > maxNational {
		digits = digits[len(countryCode):]
	}
	if len(digits) < minNational || len(digits) > maxNational {
		return "", false
	}
	return digits, true
}

func stripNonDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := in[:0]
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
