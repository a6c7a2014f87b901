// Package phone normalizes lead contact numbers.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultRegion is used for numbers written without a country prefix.
const DefaultRegion = "NL"

// NormalizeE164 formats a phone number to E.164. Unparseable or invalid
// input is returned trimmed so the caller never loses what was typed.
func NormalizeE164(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return trimmed
	}

	number, err := phonenumbers.Parse(trimmed, DefaultRegion)
	if err != nil || !phonenumbers.IsValidNumber(number) {
		return trimmed
	}

	return phonenumbers.Format(number, phonenumbers.E164)
}

// IsValid reports whether input parses as a valid number in DefaultRegion or with an explicit prefix.
func IsValid(input string) bool {
	number, err := phonenumbers.Parse(strings.TrimSpace(input), DefaultRegion)
	return err == nil && phonenumbers.IsValidNumber(number)
}
