package phone

import "strings"

// Normalization targets US mobile numbers the way the SMS gateway reports
// them: eleven digits with a leading country code 1.

// Normalize strips every non-digit rune and prefixes the country code when a
// bare ten-digit number was given. The result is not guaranteed to be valid;
// callers pair this with Valid.
func Normalize(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) == 10 {
		return "1" + digits
	}
	return digits
}

// Valid reports whether s is a normalized US number: 1 + NXX-XXX-XXXX where
// the area code cannot start with 0 or 1.
func Valid(s string) bool {
	if len(s) != 11 || s[0] != '1' {
		return false
	}
	if s[1] < '2' || s[1] > '9' {
		return false
	}
	for i := 1; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// IsPhoneNumber reports whether free text normalizes to a valid number.
func IsPhoneNumber(text string) bool {
	return Valid(Normalize(text))
}

var yesWords = map[string]bool{
	"y":    true,
	"ya":   true,
	"yah":  true,
	"yea":  true,
	"yeah": true,
	"yes":  true,
	"yup":  true,
	"sure": true,
	"ok":   true,
	"okay": true,
}

// IsAffirmative reports whether the first word of a response reads as a yes.
func IsAffirmative(text string) bool {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(text)))
	if len(fields) == 0 {
		return false
	}
	return yesWords[strings.Trim(fields[0], ".,!?")]
}
