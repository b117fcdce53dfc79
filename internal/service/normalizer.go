package service

import (
	"regexp"
	"strings"
)

var (
	whitespaceRegex = regexp.MustCompile(`\s+`)
	nonDigitRegex   = regexp.MustCompile(`\D+`)
)

// sanitizeString collapses whitespace and trims the result.
func sanitizeString(value string) string {
	value = whitespaceRegex.ReplaceAllString(value, " ")
	return strings.TrimSpace(value)
}

// maskEmail keeps the first rune of the local part and the domain.
func maskEmail(email string) string {
	email = strings.TrimSpace(strings.ToLower(email))
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return "***"
	}
	local := []rune(email[:at])
	return string(local[0]) + "***" + email[at:]
}

// maskNationalID keeps the two check digits of a CPF.
func maskNationalID(id string) string {
	digits := nonDigitRegex.ReplaceAllString(id, "")
	if len(digits) < 2 {
		return "***"
	}
	return "***-" + digits[len(digits)-2:]
}
