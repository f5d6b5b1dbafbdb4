// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"regexp"
	"strings"
)

// ═══════════════════════════════════════════════════════════════════════════
// Value Objects
// ═══════════════════════════════════════════════════════════════════════════

// Email represents a user's email address.
type Email string

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// IsValid checks if the email has a plausible format.
func (e Email) IsValid() bool {
	return emailRegex.MatchString(string(e))
}

// Normalize returns a lowercase, trimmed version of the email.
func (e Email) Normalize() Email {
	return Email(strings.ToLower(strings.TrimSpace(string(e))))
}

// String returns the string representation.
func (e Email) String() string {
	return string(e)
}

// LanguageCode is a BCP 47-ish language tag ("en", "es", "pt-BR").
// The engine passes it through to the AI collaborators untouched; only a
// loose shape check is done here.
type LanguageCode string

var languageCodeRegex = regexp.MustCompile(`^[a-zA-Z]{2,3}(-[a-zA-Z0-9]{2,8})?$`)

// DefaultLanguage is assumed when a request carries no language hint.
const DefaultLanguage LanguageCode = "en"

// IsValid checks the language code shape.
func (l LanguageCode) IsValid() bool {
	return languageCodeRegex.MatchString(string(l))
}

// OrDefault returns the code itself, or DefaultLanguage when empty.
func (l LanguageCode) OrDefault() LanguageCode {
	if l == "" {
		return DefaultLanguage
	}
	return l
}

// String returns the string representation.
func (l LanguageCode) String() string {
	return string(l)
}

// Percentage represents a 0-100 progress value.
type Percentage int

// IsValid checks the percentage range.
func (p Percentage) IsValid() bool {
	return p >= 0 && p <= 100
}

// Clamp bounds the percentage to [0, 100].
func (p Percentage) Clamp() Percentage {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// Int returns the underlying int value.
func (p Percentage) Int() int {
	return int(p)
}
