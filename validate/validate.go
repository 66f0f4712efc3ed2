// Package validate holds the client-side input checks that run before any
// network submission: field format validation surfaced inline to the user,
// and injection heuristics that silently block the request and raise a
// security audit event instead.
package validate

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

var (
	otpRegex      = regexp.MustCompile(`^\d{6}$`)
	usernameRegex = regexp.MustCompile(`^[a-zA-Z_.-]+$`)
	phoneRegex    = regexp.MustCompile(`^[0-9]{10}$`)
	emailDomain   = regexp.MustCompile(`@aps\.dz$`)

	sqlInjectionPattern = regexp.MustCompile(`(?i)(\b(SELECT|INSERT|UPDATE|DELETE|DROP|CREATE|ALTER|EXEC|UNION|FETCH|DECLARE|TRUNCATE)\b)|(--|;|/\*|\*/)`)
	scriptTagPattern    = regexp.MustCompile(`(?i)<\s*/?\s*[a-z][^>]*>`)
)

// InjectionType classifies what the heuristics matched.
type InjectionType string

const (
	InjectionNone   InjectionType = ""
	InjectionSQL    InjectionType = "sql"
	InjectionMarkup InjectionType = "markup"
)

// CheckInjection runs the XSS/SQL-metacharacter heuristics over free-text
// input. Control characters are treated the same as markup: they have no
// place in a credential field.
func CheckInjection(input string) InjectionType {
	if sqlInjectionPattern.MatchString(input) {
		return InjectionSQL
	}
	if scriptTagPattern.MatchString(input) {
		return InjectionMarkup
	}
	for _, r := range input {
		if unicode.IsControl(r) && r != '\t' {
			return InjectionMarkup
		}
	}
	return InjectionNone
}

// OTPCode reports whether code is exactly six digits. Anything else stays on
// the OTP form with an inline error and never reaches the network.
func OTPCode(code string) bool {
	return otpRegex.MatchString(code)
}

// Username allows letters, underscore, hyphen and period only.
func Username(username string) bool {
	return usernameRegex.MatchString(username)
}

// Email accepts only addresses on the agency domain.
func Email(email string) bool {
	return emailDomain.MatchString(email)
}

// PhoneNumber accepts exactly ten digits.
func PhoneNumber(phone string) bool {
	return phoneRegex.MatchString(phone)
}

// Password validates the password policy: length 8-16, at least one letter,
// one symbol and one digit, and the username must not appear as a substring.
func Password(password, username string) error {
	if len(password) < 8 || len(password) > 16 {
		return fmt.Errorf("password must be between 8 and 16 characters")
	}

	var hasLetter, hasSymbol, hasNumber bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasNumber = true
		case strings.ContainsRune(`!@#$%^&*()_+-=[]{};':"\|,.<>/?`, r):
			hasSymbol = true
		}
	}

	if !hasLetter {
		return fmt.Errorf("password must contain at least one letter")
	}
	if !hasSymbol {
		return fmt.Errorf("password must contain at least one symbol")
	}
	if !hasNumber {
		return fmt.Errorf("password must contain at least one number")
	}
	if username != "" && strings.Contains(password, username) {
		return fmt.Errorf("password must not contain the username")
	}
	return nil
}

// MaskEmail hides the local part of an address, keeping the first two
// characters and the domain: "john.doe@aps.dz" -> "jo******@aps.dz".
func MaskEmail(email string) string {
	at := strings.Index(email, "@")
	if at < 0 {
		return email
	}
	local, domain := email[:at], email[at:]
	visible := 2
	if len(local) < visible {
		visible = len(local)
	}
	return local[:visible] + strings.Repeat("*", len(local)-visible) + domain
}
