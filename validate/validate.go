// Package validate holds the stateless field validators and the input
// sanitizer feeding the authentication core. Every function returns a list of
// field errors instead of failing on the first problem, so the caller can
// report all of them at once. Sanitization here is defense in depth, not a
// substitute for output encoding.
package validate

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// FieldError describes one validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	return e.Message
}

// Errors aggregates field errors; an empty list means the input passed.
type Errors []FieldError

func (e Errors) Error() string {
	if len(e) == 0 {
		return "validation passed"
	}
	msgs := make([]string, len(e))
	for i, fe := range e {
		msgs[i] = fe.Field + ": " + fe.Message
	}
	return strings.Join(msgs, "; ")
}

const (
	maxEmailLength    = 254
	minPasswordLength = 8
	maxPasswordLength = 128
	minUsernameLength = 3
	maxUsernameLength = 50
)

var (
	emailPattern    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
)

// injectionPatterns are lowercase substrings that mark an input as carrying a
// script or markup payload.
var injectionPatterns = []string{
	"<script",
	"</script>",
	"javascript:",
	"vbscript:",
	"onload=",
	"onerror=",
	"onclick=",
	"onmouseover=",
	"eval(",
	"expression(",
	"alert(",
	"confirm(",
	"prompt(",
	"document.cookie",
	"document.write",
	"window.location",
	"<iframe",
	"<object",
	"<embed",
	"<link",
	"<meta",
	"<style",
	"url(",
	"@import",
}

var weakPasswordPatterns = []string{
	"123456",
	"password",
	"qwerty",
	"abc123",
	"admin",
	"letmein",
	"welcome",
	"monkey",
	"dragon",
	"master",
}

var reservedUsernames = []string{
	"admin", "administrator", "root", "system", "user", "guest",
	"test", "demo", "api", "www", "mail", "ftp", "support",
	"info", "help", "contact", "sales", "marketing", "security",
	"null", "undefined", "anonymous", "public", "private",
}

func containsInjection(lower string) bool {
	for _, pattern := range injectionPatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}

// Email checks format, length, and the injection blacklist.
func Email(email string) Errors {
	var errs Errors

	if email == "" {
		return Errors{{Field: "email", Message: "Email is required"}}
	}

	email = strings.TrimSpace(email)

	if len(email) > maxEmailLength {
		errs = append(errs, FieldError{Field: "email", Message: "Email is too long (maximum 254 characters)"})
	}
	if !emailPattern.MatchString(email) {
		errs = append(errs, FieldError{Field: "email", Message: "Invalid email format"})
	}
	if containsInjection(strings.ToLower(email)) {
		errs = append(errs, FieldError{Field: "email", Message: "Email contains invalid characters"})
	}

	return errs
}

// Password checks length, character-class coverage, the weak-substring list,
// and runs of identical characters. Three or more identical consecutive
// characters are rejected.
func Password(password string) Errors {
	var errs Errors

	if password == "" {
		return Errors{{Field: "password", Message: "Password is required"}}
	}

	if len(password) < minPasswordLength {
		errs = append(errs, FieldError{Field: "password", Message: "Password must be at least 8 characters long"})
	}
	if len(password) > maxPasswordLength {
		errs = append(errs, FieldError{Field: "password", Message: "Password is too long (maximum 128 characters)"})
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	const specialChars = "!@#$%^&*()_+-=[]{}|;:,.<>?"
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case strings.ContainsRune(specialChars, r):
			hasSpecial = true
		}
	}

	if !hasUpper {
		errs = append(errs, FieldError{Field: "password", Message: "Password must contain at least one uppercase letter"})
	}
	if !hasLower {
		errs = append(errs, FieldError{Field: "password", Message: "Password must contain at least one lowercase letter"})
	}
	if !hasDigit {
		errs = append(errs, FieldError{Field: "password", Message: "Password must contain at least one digit"})
	}
	if !hasSpecial {
		errs = append(errs, FieldError{Field: "password", Message: "Password must contain at least one special character (!@#$%^&*()_+-=[]{}|;:,.<>?)"})
	}

	lower := strings.ToLower(password)
	for _, pattern := range weakPasswordPatterns {
		if strings.Contains(lower, pattern) {
			errs = append(errs, FieldError{Field: "password", Message: "Password contains common weak patterns"})
			break
		}
	}

	run := 1
	var prev rune
	for i, r := range password {
		if i > 0 && r == prev {
			run++
			if run >= 3 {
				errs = append(errs, FieldError{Field: "password", Message: "Password cannot contain 3 or more consecutive identical characters"})
				break
			}
		} else {
			run = 1
		}
		prev = r
	}

	return errs
}

// Username checks length, the allowed character set, the reserved-word list,
// and the injection blacklist.
func Username(username string) Errors {
	var errs Errors

	if username == "" {
		return Errors{{Field: "username", Message: "Username is required"}}
	}

	username = strings.TrimSpace(username)

	if len(username) < minUsernameLength {
		errs = append(errs, FieldError{Field: "username", Message: "Username must be at least 3 characters long"})
	}
	if len(username) > maxUsernameLength {
		errs = append(errs, FieldError{Field: "username", Message: "Username is too long (maximum 50 characters)"})
	}
	if !usernamePattern.MatchString(username) {
		errs = append(errs, FieldError{Field: "username", Message: "Username can only contain letters, numbers, underscores, and hyphens"})
	}

	lower := strings.ToLower(username)
	for _, reserved := range reservedUsernames {
		if lower == reserved {
			errs = append(errs, FieldError{Field: "username", Message: "This username is reserved and cannot be used"})
			break
		}
	}
	if containsInjection(lower) {
		errs = append(errs, FieldError{Field: "username", Message: "Username contains invalid characters"})
	}

	return errs
}

// Text validates generic bounded text with the injection blacklist. A zero
// minLength makes the field optional.
func Text(field, text string, minLength, maxLength int) Errors {
	var errs Errors

	if text == "" && minLength > 0 {
		return Errors{{Field: field, Message: field + " is required"}}
	}

	text = strings.TrimSpace(text)

	if len(text) < minLength {
		errs = append(errs, FieldError{Field: field, Message: fmt.Sprintf("%s must be at least %d characters long", field, minLength)})
	}
	if len(text) > maxLength {
		errs = append(errs, FieldError{Field: field, Message: fmt.Sprintf("%s is too long (maximum %d characters)", field, maxLength)})
	}
	if containsInjection(strings.ToLower(text)) {
		errs = append(errs, FieldError{Field: field, Message: field + " contains potentially unsafe content"})
	}

	return errs
}

// Sanitize strips null bytes and non-printable control characters, keeping
// newline and tab, and trims surrounding whitespace.
func Sanitize(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")
	input = strings.TrimSpace(input)

	result := make([]rune, 0, len(input))
	for _, r := range input {
		if r >= 32 || r == '\n' || r == '\t' {
			result = append(result, r)
		}
	}

	return string(result)
}
