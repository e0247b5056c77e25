// Package validation holds the input rules shared by the registration and
// verification flows.
package validation

import (
	"errors"
	"regexp"
)

const MinPasswordLength = 4

var ErrWeakPassword = errors.New("password must be at least 4 characters")

// The local part accepts the RFC 5322 atext set plus dots. The domain needs at
// least two labels and may not end with a dot or hyphen.
var emailPattern = regexp.MustCompile("^[a-zA-Z0-9.!#$%&'*+/=?^_`{|}~-]+@[a-zA-Z0-9]([a-zA-Z0-9-]*[a-zA-Z0-9])?(\\.[a-zA-Z0-9]([a-zA-Z0-9-]*[a-zA-Z0-9])?)+$")

func IsValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

func ValidatePassword(p string) error {
	if len(p) < MinPasswordLength {
		return ErrWeakPassword
	}
	return nil
}
