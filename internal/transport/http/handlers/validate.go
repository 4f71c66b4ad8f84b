package handlers

import (
	"net/mail"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/pribylovaa/bearfit-auth/internal/transport/http/apierrors"
)

const (
	maxEmailLen    = 320
	maxNameLen     = 150
	minPasswordLen = 8
	maxPasswordLen = 100
)

var usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,20}$`)

func validateEmail(email string) error {
	if email == "" {
		return apierrors.Invalid("email is required")
	}

	if len(email) > maxEmailLen {
		return apierrors.Invalid("Email too long")
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return apierrors.Invalid("Invalid email format")
	}

	return nil
}

func validateUsername(username string) error {
	if !usernameRe.MatchString(username) {
		return apierrors.Invalid("Username must be 3-20 characters and contain only letters, numbers, underscores, or hyphens")
	}

	return nil
}

func validatePassword(pw string) error {
	n := utf8.RuneCountInString(pw)
	if n < minPasswordLen {
		return apierrors.Invalid("Password must be at least 8 characters")
	}

	if n > maxPasswordLen {
		return apierrors.Invalid("Password too long")
	}

	var lower, upper, digit bool
	for _, r := range pw {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		}
	}

	if !lower || !upper || !digit {
		return apierrors.Invalid("Password must contain at least one uppercase letter, one lowercase letter, and one number")
	}

	return nil
}

func validateName(name string) error {
	if utf8.RuneCountInString(name) > maxNameLen {
		return apierrors.Invalid("Name too long")
	}

	return nil
}

// validateGoogle проверяет общие поля запросов входа через Google.
func validateGoogle(in *googleRequest) error {
	in.IDToken = strings.TrimSpace(in.IDToken)
	in.Email = strings.TrimSpace(in.Email)
	in.Username = strings.TrimSpace(in.Username)

	if in.IDToken == "" && in.Email != "" {
		if err := validateEmail(in.Email); err != nil {
			return err
		}
	}

	if in.Username != "" {
		if err := validateUsername(in.Username); err != nil {
			return err
		}
	}

	return validateName(in.Name)
}
