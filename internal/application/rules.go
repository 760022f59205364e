package application

import (
	"math/rand/v2"
	"strconv"
	"strings"
	"unicode"

	"github.com/oksasatya/go-auth-core/internal/domain/apperr"
	"github.com/oksasatya/go-auth-core/pkg/validation"
)

const usernameSuffixRange = 10000

func hasSpace(s string) bool {
	return strings.IndexFunc(s, unicode.IsSpace) >= 0
}

// checkToken rejects whitespace-only values and values with interior whitespace.
func checkToken(field, v string) error {
	if strings.TrimSpace(v) == "" || hasSpace(v) {
		return apperr.Validation(field, "cannot contain spaces")
	}
	return nil
}

func checkEmail(v string) error {
	if !validation.IsEmail(v) {
		return apperr.Validation("email", "invalid email")
	}
	return nil
}

// checkPicture accepts an empty value or an absolute URL.
func checkPicture(v string) error {
	if v != "" && !validation.IsURL(v) {
		return apperr.Validation("profilePicture", "invalid url")
	}
	return nil
}

// checkNewAccount applies the signup rules in order: presence, username, password, email format.
func checkNewAccount(username, email, password string) error {
	switch {
	case username == "":
		return apperr.Validation("username", "is required")
	case email == "":
		return apperr.Validation("email", "is required")
	case password == "":
		return apperr.Validation("password", "is required")
	}
	if err := checkToken("username", username); err != nil {
		return err
	}
	if err := checkToken("password", password); err != nil {
		return err
	}
	return checkEmail(email)
}

// usernameBase lower-cases name (or the email local part when name is blank) and drops whitespace.
func usernameBase(name, email string) string {
	src := strings.TrimSpace(name)
	if src == "" {
		src, _, _ = strings.Cut(email, "@")
	}
	base := strings.ToLower(strings.Join(strings.Fields(src), ""))
	if base == "" {
		base = "user"
	}
	return base
}

func randomSuffix() int {
	return rand.IntN(usernameSuffixRange)
}

func deriveUsername(name, email string, suffix int) string {
	return usernameBase(name, email) + strconv.Itoa(suffix)
}
