package validation

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	engine     *validator.Validate
	engineOnce sync.Once
)

func validate() *validator.Validate {
	engineOnce.Do(func() { engine = validator.New() })
	return engine
}

// IsEmail reports whether s is a syntactically valid email address.
func IsEmail(s string) bool {
	return validate().Var(s, "required,email") == nil
}

// IsURL reports whether s is an absolute URL.
func IsURL(s string) bool {
	return validate().Var(s, "required,url") == nil
}

// ToDetails converts a JSON decoding error into a map[field]message for the error envelope.
func ToDetails(err error) map[string]string {
	if err == nil {
		return nil
	}

	var se *json.SyntaxError
	var ute *json.UnmarshalTypeError
	if errors.As(err, &se) {
		return map[string]string{"payload": "invalid json"}
	}
	if errors.As(err, &ute) {
		field := ute.Field
		if field == "" {
			field = "payload"
		}
		return map[string]string{field: "invalid type"}
	}
	return map[string]string{"payload": "invalid payload"}
}
