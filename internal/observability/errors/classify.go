// Package errors derives low-cardinality error classes for metric tags and log fields.
package errors

import (
	goerrors "errors"
	"reflect"
	"strings"

	domainauth "github.com/civicdesk/civicdesk/internal/domain/auth"
	apperrors "github.com/civicdesk/civicdesk/internal/errors"
)

// Classify returns a short class name for err: the auth taxonomy kind when present,
// then the application error code, then the innermost concrete type in snake case.
func Classify(err error) string {
	if err == nil {
		return ""
	}
	if kind := domainauth.KindOf(err); kind != "" {
		return string(kind)
	}
	if code := apperrors.GetCode(err); code != "" {
		return string(code)
	}

	for {
		unwrapped := goerrors.Unwrap(err)
		if unwrapped == nil {
			break
		}
		err = unwrapped
	}

	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "unknown"
	}
	name := strings.ToLower(strings.ReplaceAll(t.String(), ".", "_"))
	if name == "" {
		return "unknown"
	}
	return name
}
