package crawlfront

import (
	"errors"
	"reflect"
)

// UnknownErrorKind is reported when a failure cannot be classified.
const UnknownErrorKind = "?"

// ClassifyError returns a symbolic name for a transport failure. Errors that
// implement Kind() string name themselves; otherwise the type name of the
// innermost wrapped error is used.
func ClassifyError(err error) (kind string) {
	if err == nil {
		return UnknownErrorKind
	}
	defer func() {
		if recover() != nil {
			kind = UnknownErrorKind
		}
	}()

	var k interface{ Kind() string }
	if errors.As(err, &k) && k.Kind() != "" {
		return k.Kind()
	}

	inner := err
	for {
		next := errors.Unwrap(inner)
		if next == nil {
			break
		}
		inner = next
	}
	t := reflect.TypeOf(inner)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() == "" {
		return UnknownErrorKind
	}
	return t.Name()
}
