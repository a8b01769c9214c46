// Package errutil provides a helper for combining errors.
package errutil

import "strings"

// Multi combines any number of errors into one. Nil arguments are discarded;
// with no non-nil error left the result is nil, with exactly one it is
// returned as is, and with more the result is an error whose message joins
// all of theirs. Errors previously returned by Multi are flattened, so
// Multi(Multi(a, b), c) and Multi(a, b, c) are the same value.
func Multi(errs ...error) error {
	var flat []error
	for _, err := range errs {
		switch e := err.(type) {
		case nil:
		case multiError:
			flat = append(flat, e...)
		default:
			flat = append(flat, err)
		}
	}
	switch len(flat) {
	case 0:
		return nil
	case 1:
		return flat[0]
	}
	return multiError(flat)
}

type multiError []error

func (me multiError) Error() string {
	var sb strings.Builder
	sb.WriteString("multiple errors: ")
	for i, e := range me {
		if i > 0 {
			sb.WriteString("; ")
		}
		sb.WriteString(e.Error())
	}
	return sb.String()
}
