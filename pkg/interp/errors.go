package interp

import "errors"

// Errors returned by the public instance API. These never panic the process;
// a failing operation leaves the instance untouched.
var (
	// ErrNoSuchProperty: the name is not part of the component's public API.
	ErrNoSuchProperty = errors.New("no such property")
	// ErrWrongType: the supplied value does not match the declared property
	// type. The prior value and all dependents are unaffected.
	ErrWrongType = errors.New("wrong type for property")
	// ErrReadOnly: writing an out-only property.
	ErrReadOnly = errors.New("property is read-only")
	// ErrNoSuchCallback: the name is not a public callback.
	ErrNoSuchCallback = errors.New("no such callback")
)
