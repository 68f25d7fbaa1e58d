package devices

import "errors"

var (
	// ErrNotFound: the device type id is not in the catalog. Callers fall
	// back to the "no type selected" state.
	ErrNotFound = errors.New("device type not found")

	// ErrInvalidField: the edit names a field outside the schema. This is a
	// wiring bug in the caller, not user input.
	ErrInvalidField = errors.New("invalid field")

	// ErrInvalidValue: the value is negative or of the wrong kind. The
	// record is left unchanged.
	ErrInvalidValue = errors.New("invalid value")

	ErrFieldFixed         = errors.New("field is defined by the device type")
	ErrFieldNotApplicable = errors.New("field does not apply to the device protocol")
	ErrNoDeviceType       = errors.New("no device type selected")
	ErrSessionNotFound    = errors.New("edit session not found")
	ErrSessionClosed      = errors.New("edit session already submitted")
)
