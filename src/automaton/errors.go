package automaton

import "errors"

var (
	//ErrInvalidShape is returned when the cells matrix is empty or its rows have different length
	ErrInvalidShape = errors.New("invalid grid shape")
	//ErrInvalidRule is returned when the rule values are out of range
	ErrInvalidRule = errors.New("invalid rule")
	//ErrParse is returned when the rule string doesn't match B<digits>S<digits>/<aging>
	ErrParse = errors.New("rule parse error")
	//ErrSizeMismatch is returned when the stamped figure is larger than the target
	ErrSizeMismatch = errors.New("figure size mismatch")
	//ErrOutOfRange is returned when the coordinates are outside the figure
	ErrOutOfRange = errors.New("coordinates out of range")
	//ErrInvalidCycles is returned when the finite cycles count isn't positive
	ErrInvalidCycles = errors.New("invalid cycles count")
	//ErrUnknownTemplate is returned when no template is registered under the name
	ErrUnknownTemplate = errors.New("unknown template")
)
