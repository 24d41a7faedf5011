package encdec

import "errors"

var (
	ErrInvalidRotation    = errors.New("rotation must be a multiple of 90 degrees")
	ErrBufferSizeMismatch = errors.New("buffer size mismatch")
	ErrInvalidCropRect    = errors.New("invalid crop rectangle")
	ErrInvalidArgument    = errors.New("invalid argument")
)
