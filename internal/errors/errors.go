package errors

import "errors"

var (
	ErrUnsupportedFormat = errors.New("unsupported image format")
	ErrImageTooSmall     = errors.New("image below minimum dimensions")
	ErrPayloadTooLarge   = errors.New("payload exceeds size limit")
	ErrBadStatus         = errors.New("unexpected response status")
	ErrDeadlineExceeded  = errors.New("batch deadline exceeded")
	ErrInvalidConfig     = errors.New("invalid configuration")
)
