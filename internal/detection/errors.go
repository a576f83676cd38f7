package detection

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrDecode              = errors.New("failed to decode image")
	ErrDetectorUnavailable = errors.New("detector unavailable")
	ErrInference           = errors.New("inference failed")
	ErrUnknownClass        = errors.New("unknown class")
	ErrEncode              = errors.New("failed to encode image")
)

// UnknownClassError is returned when the detector emits a class id missing
// from its label table. It matches ErrUnknownClass with errors.Is.
type UnknownClassError struct {
	ClassID int
}

func (e *UnknownClassError) Error() string {
	return fmt.Sprintf("%v: class id %d has no label", ErrUnknownClass, e.ClassID)
}

func (e *UnknownClassError) Is(target error) bool {
	return target == ErrUnknownClass
}

// Kind returns a short machine-readable name for a pipeline error, or
// "internal" for errors from outside the taxonomy.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrDecode):
		return "decode_error"
	case errors.Is(err, ErrDetectorUnavailable):
		return "detector_unavailable"
	case errors.Is(err, ErrInference):
		return "inference_error"
	case errors.Is(err, ErrUnknownClass):
		return "unknown_class"
	case errors.Is(err, ErrEncode):
		return "encode_error"
	default:
		return "internal"
	}
}
