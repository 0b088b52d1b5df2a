package machine

import (
	"errors"

	"github.com/warp/machine-storage/generic"
)

var (
	ErrMachineNotFound = errors.New("machine not found")
	ErrUnknownType     = errors.New("unknown machine type")
	ErrFaceDisabled    = errors.New("face does not expose this resource")
	ErrAccessDenied    = errors.New("access denied")
	ErrCorruptRecord   = errors.New("corrupt machine record")
)

// IsNotFound reports whether err means a machine, type or resource id did
// not resolve.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrMachineNotFound) || errors.Is(err, ErrUnknownType) || generic.IsNotFound(err)
}

// IsClientError reports whether err was caused by the caller's input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrFaceDisabled) || errors.Is(err, ErrAccessDenied) || generic.IsClientError(err)
}
