package kernel

import (
	"fmt"

	"github.com/containerd/errdefs"
)

// Guest-visible results of a failed map request. The syscall dispatch layer
// matches them with errors.Is and owns their wire encoding. Each wraps the
// errdefs class that best describes it, so tracing and generic handlers can
// classify the failure without knowing this package.
var (
	// ErrInvalidCombination rejects a permission request the object's
	// creation-time grants cannot satisfy.
	ErrInvalidCombination = fmt.Errorf("shared memory: invalid combination of permissions: %w", errdefs.ErrInvalidArgument)

	// ErrWrongPermission rejects a restated grant narrower than what the
	// object's creator requires.
	ErrWrongPermission = fmt.Errorf("shared memory: wrong permission: %w", errdefs.ErrPermissionDenied)

	// ErrInvalidAddress rejects a map target outside the window the
	// kernel accepts shared memory mappings in.
	ErrInvalidAddress = fmt.Errorf("shared memory: invalid address: %w", errdefs.ErrInvalidArgument)

	// ErrInvalidAddressState rejects a map target that is already
	// occupied.
	ErrInvalidAddressState = fmt.Errorf("shared memory: invalid address state: %w", errdefs.ErrFailedPrecondition)
)
