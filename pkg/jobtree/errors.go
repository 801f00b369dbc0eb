package jobtree

import "errors"

var (
	// ErrUnknownJob is returned when a tree/job name pair is not declared in the catalog.
	ErrUnknownJob = errors.New("unknown job")

	// ErrMalformedKey is returned when a stored key cannot be decomposed into a node identity.
	ErrMalformedKey = errors.New("malformed node key")

	// ErrStoreUnavailable wraps every failure of an underlying key-value primitive.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrNoParent is returned when a non-root node has no recorded parent and
	// none can be derived from the declared hierarchy.
	ErrNoParent = errors.New("parent cannot be resolved")
)

// IsUnknownJob reports whether err is (or wraps) ErrUnknownJob.
func IsUnknownJob(err error) bool {
	return errors.Is(err, ErrUnknownJob)
}

// IsMalformedKey reports whether err is (or wraps) ErrMalformedKey.
func IsMalformedKey(err error) bool {
	return errors.Is(err, ErrMalformedKey)
}

// IsStoreUnavailable reports whether err is (or wraps) ErrStoreUnavailable.
func IsStoreUnavailable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}

// IsNoParent reports whether err is (or wraps) ErrNoParent.
func IsNoParent(err error) bool {
	return errors.Is(err, ErrNoParent)
}
