package secrets

import "errors"

var (
	// ErrUnknownStore indicates a store name with no configured backend.
	ErrUnknownStore = errors.New("unknown secret store")
	// ErrFetchFailed indicates the store could not produce a bundle.
	ErrFetchFailed = errors.New("secret fetch failed")
	// ErrReconcileFailed indicates the destination rejected an apply.
	ErrReconcileFailed = errors.New("secret reconcile failed")
)
