package iopath

import "errors"

var (
	// ErrNotFound is returned when a blob does not exist. Transport
	// adapters map their SDK's not-found condition to an error satisfying
	// errors.Is(err, ErrNotFound); every other transport error passes
	// through untranslated.
	ErrNotFound = errors.New("iopath: blob not found")

	// ErrInvalidMode is returned by Open and OpenAsync for any mode other
	// than the supported ones ("rb", "wb").
	ErrInvalidMode = errors.New(`iopath: invalid mode (supported: "rb", "wb")`)

	// ErrUnsupportedURI is returned for URIs that do not carry one of the
	// supported schemes or are missing account/container components.
	ErrUnsupportedURI = errors.New("iopath: unsupported URI")

	// ErrHandlerClosed is returned by operations on a handler after Close.
	ErrHandlerClosed = errors.New("iopath: handler closed")

	// ErrCopyPending reports that a server-side copy had not completed
	// within the configured wait deadline. The copy may still finish later;
	// the error only means this call stopped waiting.
	ErrCopyPending = errors.New("iopath: copy still pending")
)
