package etl

import "errors"

var (
	// ErrStoreUnavailable wraps transport failures of a store. It aborts the run.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrUnsupportedOperation is returned by stores that cannot serve a request.
	ErrUnsupportedOperation = errors.New("unsupported operation")
	// ErrClosedAdapter is returned once CommitAll has run.
	ErrClosedAdapter = errors.New("adapter closed")
	// ErrCorruptIndexFile marks an index file that could not be decoded.
	ErrCorruptIndexFile = errors.New("corrupt index file")
	// ErrMalformedPackedField marks a record whose packed arrays cannot be expanded.
	ErrMalformedPackedField = errors.New("malformed packed field")
	// ErrIndexerState is returned when indexer operations run out of order.
	ErrIndexerState = errors.New("indexer in wrong state")
	// ErrInvalidRecord marks a record missing fields its data type requires.
	ErrInvalidRecord = errors.New("invalid record")
)
