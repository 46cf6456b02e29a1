package challenge

import "errors"

var (
	// ErrGeneration is returned by Store.GetOrCreate when a puzzle could not
	// be generated. Nothing is stored in that case, so the caller may retry.
	ErrGeneration = errors.New("challenge: can't generate puzzle")

	// ErrEmptyImage is wrapped by ErrGeneration when a renderer succeeds but
	// produces no bytes.
	ErrEmptyImage = errors.New("challenge: renderer returned an empty image")
)
