package meshcloud

import "errors"

var (
	// ErrMissingSceneAsset reports a scene or mesh file that is absent or
	// unreadable. Fatal.
	ErrMissingSceneAsset = errors.New("missing scene asset")

	// ErrMalformedMesh reports a mesh file that was read but cannot be
	// interpreted. It is always wrapped together with ErrMissingSceneAsset.
	ErrMalformedMesh = errors.New("malformed mesh")

	// ErrInvalidSceneID reports a scene identifier that is not of the form
	// <house>_<level>.
	ErrInvalidSceneID = errors.New("invalid scene id")

	// ErrUnrecognizedCategory reports an object whose resolved category is
	// absent from the whitelist. It indicates the resolver and whitelist
	// disagree and must not be masked.
	ErrUnrecognizedCategory = errors.New("unrecognized category")

	// ErrConflictingLabel reports an object listed more than once with
	// different classes. Fatal.
	ErrConflictingLabel = errors.New("conflicting object label")

	// ErrDegenerateFace reports a face with a zero-length edge. It is
	// recovered locally: the corners are still emitted, interior sampling
	// is skipped.
	ErrDegenerateFace = errors.New("degenerate face")

	// ErrWriteFailure reports an output artifact that could not be written.
	// Fatal.
	ErrWriteFailure = errors.New("write failure")
)
