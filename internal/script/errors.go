package script

import "errors"

// Errors returned by script operations.
var (
	// ErrInvalidScript indicates a script is malformed.
	ErrInvalidScript = errors.New("invalid script")

	// ErrUnknownTrack indicates a step names a track that was never declared.
	ErrUnknownTrack = errors.New("unknown track")

	// ErrGenerator indicates a Lua sample generator failed.
	ErrGenerator = errors.New("sample generator failed")
)
