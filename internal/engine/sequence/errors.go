package sequence

import "errors"

// Errors returned by sequence operations.
var (
	// ErrTrackNotFound indicates a track id is not part of the sequence.
	ErrTrackNotFound = errors.New("track not found")

	// ErrOutOfRange indicates a sample range lies outside a track.
	ErrOutOfRange = errors.New("sample range out of range")

	// ErrNoTracks indicates an edit named no tracks.
	ErrNoTracks = errors.New("no tracks given")
)
