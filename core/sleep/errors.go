package sleep

import "errors"

var (
	// ErrInvalidQualityIndex is returned for channel quality indices above 15.
	ErrInvalidQualityIndex = errors.New("invalid channel quality index")
	// ErrInvalidConfig is returned when the engine configuration is unusable.
	ErrInvalidConfig = errors.New("invalid sleep configuration")
	// ErrNilNetwork is returned when no network collaborator is provided.
	ErrNilNetwork = errors.New("sleep: nil network")
)
