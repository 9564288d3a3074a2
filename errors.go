package patchy

import "golang.org/x/xerrors"

// Sentinel errors for the fatal categories the CLI layer distinguishes.
// Core functions wrap these with xerrors.Errorf("...: %w", ErrX) so that
// errors.Is keeps working through the call chain.
var (
	// ErrBadMagic is returned when a container's leading 8 bytes don't
	// match the expected magic string.
	ErrBadMagic = xerrors.New("patchy: bad container magic")

	// ErrBadVersion is returned when a container declares a version
	// this build does not know how to read.
	ErrBadVersion = xerrors.New("patchy: unsupported container version")

	// ErrVerificationMismatch is returned when a strong-hash
	// verification (BASE on apply entry, OTHER on apply exit, or the
	// diff self-check) fails.
	ErrVerificationMismatch = xerrors.New("patchy: verification mismatch")
)
