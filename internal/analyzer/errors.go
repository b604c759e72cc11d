package analyzer

import (
	"errors"

	"xinsight/internal/common/errs"
)

// ErrModelNotLoaded is returned by Analyze when the vision model failed to load at startup.
var ErrModelNotLoaded = errors.New("vision model is not loaded")

// ModelNotLoadedMessage is the client-facing text for ErrModelNotLoaded.
const ModelNotLoadedMessage = "Vision model is not loaded."

// IsModelNotLoaded reports whether err indicates a missing vision model (return 500).
func IsModelNotLoaded(err error) bool { return errors.Is(err, ErrModelNotLoaded) }

// IsInvalidInput reports whether err was caused by the upload itself (return 400).
func IsInvalidInput(err error) bool { return errs.IsInvalidInput(err) }

// IsDependencyUnavailable reports whether err indicates a missing runtime dependency (return 503).
func IsDependencyUnavailable(err error) bool { return errs.IsDependencyUnavailable(err) }
