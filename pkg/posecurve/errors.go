package posecurve

import (
	"errors"

	"github.com/himanishpuri/PoseCurve/pkg/posecurve/curve"
)

var (
	ErrClipNotFound = errors.New("clip not found")
	// ErrNoPoseData is returned when no bone could be measured in any frame.
	ErrNoPoseData = errors.New("no pose data")

	ErrInvalidInput     = curve.ErrInvalidInput
	ErrConfigOutOfRange = curve.ErrConfigOutOfRange
)
