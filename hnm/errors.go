package hnm

import "errors"

var (
	ErrNilSignal           = errors.New("hnm: signal is nil")
	ErrInvalidSamplingRate = errors.New("hnm: sampling rate must be positive")
	ErrInvalidDuration     = errors.New("hnm: duration must be finite and non-negative")
	ErrNonMonotonicFrames  = errors.New("hnm: frame times are not strictly increasing")
	ErrTimeMappingMismatch = errors.New("hnm: time mapping does not match frame count")
	ErrOutputTooLong       = errors.New("hnm: output buffer too long")
)
