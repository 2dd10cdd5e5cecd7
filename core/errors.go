package core

import "errors"

var (
	ErrInvalidResolution      = errors.New("resolution must be one of minute, hour or day")
	ErrInstrumentListMismatch = errors.New("instrument listing and count results are not aligned")
)
