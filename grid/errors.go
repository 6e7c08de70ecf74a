package grid

import "errors"

var (
	ErrUnknownEnvironment = errors.New("unknown environment")
	ErrUnknownBackend     = errors.New("unknown backend class")
	ErrUnknownReward      = errors.New("unknown reward")
	ErrUnknownAttribute   = errors.New("unknown observation attribute")
	ErrAmbiguousAction    = errors.New("ambiguous action")
	ErrInvalidDescription = errors.New("invalid grid description")
	ErrNotReset           = errors.New("environment must be reset before stepping")
	ErrEpisodeDone        = errors.New("episode is over, reset the environment")
	ErrBackendNotLoaded   = errors.New("backend has no grid loaded")
)
