package pinger

import "errors"

var (
	ErrNilPinger               = errors.New("pinger is nil")
	ErrPingerAlreadyRegistered = errors.New("pinger already registered")
)
