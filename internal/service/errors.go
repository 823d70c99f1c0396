package service

import "errors"

var (
	ErrCycleInProgress  = errors.New("trading cycle already in progress")
	ErrPositionNotFound = errors.New("position not found")
	ErrPositionExists   = errors.New("position already exists")
	// ErrPersistFailed means memory was updated but the store write failed.
	ErrPersistFailed = errors.New("failed to persist positions")
)
