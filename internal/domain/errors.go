package domain

import "errors"

var (
	ErrRoomNotFound   = errors.New("room not found")
	ErrFileNotFound   = errors.New("file not found")
	ErrDeleteDisabled = errors.New("deletion disabled")
	ErrFileTooLarge   = errors.New("file too large")
	ErrPersistence    = errors.New("persistence failure")
)
