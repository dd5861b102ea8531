package alarmlib

import "errors"

var (
	ErrInvalidTime    = errors.New("time of day must be in HH:MM format")
	ErrInvalidWeekday = errors.New("unknown weekday")

	ErrSoundNotFound = errors.New("sound is not in the catalog")
	ErrBuiltinSound  = errors.New("built-in sounds cannot be removed")
	ErrDuplicate     = errors.New("a sound with that name already exists")
	ErrNotAudio      = errors.New("file is not a supported audio file")

	ErrKeyNotFound     = errors.New("key not found")
	ErrUnknownDriver   = errors.New("unknown storage driver")
	ErrStorageNotReady = errors.New("storage is closed")
)
