package errcode

import "errors"

// Shared sentinel errors of the persistence layer.
var (
	ErrNilGormDB      = errors.New("nil gorm db")
	ErrRecordNotFound = errors.New("record not found")
)
