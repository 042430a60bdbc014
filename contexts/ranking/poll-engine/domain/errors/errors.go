package errors

import "errors"

var (
	ErrCategoryNotFound        = errors.New("category not found")
	ErrThingNotFound           = errors.New("thing not found")
	ErrRankNotFound            = errors.New("rank not found")
	ErrThingOrCategoryNotFound = errors.New("thing or category not found")
	ErrNotEnoughItems          = errors.New("not enough things in category")
	ErrNotInPollingState       = errors.New("account is not polling")
	ErrDuplicateRecord         = errors.New("duplicate record")
	ErrInvalidPreference       = errors.New("preference must be A or B")
	ErrInvalidInput            = errors.New("invalid input")
	ErrOutboxMessageNotFound   = errors.New("outbox message not found")
)
