package domain

import "errors"

var (
	ErrPropertyNotFound     = errors.New("property not found")
	ErrNoConfirmedBuyer     = errors.New("property has no confirmed buyer")
	ErrInvalidInitiator     = errors.New("initiatedBy must be buyer or seller")
	ErrAlreadyUnderPurchase = errors.New("property is already under purchase by another buyer")
	ErrMissingBuyer         = errors.New("buyer id required")
)
