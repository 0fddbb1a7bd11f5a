package errors

import "errors"

var (
	ErrMissingAPIOrigin       = errors.New("telegram API origin is not configured")
	ErrInvalidAPIOrigin       = errors.New("telegram API origin must be a valid URL starting with http:// or https://")
	ErrMissingChannelsConfig  = errors.New("channels configuration is not configured")
	ErrInvalidChannelsConfig  = errors.New("invalid JSON in channels configuration")
	ErrMissingDefaultTemplate = errors.New("default message template is required")
)
