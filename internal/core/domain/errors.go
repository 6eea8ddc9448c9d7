package domain

import "errors"

var (
	ErrMalformedPayload      = errors.New("malformed payload")
	ErrCorruptCompressedData = errors.New("corrupt compressed data")
	ErrPayloadTooLarge       = errors.New("payload too large")
	ErrAlreadyStarted        = errors.New("session already started")
	ErrChannelClosed         = errors.New("channel closed")
	ErrAmbiguousMessage      = errors.New("ambiguous message")
	ErrUnknownMessage        = errors.New("unknown message")
	ErrInvalidFrame          = errors.New("invalid frame")
	ErrInvalidQuality        = errors.New("quality out of range")
	ErrNotStarted            = errors.New("session not started")
	ErrReportNotFound        = errors.New("report not found")
)
