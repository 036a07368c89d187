package event

import "errors"

var (
	ErrDuplicateEvent = errors.New("duplicate event")

	ErrInvalidEventType = errors.New("invalid event type")

	ErrInvalidSessionID = errors.New("invalid session id")

	ErrInvalidSiteURL = errors.New("invalid site url")

	ErrInvalidEventTime = errors.New("invalid event time")

	ErrUnknownSite = errors.New("unknown or inactive site")
)
