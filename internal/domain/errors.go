package domain

import "errors"

var (
	// ErrPayloadTooLarge is returned when an encoded button payload exceeds the platform limit.
	ErrPayloadTooLarge = errors.New("button payload too large")
	// ErrMalformedPayload is returned when an echoed payload cannot be decoded.
	ErrMalformedPayload = errors.New("malformed button payload")
	// ErrNoQuestionsAvailable indicates the content snapshot has no questions to draw from.
	ErrNoQuestionsAvailable = errors.New("no quiz questions available")
	// ErrNoPrizeAvailable indicates every prize is embargoed or the prize list is empty.
	ErrNoPrizeAvailable = errors.New("no prize available")
	// ErrDuplicateEvent marks a redelivered webhook event; dropped without side effects.
	ErrDuplicateEvent = errors.New("duplicate event")
	// ErrContentUnavailable indicates a content refresh failed; the previous snapshot stays in place.
	ErrContentUnavailable = errors.New("content source unavailable")
)
