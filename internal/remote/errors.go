package remote

import "errors"

var (
	ErrConnectionFailed = errors.New("remote: mqtt connection failed")
	ErrNotConnected     = errors.New("remote: mqtt not connected")
	ErrSubscribeFailed  = errors.New("remote: mqtt subscribe failed")
	ErrPublishFailed    = errors.New("remote: mqtt publish failed")

	// ErrUnknownTopic is returned for a message outside the command topics.
	ErrUnknownTopic = errors.New("remote: unknown topic")

	// ErrInvalidPayload is returned when a command payload cannot be decoded.
	ErrInvalidPayload = errors.New("remote: invalid payload")
)
