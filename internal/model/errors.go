package model

import "errors"

var (
	// ErrNotConnected is returned when a query is sent while the session
	// is not in the connected state. No transport write is attempted.
	ErrNotConnected = errors.New("session not connected")

	// ErrReconnectExhausted reports that the bounded reconnect policy has
	// run out of attempts; an explicit connect is required to resume.
	ErrReconnectExhausted = errors.New("reconnect attempts exhausted")

	// ErrConversationNotFound is returned when a conversation is not found.
	ErrConversationNotFound = errors.New("conversation not found")

	// ErrUnknownProvider is returned when a query names a provider the
	// backend does not recognize.
	ErrUnknownProvider = errors.New("unknown provider")
)
