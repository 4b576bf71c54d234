package providers

import "errors"

var (
	// ErrToolAlreadyRegistered is returned by RegisterTool for a
	// duplicate name.
	ErrToolAlreadyRegistered = errors.New("providers: tool already registered")

	// ErrToolNotFound is returned when the named tool is unknown.
	ErrToolNotFound = errors.New("providers: tool not found")

	// ErrResourceAlreadyRegistered is returned by RegisterResource for a
	// duplicate URI.
	ErrResourceAlreadyRegistered = errors.New("providers: resource already registered")

	// ErrResourceNotFound is returned when the requested URI is unknown.
	ErrResourceNotFound = errors.New("providers: resource not found")

	// ErrPromptAlreadyRegistered is returned by RegisterPrompt for a
	// duplicate name.
	ErrPromptAlreadyRegistered = errors.New("providers: prompt already registered")

	// ErrPromptNotFound is returned when the named prompt is unknown.
	ErrPromptNotFound = errors.New("providers: prompt not found")

	// ErrInvalidCursor is returned when a pagination cursor does not
	// correspond to any known page boundary.
	ErrInvalidCursor = errors.New("providers: invalid cursor")
)
