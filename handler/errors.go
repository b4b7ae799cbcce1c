package handler

import (
	"fmt"
	"strings"
)

// InvalidEventError reports a trigger event that is not a well-formed SES
// receipt notification. It is permanent: redelivering the same event can
// never succeed.
type InvalidEventError struct {
	Reason string
}

func (e *InvalidEventError) Error() string {
	return "invalid SES event: " + e.Reason
}

// FetchError reports a failure to retrieve the original message from
// storage. Whether the failure is transient is not distinguished.
type FetchError struct {
	Key string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to get original message %s: %s", e.Key, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// SendError reports a rejection from the mail-sending service.
type SendError struct {
	Err error
}

func (e *SendError) Error() string { return "send failed: " + e.Err.Error() }

func (e *SendError) Unwrap() error { return e.Err }

// MissingSettingsError reports required configuration still unset after
// defaults, the config file, and the environment were all applied.
type MissingSettingsError struct {
	Settings []string
}

func (e *MissingSettingsError) Error() string {
	return "missing required settings: " + strings.Join(e.Settings, ", ")
}
