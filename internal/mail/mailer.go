// Package mail delivers transactional email through SMTP or a kafka-backed
// mail worker.
package mail

import (
	"context"
	"errors"
	"strings"
)

// ErrNotConfigured is matched by every *ConfigError.
var ErrNotConfigured = errors.New("mail transport not configured")

// Message is one outgoing email.
type Message struct {
	To       string
	Subject  string
	HTMLBody string
	TextBody string
}

// Sender dispatches messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// ConfigError reports which settings a transport is missing. It carries
// setting names only, never their values.
type ConfigError struct {
	Transport string
	Missing   []string
}

func (e *ConfigError) Error() string {
	return e.Transport + " mail transport not configured, missing: " + strings.Join(e.Missing, ", ")
}

func (e *ConfigError) Is(target error) bool {
	return target == ErrNotConfigured
}

// MissingSettings returns the names carried by a ConfigError in err's chain.
func MissingSettings(err error) []string {
	var cfgErr *ConfigError
	if errors.As(err, &cfgErr) {
		return cfgErr.Missing
	}
	return nil
}
