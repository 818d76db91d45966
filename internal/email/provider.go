// Package email is the notification sink for order confirmations.
package email

import (
	"context"
)

type Email struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

type Provider interface {
	SendEmail(ctx context.Context, email *Email) error
}

// NoopProvider swallows sends; used when no email key is configured.
type NoopProvider struct{}

func (NoopProvider) SendEmail(ctx context.Context, email *Email) error {
	_ = ctx
	_ = email
	return nil
}
