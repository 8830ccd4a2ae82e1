package mailer

import (
	"context"

	"github.com/classboard/notify-worker/internal/domain"
)

// Outcome is the uniform result of one send attempt. Every failure mode —
// transport error, provider rejection, missing configuration — resolves to
// this shape so the dispatch loop treats all outcomes the same way and the
// adapter never leaks an error past its own boundary.
type Outcome struct {
	OK            bool
	ProviderMsgID string
	Err           string
}

// Mailer abstracts delivery through an external email provider.
// Mocking this interface in tests gives full control over provider behaviour
// without making real HTTP calls.
type Mailer interface {
	Send(ctx context.Context, item *domain.QueueItem) Outcome
}
