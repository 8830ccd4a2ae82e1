package domain

import "time"

// Status tracks the delivery lifecycle of a queued notification email.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusSent       Status = "sent"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusSent, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// QueueItem is one queued notification email. Rows are created by the
// message-send path upstream; this service only consumes them. Rows are
// never deleted here — terminal rows stay queryable for inspection.
type QueueItem struct {
	ID              string     `json:"id"`
	SourceMessageID string     `json:"source_message_id"`
	RecipientEmail  string     `json:"recipient_email"`
	RecipientName   *string    `json:"recipient_name,omitempty"`
	Subject         string     `json:"subject"`
	ContentPreview  *string    `json:"content_preview,omitempty"`
	Status          Status     `json:"status"`
	Attempts        int        `json:"attempts"`
	NextRetryAt     *time.Time `json:"next_retry_at,omitempty"`
	LastError       *string    `json:"last_error,omitempty"`
	SentAt          *time.Time `json:"sent_at,omitempty"`
	ProviderMsgID   *string    `json:"provider_msg_id,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// FeatureFlag is a single boolean switch read from the feature_flags table.
// The dispatch worker only ever reads flags; toggling happens elsewhere.
type FeatureFlag struct {
	Key     string `json:"key"`
	Enabled bool   `json:"enabled"`
}

// ListFilter holds query parameters for paginated queue inspection.
type ListFilter struct {
	Status    *Status
	Recipient *string
	From      *time.Time
	To        *time.Time
	Page      int
	Limit     int
}

// CancelRequest is the inbound payload for the recipient cleanup endpoint.
// It is issued by the account-deletion path when a user is removed.
type CancelRequest struct {
	RecipientEmail string `json:"recipient_email"`
}

func (r *CancelRequest) Validate() error {
	if r.RecipientEmail == "" {
		return ErrInvalidRecipient
	}
	return nil
}
