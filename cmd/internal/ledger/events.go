package ledger

import (
	"context"
	"time"
)

// TransferCompleted is emitted after a transfer commits.
type TransferCompleted struct {
	TransactionID string    `json:"transaction_id"`
	FromAccountID string    `json:"from_account_id"`
	ToAccountID   string    `json:"to_account_id"`
	AmountMinor   int64     `json:"amount_minor"`
	CompletedAt   time.Time `json:"completed_at"`
}

// EventPublisher receives committed-transfer notifications. Publish errors
// never fail the transfer; they are logged and dropped.
type EventPublisher interface {
	PublishTransferCompleted(ctx context.Context, ev TransferCompleted) error
}

// NopPublisher discards all events.
type NopPublisher struct{}

func (NopPublisher) PublishTransferCompleted(context.Context, TransferCompleted) error { return nil }
