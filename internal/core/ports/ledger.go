package ports

import (
	"context"
	"encoding/json"

	"github.com/srgjo27/escrow_booking/internal/core/domain"
)

// LedgerClient is the network side of the ledger. Every call may block for
// seconds and must honour ctx.
type LedgerClient interface {
	Submit(ctx context.Context, txBlob string) (domain.SubmitResult, error)
	// Transaction returns domain.ErrTxNotFound when the node does not know
	// the hash yet.
	Transaction(ctx context.Context, hash string) (domain.LedgerResult, error)
	WaitForValidation(ctx context.Context, hash string, lastLedgerSequence uint32) (domain.LedgerResult, error)
	CurrentLedgerIndex(ctx context.Context) (uint32, error)
	LedgerEntryEscrow(ctx context.Context, owner string, sequence uint32) (json.RawMessage, error)
	AccountObjects(ctx context.Context, account string) ([]json.RawMessage, error)
}

// Signer turns a credential (a wallet seed) into an address and signatures.
type Signer interface {
	Address(ctx context.Context, credential string) (string, error)
	Sign(ctx context.Context, tx domain.LedgerTx, credential string) (domain.SignedTx, error)
}
