package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/srgjo27/escrow_booking/internal/core/domain"
	"github.com/srgjo27/escrow_booking/internal/core/ports/mocks"
	"github.com/srgjo27/escrow_booking/internal/core/services"
)

type recordingFinisher struct {
	mu    sync.Mutex
	calls []services.EscrowPointerInput
	err   error
}

func (r *recordingFinisher) FinishEscrow(ctx context.Context, in services.EscrowPointerInput) (*services.EscrowTxResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, in)
	if r.err != nil {
		return nil, r.err
	}
	return &services.EscrowTxResult{Result: domain.LedgerResult{Hash: txHash, Validated: true, ResultCode: domain.ResultSuccess}}, nil
}

func paymentTo(destination string) domain.LedgerResult {
	res := validatedResult()
	res.TransactionType = domain.TxPayment
	res.Destination = destination
	return res
}

type confirmFixture struct {
	*holdFixture
	ledger   *mocks.LedgerClient
	finisher *recordingFinisher
	svc      *services.ConfirmationService
}

const restPayout = "rf1BiGeXwwQoi8Z2ueFYTEXSwuJYfV2Jpn"

func newConfirmFixture(t *testing.T) *confirmFixture {
	t.Helper()
	f := &confirmFixture{
		holdFixture: newHoldFixture(t),
		ledger:      mocks.NewLedgerClient(t),
		finisher:    &recordingFinisher{},
	}
	f.svc = services.NewConfirmationService(f.holdFixture.svc, f.ledger, f.finisher, nil, time.Second, nil)
	return f
}

func TestConfirm_UnknownResourceConfirms(t *testing.T) {
	f := newConfirmFixture(t)
	ctx := context.Background()
	hold, err := f.holdFixture.svc.CreateHold(ctx, "TABLE_5")
	require.NoError(t, err)

	f.ledger.On("Transaction", mock.Anything, txHash).Return(validatedResult(), nil).Once()

	res, err := f.svc.Confirm(ctx, hold.ID, txHash)

	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, domain.HoldConfirmed, res.Status)
	assert.Equal(t, services.MessageConfirmed, res.Message)
}

func TestConfirm_AfterExpiry(t *testing.T) {
	f := newConfirmFixture(t)
	ctx := context.Background()
	hold, err := f.holdFixture.svc.CreateHold(ctx, "rest_2")
	require.NoError(t, err)

	f.clock.Advance(10*time.Minute + time.Second)
	res, err := f.svc.Confirm(ctx, hold.ID, txHash)

	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.False(t, res.Retryable)
	assert.Equal(t, domain.HoldExpired, res.Status)
	assert.Equal(t, services.MessageExpired, res.Message)
	assert.Equal(t, 5, f.bookings(t, "rest_2"), "seat released")
}

func TestConfirm_ExpiresWhileLedgerAnswers(t *testing.T) {
	f := newConfirmFixture(t)
	ctx := context.Background()
	hold, err := f.holdFixture.svc.CreateHold(ctx, "rest_2")
	require.NoError(t, err)

	f.ledger.On("Transaction", mock.Anything, txHash).
		Run(func(mock.Arguments) { f.clock.Advance(10 * time.Minute) }).
		Return(validatedResult(), nil).Once()

	res, err := f.svc.Confirm(ctx, hold.ID, txHash)

	require.NoError(t, err)
	assert.Equal(t, domain.HoldExpired, res.Status)
	assert.Equal(t, services.MessageExpired, res.Message)
}

func TestConfirm_PendingEvidenceIsRetryable(t *testing.T) {
	f := newConfirmFixture(t)
	ctx := context.Background()
	hold, err := f.holdFixture.svc.CreateHold(ctx, "rest_2")
	require.NoError(t, err)

	f.ledger.On("Transaction", mock.Anything, txHash).Return(domain.LedgerResult{}, domain.ErrTxNotFound).Once()

	res, err := f.svc.Confirm(ctx, hold.ID, txHash)

	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.True(t, res.Retryable)
	assert.Equal(t, domain.HoldHeld, res.Status)
	assert.Equal(t, domain.ResolutionPending, res.Resolution)
}

func TestConfirm_LedgerFailure(t *testing.T) {
	f := newConfirmFixture(t)
	ctx := context.Background()
	hold, err := f.holdFixture.svc.CreateHold(ctx, "rest_2")
	require.NoError(t, err)

	f.ledger.On("Transaction", mock.Anything, txHash).Return(domain.LedgerResult{}, errors.New("websocket: close 1006")).Once()

	_, err = f.svc.Confirm(ctx, hold.ID, txHash)

	var lerr *domain.LedgerError
	assert.ErrorAs(t, err, &lerr)
}

func TestConfirm_InputValidation(t *testing.T) {
	f := newConfirmFixture(t)
	ctx := context.Background()

	cases := map[string]struct {
		bookingID string
		hash      string
		field     string
	}{
		"missing booking": {"", txHash, "bookingId"},
		"missing hash":    {"abc", "", "txHash"},
		"short hash":      {"abc", "ABCD", "txHash"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.Confirm(ctx, tc.bookingID, tc.hash)

			var verr *domain.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.field, verr.Field)
		})
	}
}

func TestConfirm_UnknownBooking(t *testing.T) {
	f := newConfirmFixture(t)

	_, err := f.svc.Confirm(context.Background(), "missing", txHash)

	assert.ErrorIs(t, err, domain.ErrHoldNotFound)
}

func TestConfirm_IsIdempotent(t *testing.T) {
	f := newConfirmFixture(t)
	ctx := context.Background()
	hold, err := f.holdFixture.svc.CreateHold(ctx, "rest_2")
	require.NoError(t, err)

	f.ledger.On("Transaction", mock.Anything, txHash).Return(paymentTo(restPayout), nil).Once()

	first, err := f.svc.Confirm(ctx, hold.ID, txHash)
	require.NoError(t, err)
	second, err := f.svc.Confirm(ctx, hold.ID, txHash)
	require.NoError(t, err)

	assert.Equal(t, first.Status, second.Status)
	assert.True(t, second.Success)
}

func TestConfirm_RejectsNonPaymentEvidence(t *testing.T) {
	f := newConfirmFixture(t)
	ctx := context.Background()
	hold, err := f.holdFixture.svc.CreateHold(ctx, "rest_2")
	require.NoError(t, err)

	accountSet := validatedResult()
	accountSet.TransactionType = "AccountSet"
	f.ledger.On("Transaction", mock.Anything, txHash).Return(accountSet, nil).Once()

	res, err := f.svc.Confirm(ctx, hold.ID, txHash)

	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, domain.HoldExpired, res.Status)
	assert.Equal(t, 5, f.bookings(t, "rest_2"), "seat released")
}

func TestConfirm_CancelledBooking(t *testing.T) {
	f := newConfirmFixture(t)
	ctx := context.Background()
	hold, err := f.holdFixture.svc.CreateHold(ctx, "rest_2")
	require.NoError(t, err)
	_, err = f.holdFixture.svc.Cancel(ctx, hold.ID)
	require.NoError(t, err)

	res, err := f.svc.Confirm(ctx, hold.ID, txHash)

	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, domain.HoldCancelled, res.Status)
	assert.Equal(t, services.MessageCancelled, res.Message)
}

func TestConfirm_FinishesAttachedEscrow(t *testing.T) {
	f := newConfirmFixture(t)
	ctx := context.Background()
	hold, err := f.holdFixture.svc.CreateHold(ctx, "rest_2")
	require.NoError(t, err)
	pointer := domain.EscrowPointer{Owner: ownerAddr, OfferSequence: 42}
	require.NoError(t, f.holdFixture.svc.AttachEscrow(ctx, hold.ID, pointer))

	f.ledger.On("Transaction", mock.Anything, txHash).Return(paymentTo(restPayout), nil).Once()

	res, err := f.svc.Confirm(ctx, hold.ID, txHash)
	require.NoError(t, err)
	require.True(t, res.Success)
	_, err = f.svc.Confirm(ctx, hold.ID, txHash)
	require.NoError(t, err)
	f.svc.Wait()

	f.finisher.mu.Lock()
	defer f.finisher.mu.Unlock()
	require.Len(t, f.finisher.calls, 1)
	assert.Equal(t, services.EscrowPointerInput{Owner: ownerAddr, OfferSequence: "42"}, f.finisher.calls[0])
}
