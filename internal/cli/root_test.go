package cli

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srgjo27/escrow_booking/internal/core/domain"
	"github.com/srgjo27/escrow_booking/internal/core/services"
	"github.com/srgjo27/escrow_booking/internal/platform/config"
)

const owner = "rPT1Sjq2YGrBMTttX4GZHjKu9dyfzbpAYe"

type fakeEscrows struct {
	status   *services.EscrowStatusResult
	records  []domain.EscrowRecord
	tx       *services.EscrowTxResult
	err      error
	finished []services.EscrowPointerInput
	canceled []services.EscrowPointerInput
}

func (f *fakeEscrows) EscrowStatus(ctx context.Context, owner, sequence string) (*services.EscrowStatusResult, error) {
	return f.status, f.err
}

func (f *fakeEscrows) ListEscrows(ctx context.Context, owner string) ([]domain.EscrowRecord, error) {
	return f.records, f.err
}

func (f *fakeEscrows) FinishEscrow(ctx context.Context, in services.EscrowPointerInput) (*services.EscrowTxResult, error) {
	f.finished = append(f.finished, in)
	return f.tx, f.err
}

func (f *fakeEscrows) CancelEscrow(ctx context.Context, in services.EscrowPointerInput) (*services.EscrowTxResult, error) {
	f.canceled = append(f.canceled, in)
	return f.tx, f.err
}

func execute(t *testing.T, fake *fakeEscrows, args ...string) (string, error) {
	t.Helper()

	var gotCfg *config.Config
	closed := false
	root := NewRootCommand(func(cfg *config.Config, logger *slog.Logger) (Escrows, func(), error) {
		gotCfg = cfg
		return fake, func() { closed = true }, nil
	})

	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	if gotCfg != nil {
		assert.True(t, closed, "connections released")
	}
	if err == nil {
		require.NotNil(t, gotCfg)
	}
	return buf.String(), err
}

func TestRootCommand(t *testing.T) {
	root := NewRootCommand(LedgerFactory)

	names := make(map[string]bool)
	for _, cmd := range root.Commands() {
		names[cmd.Name()] = true
	}
	for _, want := range []string{"status", "list", "release", "refund"} {
		assert.True(t, names[want], "missing command %s", want)
	}
}

func TestStatusCommand(t *testing.T) {
	cancelAfter := time.Date(2026, 3, 1, 12, 10, 0, 0, time.UTC)
	fake := &fakeEscrows{status: &services.EscrowStatusResult{
		Pointer:   domain.EscrowPointer{Owner: owner, OfferSequence: 42},
		Status:    domain.EscrowHeld,
		BookingID: "bk-1",
		Escrow: &domain.EscrowRecord{
			Destination: "rf1BiGeXwwQoi8Z2ueFYTEXSwuJYfV2Jpn",
			Amount:      domain.NativeAmount("1000000"),
			CancelAfter: &cancelAfter,
		},
	}}

	out, err := execute(t, fake, "status", owner, "42")

	require.NoError(t, err)
	assert.Contains(t, out, "Escrow "+owner+":42: HELD")
	assert.Contains(t, out, "Booking: bk-1")
	assert.Contains(t, out, "Amount: 1000000 drops")
	assert.Contains(t, out, "Cancel after: 2026-03-01T12:10:00Z")
}

func TestStatusRequiresArgs(t *testing.T) {
	_, err := execute(t, &fakeEscrows{}, "status", owner)
	assert.Error(t, err)
}

func TestListCommand(t *testing.T) {
	out, err := execute(t, &fakeEscrows{}, "list", owner)
	require.NoError(t, err)
	assert.Contains(t, out, "No escrows owned by "+owner)

	fake := &fakeEscrows{records: []domain.EscrowRecord{
		{Index: "E1", Destination: "rf1BiGeXwwQoi8Z2ueFYTEXSwuJYfV2Jpn", Amount: domain.NativeAmount("25")},
		{Index: "E2", Destination: "rf1BiGeXwwQoi8Z2ueFYTEXSwuJYfV2Jpn", Amount: domain.NativeAmount("50")},
	}}
	out, err = execute(t, fake, "list", owner)
	require.NoError(t, err)
	assert.Contains(t, out, "Escrows owned by "+owner+": 2")
	assert.Contains(t, out, "[2] E2")
}

func TestReleaseCommand(t *testing.T) {
	fake := &fakeEscrows{tx: &services.EscrowTxResult{
		Pointer:     domain.EscrowPointer{Owner: owner, OfferSequence: 7},
		Result:      domain.LedgerResult{Hash: "ABC", TransactionType: domain.TxEscrowFinish, ResultCode: domain.ResultSuccess},
		ExplorerURL: "https://testnet.xrpl.org/transactions/ABC",
	}}

	out, err := execute(t, fake, "release", owner, "7", "--seed", "sFinisher", "--fulfillment", "A0", "--condition", "B1")

	require.NoError(t, err)
	require.Len(t, fake.finished, 1)
	assert.Equal(t, services.EscrowPointerInput{
		Credential:    "sFinisher",
		Owner:         owner,
		OfferSequence: "7",
		Fulfillment:   "A0",
		Condition:     "B1",
	}, fake.finished[0])
	assert.Contains(t, out, "EscrowFinish tesSUCCESS")
	assert.Contains(t, out, "Explorer: https://testnet.xrpl.org/transactions/ABC")
}

func TestRefundCommandError(t *testing.T) {
	fake := &fakeEscrows{err: &domain.LedgerError{Op: "escrow cancel", Code: "tecNO_PERMISSION"}}

	_, err := execute(t, fake, "refund", owner, "7")

	var ledgerErr *domain.LedgerError
	require.True(t, errors.As(err, &ledgerErr))
	assert.Equal(t, "tecNO_PERMISSION", ledgerErr.Code)
	require.Len(t, fake.canceled, 1)
	assert.Empty(t, fake.canceled[0].Credential)
}

func TestFailingCommandReleasesConnectionsOnce(t *testing.T) {
	fake := &fakeEscrows{err: errors.New("websocket: close 1006")}
	closes := 0
	root := NewRootCommand(func(cfg *config.Config, logger *slog.Logger) (Escrows, func(), error) {
		return fake, func() { closes++ }, nil
	})
	root.SetOut(new(bytes.Buffer))
	root.SetErr(new(bytes.Buffer))
	root.SetArgs([]string{"list", owner})

	require.Error(t, root.Execute())
	assert.Equal(t, 1, closes)
}

func TestFactoryError(t *testing.T) {
	root := NewRootCommand(func(cfg *config.Config, logger *slog.Logger) (Escrows, func(), error) {
		return nil, nil, domain.MissingField("XRPL_RPC")
	})
	root.SetOut(new(bytes.Buffer))
	root.SetErr(new(bytes.Buffer))
	root.SetArgs([]string{"list", owner})

	assert.Error(t, root.Execute())
}

func TestLedgerFactoryRequiresEndpoint(t *testing.T) {
	cfg := config.Default()

	_, _, err := LedgerFactory(&cfg, slog.Default())

	var validation *domain.ValidationError
	require.True(t, errors.As(err, &validation))
	assert.Equal(t, "XRPL_RPC", validation.Field)
}
