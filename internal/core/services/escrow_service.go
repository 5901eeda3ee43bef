package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/srgjo27/escrow_booking/internal/core/domain"
	"github.com/srgjo27/escrow_booking/internal/core/ports"
	"github.com/srgjo27/escrow_booking/internal/platform/clock"
)

const (
	DefaultMinCancelBuffer  = 30 * time.Second
	DefaultExplorerBaseURL  = "https://testnet.xrpl.org/transactions/"
	lastLedgerSequenceDelta = 20
)

var notFoundSignatures = []string{"entryNotFound", "lgrNotFound", "Not found", "doesNotExist"}

type EscrowConfig struct {
	Endpoint           string
	OperatorCredential string
	MinCancelBuffer    time.Duration
	ExplorerBaseURL    string
}

// BookingLookup correlates escrows with holds.
type BookingLookup interface {
	LookupBooking(ctx context.Context, id string) (*domain.Hold, string, error)
	AttachEscrow(ctx context.Context, id string, pointer domain.EscrowPointer) error
	HoldForEscrow(ctx context.Context, pointer domain.EscrowPointer) (*domain.Hold, error)
}

type OpenEscrowInput struct {
	OwnerCredential    string
	Destination        string
	Amount             *domain.Amount
	CancelAfterSeconds *int64
	FinishAfterSeconds *int64
	Condition          string
	BookingID          string
}

type EscrowPointerInput struct {
	Credential    string
	Owner         string
	OfferSequence string
	Fulfillment   string
	Condition     string
}

type OpenEscrowResult struct {
	Pointer     domain.EscrowPointer
	Result      domain.LedgerResult
	CancelAfter time.Time
	FinishAfter *time.Time
	BookingID   string
	ExplorerURL string
}

type EscrowTxResult struct {
	Pointer     domain.EscrowPointer
	Result      domain.LedgerResult
	ExplorerURL string
}

type EscrowStatusResult struct {
	Pointer   domain.EscrowPointer
	Status    domain.EscrowStatus
	Escrow    *domain.EscrowRecord
	BookingID string
}

type EscrowService struct {
	ledger   ports.LedgerClient
	signer   ports.Signer
	bookings BookingLookup
	clock    clock.Clock
	cfg      EscrowConfig
	logger   *slog.Logger
}

func NewEscrowService(ledger ports.LedgerClient, signer ports.Signer, bookings BookingLookup, clk clock.Clock, cfg EscrowConfig, logger *slog.Logger) *EscrowService {
	if clk == nil {
		clk = clock.NewSystem()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MinCancelBuffer <= 0 {
		cfg.MinCancelBuffer = DefaultMinCancelBuffer
	}
	if cfg.ExplorerBaseURL == "" {
		cfg.ExplorerBaseURL = DefaultExplorerBaseURL
	}
	return &EscrowService{
		ledger:   ledger,
		signer:   signer,
		bookings: bookings,
		clock:    clk,
		cfg:      cfg,
		logger:   logger.With("module", "escrow"),
	}
}

func (s *EscrowService) EnsureConfigured() error {
	return domain.ValidateLedgerEndpoint(s.cfg.Endpoint)
}

func (s *EscrowService) ExplorerURL(hash string) string {
	if hash == "" {
		return ""
	}
	return s.cfg.ExplorerBaseURL + hash
}

// OpenEscrow locks a deposit on the ledger. All input checks run before the
// first network call.
func (s *EscrowService) OpenEscrow(ctx context.Context, in OpenEscrowInput) (*OpenEscrowResult, error) {
	switch {
	case strings.TrimSpace(in.OwnerCredential) == "":
		return nil, domain.MissingField("ownerSeed")
	case strings.TrimSpace(in.Destination) == "":
		return nil, domain.MissingField("destination")
	case in.Amount == nil:
		return nil, domain.MissingField("amount")
	case in.CancelAfterSeconds == nil:
		return nil, domain.MissingField("cancelAfterSecondsFromNow")
	}

	destination := strings.TrimSpace(in.Destination)
	if !domain.IsValidClassicAddress(destination) {
		return nil, domain.InvalidField("destination", "must be a classic ledger address")
	}
	if err := in.Amount.Validate(); err != nil {
		return nil, err
	}

	cancelAfter := *in.CancelAfterSeconds
	minCancel := int64(s.cfg.MinCancelBuffer / time.Second)
	if cancelAfter < minCancel {
		return nil, domain.InvalidField("cancelAfterSecondsFromNow",
			fmt.Sprintf("must be at least %d seconds", minCancel))
	}
	if cancelAfter > math.MaxUint32 {
		return nil, domain.InvalidField("cancelAfterSecondsFromNow",
			fmt.Sprintf("must be at most %d seconds", uint32(math.MaxUint32)))
	}
	var finishAfter int64
	if in.FinishAfterSeconds != nil {
		finishAfter = *in.FinishAfterSeconds
		if finishAfter < 0 {
			return nil, domain.InvalidField("finishAfterSecondsFromNow", "must not be negative")
		}
		if finishAfter >= cancelAfter {
			return nil, domain.InvalidField("finishAfterSecondsFromNow", "must be before cancelAfterSecondsFromNow")
		}
	}
	if in.Condition != "" && !isHexString(in.Condition) {
		return nil, domain.InvalidField("condition", "must be hex encoded")
	}

	now := s.clock.Now()
	cancelAt := now.Add(time.Duration(cancelAfter) * time.Second)
	cancelLedger, err := domain.ToLedgerTime(cancelAt)
	if err != nil {
		return nil, domain.InvalidField("cancelAfterSecondsFromNow", err.Error())
	}
	var (
		finishAt     *time.Time
		finishLedger uint32
	)
	if finishAfter > 0 {
		t := now.Add(time.Duration(finishAfter) * time.Second)
		if finishLedger, err = domain.ToLedgerTime(t); err != nil {
			return nil, domain.InvalidField("finishAfterSecondsFromNow", err.Error())
		}
		finishAt = &t
	}

	hold, err := s.correlateBooking(ctx, in.BookingID, destination)
	if err != nil {
		return nil, err
	}
	if err := s.EnsureConfigured(); err != nil {
		return nil, err
	}

	tx := domain.LedgerTx{
		TransactionType: domain.TxEscrowCreate,
		Destination:     destination,
		Amount:          in.Amount,
		CancelAfter:     cancelLedger,
		FinishAfter:     finishLedger,
		Condition:       strings.ToUpper(in.Condition),
	}
	memo, err := domain.NewJSONMemo(map[string]string{"bookingId": in.BookingID, "type": "deposit"})
	if err != nil {
		return nil, fmt.Errorf("encode escrow memo: %w", err)
	}
	tx.Memos = []domain.MemoWrapper{memo}

	owner, err := s.signer.Address(ctx, in.OwnerCredential)
	if err != nil {
		return nil, asLedgerError("derive owner address", err)
	}
	tx.Account = owner

	signed, result, err := s.submit(ctx, "escrow create", tx, in.OwnerCredential)
	if err != nil {
		return nil, err
	}

	pointer := domain.EscrowPointer{Owner: owner, OfferSequence: signed.Sequence}
	if hold != nil {
		if err := s.bookings.AttachEscrow(ctx, hold.ID, pointer); err != nil {
			s.logger.Error("failed to correlate escrow with booking", "booking_id", hold.ID, "escrow", pointer.String(), "error", err)
		}
	}

	s.logger.Info("escrow created", "escrow", pointer.String(), "booking_id", in.BookingID, "cancel_after", cancelAt)
	return &OpenEscrowResult{
		Pointer:     pointer,
		Result:      result,
		CancelAfter: cancelAt,
		FinishAfter: finishAt,
		BookingID:   in.BookingID,
		ExplorerURL: s.ExplorerURL(result.Hash),
	}, nil
}

// FinishEscrow releases the deposit to its destination. The finisher
// defaults to the operator credential.
func (s *EscrowService) FinishEscrow(ctx context.Context, in EscrowPointerInput) (*EscrowTxResult, error) {
	pointer, err := domain.ParseEscrowPointer(in.Owner, in.OfferSequence)
	if err != nil {
		return nil, err
	}
	if in.Fulfillment != "" {
		if in.Condition == "" {
			return nil, domain.MissingField("condition")
		}
		if !isHexString(in.Fulfillment) {
			return nil, domain.InvalidField("fulfillment", "must be hex encoded")
		}
		if !isHexString(in.Condition) {
			return nil, domain.InvalidField("condition", "must be hex encoded")
		}
	}
	credential, err := s.credential(in.Credential)
	if err != nil {
		return nil, err
	}
	if err := s.EnsureConfigured(); err != nil {
		return nil, err
	}

	account, err := s.signer.Address(ctx, credential)
	if err != nil {
		return nil, asLedgerError("derive finisher address", err)
	}

	tx := domain.LedgerTx{
		TransactionType: domain.TxEscrowFinish,
		Account:         account,
		Owner:           pointer.Owner,
		OfferSequence:   pointer.OfferSequence,
	}
	if in.Fulfillment != "" {
		tx.Fulfillment = strings.ToUpper(in.Fulfillment)
		tx.Condition = strings.ToUpper(in.Condition)
	}

	_, result, err := s.submit(ctx, "escrow finish", tx, credential)
	if err != nil {
		return nil, err
	}

	s.logger.Info("escrow finished", "escrow", pointer.String(), "hash", result.Hash)
	return &EscrowTxResult{Pointer: pointer, Result: result, ExplorerURL: s.ExplorerURL(result.Hash)}, nil
}

// CancelEscrow refunds the deposit to its owner once cancel-after passed.
func (s *EscrowService) CancelEscrow(ctx context.Context, in EscrowPointerInput) (*EscrowTxResult, error) {
	pointer, err := domain.ParseEscrowPointer(in.Owner, in.OfferSequence)
	if err != nil {
		return nil, err
	}
	credential, err := s.credential(in.Credential)
	if err != nil {
		return nil, err
	}
	if err := s.EnsureConfigured(); err != nil {
		return nil, err
	}

	account, err := s.signer.Address(ctx, credential)
	if err != nil {
		return nil, asLedgerError("derive canceller address", err)
	}

	tx := domain.LedgerTx{
		TransactionType: domain.TxEscrowCancel,
		Account:         account,
		Owner:           pointer.Owner,
		OfferSequence:   pointer.OfferSequence,
	}

	_, result, err := s.submit(ctx, "escrow cancel", tx, credential)
	if err != nil {
		return nil, err
	}

	s.logger.Info("escrow cancelled", "escrow", pointer.String(), "hash", result.Hash)
	return &EscrowTxResult{Pointer: pointer, Result: result, ExplorerURL: s.ExplorerURL(result.Hash)}, nil
}

// EscrowStatus reports HELD while the escrow object exists. NOT_HELD covers
// both finished and cancelled escrows.
func (s *EscrowService) EscrowStatus(ctx context.Context, owner, sequence string) (*EscrowStatusResult, error) {
	pointer, err := domain.ParseEscrowPointer(owner, sequence)
	if err != nil {
		return nil, err
	}
	if err := s.EnsureConfigured(); err != nil {
		return nil, err
	}

	out := &EscrowStatusResult{Pointer: pointer}
	if s.bookings != nil {
		if hold, err := s.bookings.HoldForEscrow(ctx, pointer); err == nil {
			out.BookingID = hold.ID
		}
	}

	raw, err := s.ledger.LedgerEntryEscrow(ctx, pointer.Owner, pointer.OfferSequence)
	if err != nil {
		if isNotFound(err) {
			out.Status = domain.EscrowNotHeld
			return out, nil
		}
		return nil, asLedgerError("escrow status", err)
	}

	record, _, err := decodeEscrow(raw)
	if err != nil {
		return nil, asLedgerError("escrow status", err)
	}
	out.Status = domain.EscrowHeld
	out.Escrow = &record
	return out, nil
}

func (s *EscrowService) ListEscrows(ctx context.Context, owner string) ([]domain.EscrowRecord, error) {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return nil, domain.MissingField("owner")
	}
	if !domain.IsValidClassicAddress(owner) {
		return nil, domain.InvalidField("owner", "must be a classic ledger address")
	}
	if err := s.EnsureConfigured(); err != nil {
		return nil, err
	}

	objects, err := s.ledger.AccountObjects(ctx, owner)
	if err != nil {
		return nil, asLedgerError("list escrows", err)
	}

	escrows := make([]domain.EscrowRecord, 0, len(objects))
	for _, raw := range objects {
		record, ok, err := decodeEscrow(raw)
		if err != nil {
			return nil, asLedgerError("list escrows", err)
		}
		if ok {
			escrows = append(escrows, record)
		}
	}
	return escrows, nil
}

func (s *EscrowService) correlateBooking(ctx context.Context, bookingID, destination string) (*domain.Hold, error) {
	if bookingID == "" || s.bookings == nil {
		return nil, nil
	}

	hold, payout, err := s.bookings.LookupBooking(ctx, bookingID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		s.logger.Warn("escrow references unknown booking", "booking_id", bookingID)
		return nil, nil
	case err != nil:
		return nil, err
	}

	if hold.Status.IsTerminal() {
		return nil, domain.InvalidField("bookingId", "is no longer held")
	}
	if payout != "" && payout != destination {
		return nil, domain.InvalidField("destination", "must match the payout address of the booked resource")
	}
	return hold, nil
}

func (s *EscrowService) credential(supplied string) (string, error) {
	if c := strings.TrimSpace(supplied); c != "" {
		return c, nil
	}
	if c := strings.TrimSpace(s.cfg.OperatorCredential); c != "" {
		return c, nil
	}
	return "", domain.MissingField("operatorSeed")
}

// submit signs, submits and waits for the transaction to be validated.
// A validated non-success result is returned alongside a LedgerError.
func (s *EscrowService) submit(ctx context.Context, op string, tx domain.LedgerTx, credential string) (domain.SignedTx, domain.LedgerResult, error) {
	current, err := s.ledger.CurrentLedgerIndex(ctx)
	if err != nil {
		return domain.SignedTx{}, domain.LedgerResult{}, asLedgerError(op, err)
	}
	tx.LastLedgerSequence = current + lastLedgerSequenceDelta

	signed, err := s.signer.Sign(ctx, tx, credential)
	if err != nil {
		return domain.SignedTx{}, domain.LedgerResult{}, asLedgerError(op, err)
	}

	submitted, err := s.ledger.Submit(ctx, signed.Blob)
	if err != nil {
		return signed, domain.LedgerResult{}, asLedgerError(op, err)
	}
	if submitted.Rejected() {
		return signed, domain.LedgerResult{}, &domain.LedgerError{
			Op:   op,
			Code: submitted.EngineResult,
			Err:  errors.New(submitted.EngineResultMessage),
		}
	}

	hash := signed.Hash
	if submitted.Hash != "" {
		hash = submitted.Hash
	}
	s.logger.Info("transaction submitted", "op", op, "hash", hash, "engine_result", submitted.EngineResult, "explorer", s.ExplorerURL(hash))

	result, err := s.ledger.WaitForValidation(ctx, hash, tx.LastLedgerSequence)
	if err != nil {
		return signed, domain.LedgerResult{}, asLedgerError(op, err)
	}
	if !result.Succeeded() {
		return signed, result, &domain.LedgerError{Op: op, Code: result.ResultCode}
	}
	return signed, result, nil
}

// asLedgerError keeps validation and ledger errors as they are and wraps
// anything else.
func asLedgerError(op string, err error) error {
	var validation *domain.ValidationError
	if errors.As(err, &validation) {
		return err
	}
	var ledgerErr *domain.LedgerError
	if errors.As(err, &ledgerErr) {
		return err
	}
	return &domain.LedgerError{Op: op, Err: err}
}

func isNotFound(err error) bool {
	if errors.Is(err, domain.ErrNotFound) {
		return true
	}
	msg := err.Error()
	for _, sig := range notFoundSignatures {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}

type escrowObject struct {
	LedgerEntryType string        `json:"LedgerEntryType"`
	Index           string        `json:"index"`
	Account         string        `json:"Account"`
	Destination     string        `json:"Destination"`
	Amount          domain.Amount `json:"Amount"`
	CancelAfter     uint32        `json:"CancelAfter"`
	FinishAfter     uint32        `json:"FinishAfter"`
	Condition       string        `json:"Condition"`
	PreviousTxnID   string        `json:"PreviousTxnID"`
}

// decodeEscrow reports false for ledger objects that are not escrows.
func decodeEscrow(raw json.RawMessage) (domain.EscrowRecord, bool, error) {
	var obj escrowObject
	if err := json.Unmarshal(raw, &obj); err != nil {
		return domain.EscrowRecord{}, false, fmt.Errorf("decode ledger object: %w", err)
	}
	if obj.LedgerEntryType != "Escrow" {
		return domain.EscrowRecord{}, false, nil
	}

	record := domain.EscrowRecord{
		Index:         obj.Index,
		Owner:         obj.Account,
		Destination:   obj.Destination,
		Amount:        obj.Amount,
		Condition:     obj.Condition,
		PreviousTxnID: obj.PreviousTxnID,
		Raw:           raw,
	}
	if obj.CancelAfter > 0 {
		t := domain.FromLedgerTime(obj.CancelAfter)
		record.CancelAfter = &t
	}
	if obj.FinishAfter > 0 {
		t := domain.FromLedgerTime(obj.FinishAfter)
		record.FinishAfter = &t
	}
	return record, true, nil
}

func isHexString(s string) bool {
	if len(s)%2 != 0 {
		return false
	}
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return s != ""
}
