package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// RippleEpochOffset is the number of seconds between the unix epoch and
// 2000-01-01T00:00:00Z, where ledger timestamps start.
const RippleEpochOffset = 946684800

// MaxLedgerTime is the last instant a ledger timestamp can express.
var MaxLedgerTime = FromLedgerTime(math.MaxUint32)

// ToLedgerTime converts t to seconds since the ledger epoch. Times before
// the epoch or after MaxLedgerTime fail with ErrLedgerTimeRange.
func ToLedgerTime(t time.Time) (uint32, error) {
	secs := t.Unix() - RippleEpochOffset
	if secs < 0 || secs > math.MaxUint32 {
		return 0, fmt.Errorf("%w: %s", ErrLedgerTimeRange, t.UTC().Format(time.RFC3339))
	}
	return uint32(secs), nil
}

func FromLedgerTime(v uint32) time.Time {
	return time.Unix(int64(v)+RippleEpochOffset, 0).UTC()
}

type EscrowStatus string

const (
	EscrowHeld    EscrowStatus = "HELD"
	EscrowNotHeld EscrowStatus = "NOT_HELD"
)

// EscrowPointer identifies an escrow object on the ledger.
type EscrowPointer struct {
	Owner         string
	OfferSequence uint32
}

func (p EscrowPointer) String() string {
	return fmt.Sprintf("%s:%d", p.Owner, p.OfferSequence)
}

// ParseEscrowPointer validates the owner address and the creating sequence.
func ParseEscrowPointer(owner, sequence string) (EscrowPointer, error) {
	owner = strings.TrimSpace(owner)
	sequence = strings.TrimSpace(sequence)
	if owner == "" {
		return EscrowPointer{}, MissingField("owner")
	}
	if !IsValidClassicAddress(owner) {
		return EscrowPointer{}, InvalidField("owner", "must be a classic ledger address")
	}
	if sequence == "" {
		return EscrowPointer{}, MissingField("offerSequence")
	}
	seq, err := strconv.ParseUint(sequence, 10, 32)
	if err != nil || seq == 0 {
		return EscrowPointer{}, InvalidField("offerSequence", "must be a positive integer")
	}
	return EscrowPointer{Owner: owner, OfferSequence: uint32(seq)}, nil
}

type EscrowRecord struct {
	Index         string
	Owner         string
	Destination   string
	Amount        Amount
	CancelAfter   *time.Time
	FinishAfter   *time.Time
	Condition     string
	PreviousTxnID string
	Raw           json.RawMessage
}

type AmountKind string

const (
	AmountNative AmountKind = "native"
	AmountIssued AmountKind = "issued"
	AmountMPT    AmountKind = "mpt"
)

const maxNativeDrops = 100_000_000_000_000_000

// Amount is a ledger amount: native drops, an issued currency or a
// multi-purpose token. Kind selects which fields are meaningful.
type Amount struct {
	Kind          AmountKind
	Drops         string
	Currency      string
	Issuer        string
	MPTIssuanceID string
	Value         string
}

func NativeAmount(drops string) Amount {
	return Amount{Kind: AmountNative, Drops: drops}
}

func IssuedAmount(currency, issuer, value string) Amount {
	return Amount{Kind: AmountIssued, Currency: currency, Issuer: issuer, Value: value}
}

func MPTAmount(issuanceID, value string) Amount {
	return Amount{Kind: AmountMPT, MPTIssuanceID: issuanceID, Value: value}
}

func (a Amount) Validate() error {
	switch a.Kind {
	case AmountNative:
		n, err := strconv.ParseUint(a.Drops, 10, 64)
		if err != nil || n == 0 || n > maxNativeDrops {
			return InvalidField("amount", "must be a positive integer number of drops")
		}
	case AmountIssued:
		if !isCurrencyCode(a.Currency) {
			return InvalidField("amount.currency", "must be a 3 character code or 40 hex characters")
		}
		if !IsValidClassicAddress(a.Issuer) {
			return InvalidField("amount.issuer", "must be a classic ledger address")
		}
		v, err := strconv.ParseFloat(a.Value, 64)
		if err != nil || v <= 0 || math.IsInf(v, 0) || math.IsNaN(v) {
			return InvalidField("amount.value", "must be a positive decimal")
		}
	case AmountMPT:
		if len(a.MPTIssuanceID) != 48 || !isHex(a.MPTIssuanceID) {
			return InvalidField("amount.mpt_issuance_id", "must be 48 hex characters")
		}
		n, err := strconv.ParseUint(a.Value, 10, 64)
		if err != nil || n == 0 {
			return InvalidField("amount.value", "must be a positive integer")
		}
	default:
		return MissingField("amount")
	}
	return nil
}

func (a Amount) String() string {
	switch a.Kind {
	case AmountNative:
		return a.Drops + " drops"
	case AmountIssued:
		return a.Value + " " + a.Currency + "." + a.Issuer
	case AmountMPT:
		return a.Value + " mpt:" + a.MPTIssuanceID
	}
	return ""
}

type tokenAmountJSON struct {
	Currency      string      `json:"currency,omitempty"`
	Issuer        string      `json:"issuer,omitempty"`
	MPTIssuanceID string      `json:"mpt_issuance_id,omitempty"`
	Value         json.Number `json:"value"`
}

// tokenAmountOut keeps value quoted, which is what the ledger expects.
type tokenAmountOut struct {
	Currency      string `json:"currency,omitempty"`
	Issuer        string `json:"issuer,omitempty"`
	MPTIssuanceID string `json:"mpt_issuance_id,omitempty"`
	Value         string `json:"value"`
}

func (a Amount) MarshalJSON() ([]byte, error) {
	switch a.Kind {
	case AmountNative:
		return json.Marshal(a.Drops)
	case AmountIssued:
		return json.Marshal(tokenAmountOut{Currency: a.Currency, Issuer: a.Issuer, Value: a.Value})
	case AmountMPT:
		return json.Marshal(tokenAmountOut{MPTIssuanceID: a.MPTIssuanceID, Value: a.Value})
	}
	return nil, fmt.Errorf("amount kind %q cannot be encoded", a.Kind)
}

// UnmarshalJSON accepts the ledger wire forms: a drops string or number,
// an issued currency object or an MPT object.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*a = Amount{}
		return nil
	}

	switch data[0] {
	case '"':
		var drops string
		if err := json.Unmarshal(data, &drops); err != nil {
			return InvalidField("amount", "must be a drops string")
		}
		*a = NativeAmount(strings.TrimSpace(drops))
		return nil
	case '{':
		var tok tokenAmountJSON
		if err := json.Unmarshal(data, &tok); err != nil {
			return InvalidField("amount", "is not a valid token amount")
		}
		switch {
		case tok.MPTIssuanceID != "":
			*a = MPTAmount(tok.MPTIssuanceID, tok.Value.String())
		case tok.Currency != "" || tok.Issuer != "":
			*a = IssuedAmount(tok.Currency, tok.Issuer, tok.Value.String())
		default:
			return InvalidField("amount", "must carry currency and issuer or mpt_issuance_id")
		}
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return InvalidField("amount", "has an unsupported shape")
		}
		*a = NativeAmount(n.String())
		return nil
	}
}

func isCurrencyCode(c string) bool {
	if len(c) == 40 {
		return isHex(c)
	}
	if len(c) != 3 || strings.EqualFold(c, "XRP") {
		return false
	}
	for _, r := range c {
		if r < '!' || r > '~' {
			return false
		}
	}
	return true
}

func isHex(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return s != ""
}
