package domain

import (
	"encoding/hex"
	"encoding/json"
	"strings"
)

const ResultSuccess = "tesSUCCESS"

const (
	TxPayment      = "Payment"
	TxEscrowCreate = "EscrowCreate"
	TxEscrowFinish = "EscrowFinish"
	TxEscrowCancel = "EscrowCancel"
)

// LedgerTx is the unsigned JSON form of a ledger transaction.
type LedgerTx struct {
	TransactionType    string        `json:"TransactionType"`
	Account            string        `json:"Account"`
	Destination        string        `json:"Destination,omitempty"`
	Amount             *Amount       `json:"Amount,omitempty"`
	Owner              string        `json:"Owner,omitempty"`
	OfferSequence      uint32        `json:"OfferSequence,omitempty"`
	CancelAfter        uint32        `json:"CancelAfter,omitempty"`
	FinishAfter        uint32        `json:"FinishAfter,omitempty"`
	Condition          string        `json:"Condition,omitempty"`
	Fulfillment        string        `json:"Fulfillment,omitempty"`
	LastLedgerSequence uint32        `json:"LastLedgerSequence,omitempty"`
	Memos              []MemoWrapper `json:"Memos,omitempty"`
}

type MemoWrapper struct {
	Memo Memo `json:"Memo"`
}

type Memo struct {
	MemoType string `json:"MemoType,omitempty"`
	MemoData string `json:"MemoData,omitempty"`
}

// NewJSONMemo hex-encodes v as an application/json memo.
func NewJSONMemo(v any) (MemoWrapper, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return MemoWrapper{}, err
	}
	return MemoWrapper{Memo: Memo{
		MemoType: strings.ToUpper(hex.EncodeToString([]byte("application/json"))),
		MemoData: strings.ToUpper(hex.EncodeToString(data)),
	}}, nil
}

// SignedTx is a transaction blob ready for submission.
type SignedTx struct {
	Blob     string
	Hash     string
	Sequence uint32
}

type SubmitResult struct {
	EngineResult        string
	EngineResultMessage string
	Hash                string
}

// Rejected reports preliminary results that can never succeed for this blob.
func (r SubmitResult) Rejected() bool {
	for _, prefix := range []string{"tem", "tef", "tel"} {
		if strings.HasPrefix(r.EngineResult, prefix) {
			return true
		}
	}
	return false
}

// LedgerResult is a transaction as reported by the ledger.
type LedgerResult struct {
	Hash            string
	TransactionType string
	Account         string
	Destination     string
	Sequence        uint32
	Validated       bool
	ResultCode      string
	LedgerIndex     uint32
	Raw             json.RawMessage
}

func (r LedgerResult) Succeeded() bool {
	return r.ResultCode == ResultSuccess
}

// ValidateLedgerEndpoint checks the node URL uses the websocket scheme.
func ValidateLedgerEndpoint(endpoint string) error {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return MissingField("XRPL_RPC")
	}
	if !strings.HasPrefix(endpoint, "ws://") && !strings.HasPrefix(endpoint, "wss://") {
		return InvalidField("XRPL_RPC", "must start with ws:// or wss://")
	}
	return nil
}

// IsTxHash reports whether s looks like a 256-bit hex transaction hash.
func IsTxHash(s string) bool {
	return len(s) == 64 && isHex(s)
}
