package xrpl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/srgjo27/escrow_booking/internal/core/domain"
)

type submitResult struct {
	EngineResult        string `json:"engine_result"`
	EngineResultMessage string `json:"engine_result_message"`
	TxJSON              struct {
		Hash string `json:"hash"`
	} `json:"tx_json"`
}

func (c *Client) Submit(ctx context.Context, txBlob string) (domain.SubmitResult, error) {
	var res submitResult
	if err := c.call(ctx, "submit", map[string]any{"tx_blob": txBlob}, &res); err != nil {
		return domain.SubmitResult{}, err
	}
	return domain.SubmitResult{
		EngineResult:        res.EngineResult,
		EngineResultMessage: res.EngineResultMessage,
		Hash:                res.TxJSON.Hash,
	}, nil
}

type txFields struct {
	Hash            string `json:"hash"`
	TransactionType string `json:"TransactionType"`
	Account         string `json:"Account"`
	Destination     string `json:"Destination"`
	Sequence        uint32 `json:"Sequence"`
}

type txResult struct {
	txFields
	TxJSON      *txFields `json:"tx_json"`
	Validated   bool      `json:"validated"`
	LedgerIndex uint32    `json:"ledger_index"`
	Meta        struct {
		TransactionResult string `json:"TransactionResult"`
	} `json:"meta"`
}

// Transaction looks a transaction up by hash. Both the flat and the tx_json
// response layouts are understood.
func (c *Client) Transaction(ctx context.Context, hash string) (domain.LedgerResult, error) {
	var raw json.RawMessage
	err := c.call(ctx, "tx", map[string]any{"transaction": hash}, &raw)
	if err != nil {
		var rpcErr *RPCError
		if errors.As(err, &rpcErr) && rpcErr.Code == "txnNotFound" {
			return domain.LedgerResult{}, fmt.Errorf("%s: %w", hash, domain.ErrTxNotFound)
		}
		return domain.LedgerResult{}, err
	}

	var res txResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return domain.LedgerResult{}, fmt.Errorf("tx: decode result: %w", err)
	}
	fields := res.txFields
	if res.TxJSON != nil {
		fields = *res.TxJSON
		if fields.Hash == "" {
			fields.Hash = res.Hash
		}
	}
	if fields.Hash == "" {
		fields.Hash = hash
	}

	return domain.LedgerResult{
		Hash:            fields.Hash,
		TransactionType: fields.TransactionType,
		Account:         fields.Account,
		Destination:     fields.Destination,
		Sequence:        fields.Sequence,
		Validated:       res.Validated,
		ResultCode:      res.Meta.TransactionResult,
		LedgerIndex:     res.LedgerIndex,
		Raw:             raw,
	}, nil
}

// WaitForValidation polls until the transaction is in a validated ledger or
// the validated ledger passes lastLedgerSequence.
func (c *Client) WaitForValidation(ctx context.Context, hash string, lastLedgerSequence uint32) (domain.LedgerResult, error) {
	for {
		res, err := c.Transaction(ctx, hash)
		switch {
		case err == nil && res.Validated:
			return res, nil
		case err != nil && !errors.Is(err, domain.ErrTxNotFound):
			return domain.LedgerResult{}, err
		}

		if lastLedgerSequence > 0 {
			validated, err := c.ValidatedLedgerIndex(ctx)
			if err != nil {
				return domain.LedgerResult{}, err
			}
			if validated > lastLedgerSequence {
				return domain.LedgerResult{}, &domain.LedgerError{
					Op:   "wait for validation",
					Code: "tefMAX_LEDGER",
					Err:  fmt.Errorf("transaction %s not validated by ledger %d", hash, lastLedgerSequence),
				}
			}
		}

		select {
		case <-ctx.Done():
			return domain.LedgerResult{}, ctx.Err()
		case <-time.After(c.cfg.PollInterval):
		}
	}
}

func (c *Client) CurrentLedgerIndex(ctx context.Context) (uint32, error) {
	var res struct {
		LedgerCurrentIndex uint32 `json:"ledger_current_index"`
	}
	if err := c.call(ctx, "ledger_current", nil, &res); err != nil {
		return 0, err
	}
	return res.LedgerCurrentIndex, nil
}

func (c *Client) ValidatedLedgerIndex(ctx context.Context) (uint32, error) {
	var res struct {
		LedgerIndex uint32 `json:"ledger_index"`
	}
	if err := c.call(ctx, "ledger", map[string]any{"ledger_index": "validated"}, &res); err != nil {
		return 0, err
	}
	return res.LedgerIndex, nil
}

// LedgerEntryEscrow returns the escrow object identified by owner and the
// sequence of its EscrowCreate.
func (c *Client) LedgerEntryEscrow(ctx context.Context, owner string, sequence uint32) (json.RawMessage, error) {
	var res struct {
		Index string          `json:"index"`
		Node  json.RawMessage `json:"node"`
	}
	params := map[string]any{
		"escrow":       map[string]any{"owner": owner, "seq": sequence},
		"ledger_index": "validated",
	}
	if err := c.call(ctx, "ledger_entry", params, &res); err != nil {
		return nil, err
	}
	if len(res.Node) == 0 {
		return nil, domain.ErrEscrowNotFound
	}
	return res.Node, nil
}

// AccountObjects pages through every object owned by account.
func (c *Client) AccountObjects(ctx context.Context, account string) ([]json.RawMessage, error) {
	var (
		objects []json.RawMessage
		marker  json.RawMessage
	)
	for {
		params := map[string]any{
			"account":      account,
			"ledger_index": "validated",
			"limit":        accountObjectsLimit,
		}
		if len(marker) > 0 {
			params["marker"] = marker
		}

		var res struct {
			AccountObjects []json.RawMessage `json:"account_objects"`
			Marker         json.RawMessage   `json:"marker"`
		}
		if err := c.call(ctx, "account_objects", params, &res); err != nil {
			return nil, err
		}
		objects = append(objects, res.AccountObjects...)

		if len(res.Marker) == 0 || string(res.Marker) == "null" {
			return objects, nil
		}
		marker = res.Marker
	}
}
