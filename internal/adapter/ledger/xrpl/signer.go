package xrpl

import (
	"context"

	"github.com/srgjo27/escrow_booking/internal/core/domain"
)

// NodeSigner signs through the node's wallet_propose and sign commands. The
// node must allow them, which public servers usually do not.
type NodeSigner struct {
	client *Client
}

func NewNodeSigner(client *Client) *NodeSigner {
	return &NodeSigner{client: client}
}

func (s *NodeSigner) Address(ctx context.Context, credential string) (string, error) {
	var res struct {
		AccountID string `json:"account_id"`
	}
	if err := s.client.call(ctx, "wallet_propose", map[string]any{"seed": credential}, &res); err != nil {
		return "", err
	}
	return res.AccountID, nil
}

func (s *NodeSigner) Sign(ctx context.Context, tx domain.LedgerTx, credential string) (domain.SignedTx, error) {
	var res struct {
		TxBlob string `json:"tx_blob"`
		TxJSON struct {
			Hash     string `json:"hash"`
			Sequence uint32 `json:"Sequence"`
		} `json:"tx_json"`
	}
	params := map[string]any{
		"tx_json": tx,
		"secret":  credential,
	}
	if err := s.client.call(ctx, "sign", params, &res); err != nil {
		return domain.SignedTx{}, err
	}
	return domain.SignedTx{
		Blob:     res.TxBlob,
		Hash:     res.TxJSON.Hash,
		Sequence: res.TxJSON.Sequence,
	}, nil
}
