package chain

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// ConfirmerConfig holds configuration for receipt polling.
type ConfirmerConfig struct {
	PollInterval      time.Duration
	ConfirmationDepth uint64 // blocks on top of the inclusion block; 0 = inclusion is enough
}

// Confirmer waits for submitted transactions to be included in a block.
// It has no timeout of its own; the caller's context is the only bound.
type Confirmer struct {
	reader ReceiptReader
	cfg    ConfirmerConfig
	logger *slog.Logger
}

func NewConfirmer(reader ReceiptReader, cfg ConfirmerConfig) *Confirmer {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	return &Confirmer{
		reader: reader,
		cfg:    cfg,
		logger: slog.Default().With("component", "confirmer"),
	}
}

// Wait polls for the receipt of hash until it is included and deep enough.
// Transient RPC errors are logged and polling continues.
func (c *Confirmer) Wait(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.poll(ctx, hash)
		if err != nil {
			c.logger.Warn("receipt poll failed", "tx_hash", hash.Hex(), "error", err)
		}
		if receipt != nil {
			c.logger.Info("transaction confirmed",
				"tx_hash", hash.Hex(),
				"block", receipt.BlockNumber,
				"status", receipt.Status,
			)
			return receipt, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// poll returns the receipt once it has the configured depth, nil while pending.
func (c *Confirmer) poll(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	receipt, err := c.reader.TransactionReceipt(ctx, hash)
	if errors.Is(err, ethereum.NotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if c.cfg.ConfirmationDepth == 0 || receipt.BlockNumber == nil {
		return receipt, nil
	}

	head, err := c.reader.BlockNumber(ctx)
	if err != nil {
		return nil, err
	}
	included := receipt.BlockNumber.Uint64()
	if head >= included+c.cfg.ConfirmationDepth {
		return receipt, nil
	}
	c.logger.Debug("waiting for confirmations",
		"tx_hash", hash.Hex(),
		"block", included,
		"head", head,
		"depth", c.cfg.ConfirmationDepth,
	)
	return nil, nil
}
