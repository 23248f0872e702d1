package tx

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/olehkaliuzhnyi/focus2earn/internal/storage"
	"github.com/olehkaliuzhnyi/focus2earn/pkg/models"
)

// Backend is the node surface needed to build and broadcast a transaction.
type Backend interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// Signer signs transactions on behalf of the connected account.
// A custodial signer holds the key locally; an external wallet would prompt the user.
type Signer interface {
	Address() common.Address
	SignTx(ctx context.Context, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)
}

// BuilderConfig holds configurable parameters for the transaction builder.
type BuilderConfig struct {
	ChainID      *big.Int
	MaxRetries   int
	RetryBackoff time.Duration
}

// Builder constructs, signs and broadcasts contract transactions.
// Handles nonce reservation, gas estimation, signing and broadcast.
type Builder struct {
	backend Backend
	signer  Signer
	nonces  storage.NonceTracker
	journal storage.TxStore
	logger  *slog.Logger
	cfg     BuilderConfig
}

// NewBuilder creates a new transaction builder with the given config and stores.
func NewBuilder(cfg BuilderConfig, backend Backend, signer Signer, nonces storage.NonceTracker, journal storage.TxStore) *Builder {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = time.Second
	}
	return &Builder{
		backend: backend,
		signer:  signer,
		nonces:  nonces,
		journal: journal,
		logger:  slog.Default().With("component", "tx_builder"),
		cfg:     cfg,
	}
}

// SendRequest represents a contract call to submit.
type SendRequest struct {
	Label string // contract method, kept in the journal
	To    common.Address
	Value *big.Int
	Data  []byte
}

// Send builds, signs and broadcasts a transaction and journals it as pending.
func (b *Builder) Send(ctx context.Context, req SendRequest) (*types.Transaction, error) {
	from := b.signer.Address()
	value := req.Value
	if value == nil {
		value = new(big.Int)
	}

	gasPrice, err := b.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("suggest gas price: %w", err)
	}

	// Estimation runs the call against current state, so reverts surface here
	// before anything is signed.
	gas, err := b.backend.EstimateGas(ctx, ethereum.CallMsg{
		From:  from,
		To:    &req.To,
		Value: value,
		Data:  req.Data,
	})
	if err != nil {
		return nil, fmt.Errorf("estimate gas: %w", err)
	}

	chainNonce, err := b.backend.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("pending nonce: %w", err)
	}
	nonce, err := b.nonces.Reserve(from.Hex(), chainNonce)
	if err != nil {
		return nil, fmt.Errorf("nonce tracker: %w", err)
	}

	unsigned := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gas,
		To:       &req.To,
		Value:    value,
		Data:     req.Data,
	})

	b.logger.Info("building transaction",
		"label", req.Label,
		"from", from.Hex(),
		"to", req.To.Hex(),
		"nonce", nonce,
		"gas", gas,
		"gas_price", gasPrice,
	)

	signed, err := b.signer.SignTx(ctx, unsigned, b.cfg.ChainID)
	if err != nil {
		b.release(from, nonce)
		return nil, fmt.Errorf("sign: %w", err)
	}

	if err := b.broadcastWithRetry(ctx, signed); err != nil {
		b.release(from, nonce)
		return nil, fmt.Errorf("broadcast: %w", err)
	}

	record := &models.Transaction{
		Hash:        signed.Hash().Hex(),
		Label:       req.Label,
		From:        from.Hex(),
		To:          req.To.Hex(),
		Nonce:       nonce,
		Value:       value.String(),
		Status:      models.TxPending,
		SubmittedAt: time.Now().UTC(),
	}
	if err := b.journal.Put(record); err != nil {
		b.logger.Warn("journal put failed", "tx_hash", record.Hash, "error", err)
	}

	return signed, nil
}

// Settle records the final status of a previously sent transaction.
func (b *Builder) Settle(hash common.Hash, status models.TxStatus, blockNumber uint64) {
	if err := b.journal.SetStatus(hash.Hex(), status, blockNumber); err != nil {
		b.logger.Warn("journal update failed", "tx_hash", hash.Hex(), "error", err)
	}
}

// Journal returns the submitted transactions, oldest first.
func (b *Builder) Journal() ([]*models.Transaction, error) {
	return b.journal.List()
}

func (b *Builder) release(from common.Address, nonce uint64) {
	if err := b.nonces.Release(from.Hex(), nonce); err != nil {
		b.logger.Debug("nonce release skipped", "nonce", nonce, "error", err)
	}
}

// broadcastWithRetry resends the same signed bytes on transport failures.
// The hash is fixed by the signature, so a resend can never create a second transaction.
func (b *Builder) broadcastWithRetry(ctx context.Context, tx *types.Transaction) error {
	var lastErr error

	for attempt := 1; attempt <= b.cfg.MaxRetries; attempt++ {
		err := b.backend.SendTransaction(ctx, tx)
		if err == nil || alreadyKnown(err) {
			b.logger.Info("transaction broadcast successful",
				"tx_hash", tx.Hash().Hex(),
				"attempt", attempt,
			)
			return nil
		}

		lastErr = err
		if !retryable(err) {
			return err
		}
		b.logger.Warn("broadcast attempt failed",
			"attempt", attempt,
			"max_retries", b.cfg.MaxRetries,
			"error", err,
		)
		if attempt == b.cfg.MaxRetries {
			break
		}

		// Exponential backoff
		select {
		case <-time.After(time.Duration(attempt*attempt) * b.cfg.RetryBackoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return fmt.Errorf("all %d broadcast attempts failed: %w", b.cfg.MaxRetries, lastErr)
}

// retryable reports whether err is a transport failure. A JSON-RPC error
// response means the node saw the transaction and gave a definitive answer.
func retryable(err error) bool {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return false
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

func alreadyKnown(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "already known") || strings.Contains(msg, "known transaction")
}
