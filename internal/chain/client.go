package chain

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/olehkaliuzhnyi/focus2earn/internal/tx"
)

// Backend is the RPC surface used by the adapter.
// *ethclient.Client satisfies it.
type Backend interface {
	tx.Backend
	ReceiptReader

	ChainID(ctx context.Context) (*big.Int, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// ReceiptReader is what the confirmer polls.
type ReceiptReader interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

// Connection is the provider handle produced by a successful login:
// an RPC backend plus the account that signs for it.
type Connection struct {
	Backend Backend
	Signer  tx.Signer
	ChainID *big.Int
}

// RPCConfig holds RPC connection settings.
type RPCConfig struct {
	URL           string
	ChainID       int64 // expected chain; 0 skips the check
	MaxRetries    int
	RetryInterval time.Duration
}

// Dial connects to the configured RPC endpoint and verifies the chain id.
func Dial(ctx context.Context, cfg RPCConfig, logger *slog.Logger) (*ethclient.Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "chain_client")
	logger.Info("connecting to RPC", "url", cfg.URL)

	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			logger.Info("retrying connection", "attempt", attempt)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(cfg.RetryInterval):
			}
		}

		rpcClient, err := rpc.DialContext(ctx, cfg.URL)
		if err != nil {
			logger.Warn("connection failed", "error", err, "attempt", attempt)
			lastErr = err
			continue
		}
		client := ethclient.NewClient(rpcClient)

		chainID, err := client.ChainID(ctx)
		if err != nil {
			logger.Warn("chain ID check failed", "error", err)
			client.Close()
			lastErr = err
			continue
		}
		if cfg.ChainID != 0 && chainID.Int64() != cfg.ChainID {
			client.Close()
			return nil, fmt.Errorf("rpc %s serves chain %s, configured for %d", cfg.URL, chainID, cfg.ChainID)
		}

		logger.Info("connected", "chain_id", chainID.String())
		return client, nil
	}

	return nil, fmt.Errorf("failed to connect after %d attempts: %w", cfg.MaxRetries+1, lastErr)
}
