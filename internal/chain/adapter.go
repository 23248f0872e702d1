// Package chain wraps a connected EVM account into typed contract operations.
package chain

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/olehkaliuzhnyi/focus2earn/internal/storage"
	"github.com/olehkaliuzhnyi/focus2earn/internal/tx"
	"github.com/olehkaliuzhnyi/focus2earn/pkg/models"
)

// AdapterConfig configures the mutating path of the adapter.
type AdapterConfig struct {
	Confirmer           ConfirmerConfig
	BroadcastMaxRetries int
}

// Call describes a contract invocation.
type Call struct {
	Contract common.Address
	ABI      *abi.ABI
	Method   string
	Args     []any
	Mutating bool
	Value    *big.Int // native value sent with a mutating call
}

// CallResult holds decoded outputs of a read, or the receipt of a mutating call.
type CallResult struct {
	Values  []any
	TxHash  common.Hash
	Receipt *types.Receipt
}

// Adapter exposes balance reads and contract calls for one connected account.
type Adapter struct {
	backend   Backend
	signer    tx.Signer
	builder   *tx.Builder
	confirmer *Confirmer
	logger    *slog.Logger
}

// NewAdapter binds the adapter to a connection.
func NewAdapter(conn *Connection, cfg AdapterConfig) (*Adapter, error) {
	if conn == nil || conn.Backend == nil || conn.Signer == nil {
		return nil, fmt.Errorf("incomplete connection")
	}
	if conn.ChainID == nil {
		return nil, fmt.Errorf("connection has no chain id")
	}
	builder := tx.NewBuilder(
		tx.BuilderConfig{ChainID: conn.ChainID, MaxRetries: cfg.BroadcastMaxRetries},
		conn.Backend,
		conn.Signer,
		storage.NewMemoryNonceTracker(),
		storage.NewMemoryTxStore(),
	)
	return &Adapter{
		backend:   conn.Backend,
		signer:    conn.Signer,
		builder:   builder,
		confirmer: NewConfirmer(conn.Backend, cfg.Confirmer),
		logger:    slog.Default().With("component", "chain_adapter", "account", conn.Signer.Address().Hex()),
	}, nil
}

// Account returns the connected account address.
func (a *Adapter) Account() common.Address {
	return a.signer.Address()
}

// ChainID asks the node for its chain id.
func (a *Adapter) ChainID(ctx context.Context) (*big.Int, error) {
	id, err := a.backend.ChainID(ctx)
	if err != nil {
		return nil, Classify("chainId", err)
	}
	return id, nil
}

// ReadNativeBalance returns the latest native balance of address in wei.
func (a *Adapter) ReadNativeBalance(ctx context.Context, address common.Address) (*big.Int, error) {
	bal, err := a.backend.BalanceAt(ctx, address, nil)
	if err != nil {
		return nil, Classify("getBalance", err)
	}
	return bal, nil
}

// ReadTokenBalance returns the ERC-20 balance of owner in base units.
func (a *Adapter) ReadTokenBalance(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	res, err := a.CallContract(ctx, Call{
		Contract: token,
		ABI:      ERC20ABI,
		Method:   MethodBalanceOf,
		Args:     []any{owner},
	})
	if err != nil {
		return nil, err
	}
	return BigOut(res.Values, 0, MethodBalanceOf)
}

// CallContract runs a read-only call, or signs, submits and waits for a mutating one.
func (a *Adapter) CallContract(ctx context.Context, call Call) (*CallResult, error) {
	data, err := call.ABI.Pack(call.Method, call.Args...)
	if err != nil {
		return nil, &Error{Kind: models.KindParseFailure, Op: call.Method, Err: fmt.Errorf("pack: %w", err)}
	}
	if call.Mutating {
		return a.transact(ctx, call, data)
	}

	out, err := a.backend.CallContract(ctx, ethereum.CallMsg{
		From: a.signer.Address(),
		To:   &call.Contract,
		Data: data,
	}, nil)
	if err != nil {
		return nil, Classify(call.Method, err)
	}
	values, err := call.ABI.Unpack(call.Method, out)
	if err != nil {
		return nil, &Error{Kind: models.KindParseFailure, Op: call.Method, Err: fmt.Errorf("unpack: %w", err)}
	}
	return &CallResult{Values: values}, nil
}

func (a *Adapter) transact(ctx context.Context, call Call, data []byte) (*CallResult, error) {
	signed, err := a.builder.Send(ctx, tx.SendRequest{
		Label: call.Method,
		To:    call.Contract,
		Value: call.Value,
		Data:  data,
	})
	if err != nil {
		return nil, Classify(call.Method, err)
	}

	hash := signed.Hash()
	a.logger.Info("transaction submitted", "method", call.Method, "tx_hash", hash.Hex())

	receipt, err := a.confirmer.Wait(ctx, hash)
	if err != nil {
		return &CallResult{TxHash: hash}, Classify(call.Method, err)
	}

	result := &CallResult{TxHash: hash, Receipt: receipt}
	block := receipt.BlockNumber.Uint64()
	if receipt.Status == types.ReceiptStatusFailed {
		a.builder.Settle(hash, models.TxReverted, block)
		return result, &Error{
			Kind: models.KindChainRejected,
			Op:   call.Method,
			Err:  fmt.Errorf("transaction %s reverted in block %d", hash.Hex(), block),
		}
	}
	a.builder.Settle(hash, models.TxMined, block)
	return result, nil
}

// Journal returns the transactions submitted through this adapter.
func (a *Adapter) Journal() ([]*models.Transaction, error) {
	return a.builder.Journal()
}

// BigOut extracts a uint output at index i.
func BigOut(values []any, i int, method string) (*big.Int, error) {
	if i >= len(values) {
		return nil, &Error{Kind: models.KindParseFailure, Op: method, Err: fmt.Errorf("missing output %d", i)}
	}
	v, ok := values[i].(*big.Int)
	if !ok {
		return nil, &Error{Kind: models.KindParseFailure, Op: method, Err: fmt.Errorf("output %d is %T, want *big.Int", i, values[i])}
	}
	return v, nil
}
