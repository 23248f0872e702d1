// Package chaintest provides an in-memory EVM backend with scripted contracts
// for tests of the chain adapter and the layers above it.
package chaintest

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// Contract is a scripted contract. Returning an error reverts the call.
type Contract interface {
	Call(method string, from common.Address, args []any) ([]any, error)
}

type deployed struct {
	abi  *abi.ABI
	impl Contract
}

// Backend is an in-memory chain: every accepted transaction is mined into
// its own block immediately.
type Backend struct {
	mu        sync.Mutex
	chainID   *big.Int
	head      uint64
	balances  map[common.Address]*big.Int
	contracts map[common.Address]deployed
	nonces    map[common.Address]uint64
	receipts  map[common.Hash]*types.Receipt
	polls     map[common.Hash]int

	// PendingPolls is how many receipt lookups report NotFound before the receipt appears.
	PendingPolls int
	// Failure hooks; nil means healthy.
	CallErr     error
	BalanceErr  error
	ChainIDErr  error
	EstimateErr error
	SendErr     error
	ReceiptErr  error
}

func NewBackend(chainID int64) *Backend {
	return &Backend{
		chainID:   big.NewInt(chainID),
		balances:  make(map[common.Address]*big.Int),
		contracts: make(map[common.Address]deployed),
		nonces:    make(map[common.Address]uint64),
		receipts:  make(map[common.Hash]*types.Receipt),
		polls:     make(map[common.Hash]int),
	}
}

// Deploy registers a scripted contract at addr.
func (b *Backend) Deploy(addr common.Address, contractABI *abi.ABI, impl Contract) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.contracts[addr] = deployed{abi: contractABI, impl: impl}
}

// SetBalance sets the native balance of addr.
func (b *Backend) SetBalance(addr common.Address, wei *big.Int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.balances[addr] = new(big.Int).Set(wei)
}

// Head returns the latest block number.
func (b *Backend) Head() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.head
}

// MineEmpty advances the chain by n blocks.
func (b *Backend) MineEmpty(n uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.head += n
}

// Sent returns the number of transactions accepted so far.
func (b *Backend) Sent() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.receipts)
}

func (b *Backend) ChainID(ctx context.Context) (*big.Int, error) {
	if b.ChainIDErr != nil {
		return nil, b.ChainIDErr
	}
	return new(big.Int).Set(b.chainID), nil
}

func (b *Backend) BlockNumber(ctx context.Context) (uint64, error) {
	return b.Head(), nil
}

func (b *Backend) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	if b.BalanceErr != nil {
		return nil, b.BalanceErr
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if bal, ok := b.balances[account]; ok {
		return new(big.Int).Set(bal), nil
	}
	return new(big.Int), nil
}

func (b *Backend) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	if b.CallErr != nil {
		return nil, b.CallErr
	}
	if call.To == nil {
		return nil, errors.New("contract creation not supported")
	}
	b.mu.Lock()
	c, ok := b.contracts[*call.To]
	b.mu.Unlock()
	if !ok {
		return nil, nil
	}
	method, args, err := decode(c.abi, call.Data)
	if err != nil {
		return nil, err
	}
	if !method.IsConstant() {
		return nil, fmt.Errorf("eth_call to mutating method %s not supported", method.Name)
	}
	out, err := c.impl.Call(method.Name, call.From, args)
	if err != nil {
		return nil, fmt.Errorf("execution reverted: %w", err)
	}
	return method.Outputs.Pack(out...)
}

func (b *Backend) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.nonces[account], nil
}

func (b *Backend) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

func (b *Backend) EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error) {
	if b.EstimateErr != nil {
		return 0, b.EstimateErr
	}
	return 100_000, nil
}

// SendTransaction executes the call and mines it into a new block.
// A contract error produces a receipt with failed status.
func (b *Backend) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	if b.SendErr != nil {
		return b.SendErr
	}
	from, err := types.Sender(types.LatestSignerForChainID(b.chainID), tx)
	if err != nil {
		return fmt.Errorf("invalid sender: %w", err)
	}

	b.mu.Lock()
	if tx.Nonce() != b.nonces[from] {
		want := b.nonces[from]
		b.mu.Unlock()
		return fmt.Errorf("invalid nonce: have %d, want %d", tx.Nonce(), want)
	}
	b.nonces[from]++
	b.head++
	block := b.head
	c, ok := b.contracts[*tx.To()]
	b.mu.Unlock()

	status := types.ReceiptStatusSuccessful
	if ok {
		method, args, err := decode(c.abi, tx.Data())
		if err != nil {
			return err
		}
		if _, err := c.impl.Call(method.Name, from, args); err != nil {
			status = types.ReceiptStatusFailed
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.receipts[tx.Hash()] = &types.Receipt{
		Status:      status,
		TxHash:      tx.Hash(),
		BlockNumber: new(big.Int).SetUint64(block),
		GasUsed:     tx.Gas(),
	}
	return nil
}

func (b *Backend) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	if b.ReceiptErr != nil {
		return nil, b.ReceiptErr
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	r, ok := b.receipts[txHash]
	if !ok {
		return nil, ethereum.NotFound
	}
	if b.polls[txHash] < b.PendingPolls {
		b.polls[txHash]++
		return nil, ethereum.NotFound
	}
	return r, nil
}

func decode(contractABI *abi.ABI, data []byte) (*abi.Method, []any, error) {
	if len(data) < 4 {
		return nil, nil, errors.New("calldata too short")
	}
	method, err := contractABI.MethodById(data[:4])
	if err != nil {
		return nil, nil, err
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, nil, err
	}
	return method, args, nil
}

// Signer signs with an in-memory key.
type Signer struct {
	Key *ecdsa.PrivateKey
	// Reject makes every signature request fail as if the user declined it.
	Reject bool
}

func NewSigner() *Signer {
	key, err := crypto.GenerateKey()
	if err != nil {
		panic(err)
	}
	return &Signer{Key: key}
}

func (s *Signer) Address() common.Address {
	return crypto.PubkeyToAddress(s.Key.PublicKey)
}

func (s *Signer) SignTx(ctx context.Context, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	if s.Reject {
		return nil, errors.New("user rejected the request")
	}
	return types.SignTx(tx, types.LatestSignerForChainID(chainID), s.Key)
}
