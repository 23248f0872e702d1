package wallet

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/olehkaliuzhnyi/focus2earn/internal/chain"
	"github.com/olehkaliuzhnyi/focus2earn/internal/units"
	"github.com/olehkaliuzhnyi/focus2earn/pkg/models"
)

// EVMConfig holds the contract addresses and adapter settings of the EVM variant.
type EVMConfig struct {
	FocusToEarn common.Address
	RewardToken common.Address
	Adapter     chain.AdapterConfig
}

// EVM implements Capability against the focus-to-earn and reward token contracts.
type EVM struct {
	adapter *chain.Adapter
	focus   common.Address
	token   common.Address
}

// NewEVMFactory returns a Factory accepting *chain.Connection handles.
func NewEVMFactory(cfg EVMConfig) Factory {
	return func(handle any) (Capability, error) {
		conn, ok := handle.(*chain.Connection)
		if !ok {
			return nil, fmt.Errorf("unsupported provider handle %T", handle)
		}
		return NewEVM(conn, cfg)
	}
}

// NewEVM binds the capability to a connection.
func NewEVM(conn *chain.Connection, cfg EVMConfig) (*EVM, error) {
	adapter, err := chain.NewAdapter(conn, cfg.Adapter)
	if err != nil {
		return nil, fmt.Errorf("chain adapter: %w", err)
	}
	return &EVM{adapter: adapter, focus: cfg.FocusToEarn, token: cfg.RewardToken}, nil
}

// Journal returns the transactions submitted on this connection, oldest first.
func (w *EVM) Journal() ([]*models.Transaction, error) {
	return w.adapter.Journal()
}

func (w *EVM) GetAddress(ctx context.Context) (string, error) {
	return w.adapter.Account().Hex(), nil
}

func (w *EVM) GetBalance(ctx context.Context) (string, error) {
	wei, err := w.adapter.ReadNativeBalance(ctx, w.adapter.Account())
	if err != nil {
		return "", err
	}
	return units.FormatEther(wei), nil
}

// GetChainID returns the chain id as lowercase hex without prefix.
func (w *EVM) GetChainID(ctx context.Context) (string, error) {
	id, err := w.adapter.ChainID(ctx)
	if err != nil {
		return "", err
	}
	return id.Text(16), nil
}

func (w *EVM) StartFocus(ctx context.Context, depositAmount string, minimumSeconds int64) (Receipt, error) {
	deposit, err := units.ParseEther(depositAmount)
	if err != nil {
		return Receipt{}, &chain.Error{Kind: models.KindParseFailure, Op: chain.MethodStartFocus, Err: err}
	}
	res, err := w.transact(ctx, chain.MethodStartFocus, deposit, big.NewInt(minimumSeconds))
	if err != nil {
		return Receipt{}, err
	}
	hash := res.TxHash.Hex()
	return Receipt{
		TxHash:  hash,
		Message: fmt.Sprintf("Focus session started with %s tokens. Transaction hash: %s", depositAmount, hash),
	}, nil
}

func (w *EVM) StopFocus(ctx context.Context) (Receipt, error) {
	res, err := w.transact(ctx, chain.MethodStopFocus)
	if err != nil {
		return Receipt{}, err
	}
	hash := res.TxHash.Hex()
	return Receipt{TxHash: hash, Message: "Focus session stopped. Transaction hash: " + hash}, nil
}

func (w *EVM) ClaimRewards(ctx context.Context) (Receipt, error) {
	return w.claim(ctx, chain.MethodClaimRewards)
}

func (w *EVM) ClaimInitialReward(ctx context.Context) (Receipt, error) {
	return w.claim(ctx, chain.MethodClaimInitialReward)
}

func (w *EVM) ApproveTokenSpending(ctx context.Context, amount string) (Receipt, error) {
	value, err := units.ParseEther(amount)
	if err != nil {
		return Receipt{}, &chain.Error{Kind: models.KindParseFailure, Op: chain.MethodApprove, Err: err}
	}
	res, err := w.adapter.CallContract(ctx, chain.Call{
		Contract: w.token,
		ABI:      chain.ERC20ABI,
		Method:   chain.MethodApprove,
		Args:     []any{w.focus, value},
		Mutating: true,
	})
	if err != nil {
		return Receipt{}, err
	}
	hash := res.TxHash.Hex()
	return Receipt{
		TxHash:  hash,
		Message: fmt.Sprintf("Approved %s tokens for the focus contract. Transaction hash: %s", amount, hash),
	}, nil
}

func (w *EVM) GetUserTokenBalance(ctx context.Context) (string, error) {
	bal, err := w.adapter.ReadTokenBalance(ctx, w.token, w.adapter.Account())
	if err != nil {
		return "", err
	}
	return units.FormatEther(bal), nil
}

func (w *EVM) GetContractTokenBalance(ctx context.Context) (string, error) {
	bal, err := w.adapter.ReadTokenBalance(ctx, w.token, w.focus)
	if err != nil {
		return "", err
	}
	return units.FormatEther(bal), nil
}

func (w *EVM) GetUserDetails(ctx context.Context) (*models.UserDetails, error) {
	values, err := w.read(ctx, chain.MethodUsers, w.adapter.Account())
	if err != nil {
		return nil, err
	}
	fields := make([]string, 5)
	var startTime *int64
	for i := range fields {
		v, err := chain.BigOut(values, i, chain.MethodUsers)
		if err != nil {
			return nil, err
		}
		switch i {
		case 1:
			if v.Sign() > 0 {
				ts := v.Int64()
				startTime = &ts
			}
		case 4:
			fields[i] = v.String() // seconds, not a token amount
		default:
			fields[i] = units.FormatEther(v)
		}
	}
	return &models.UserDetails{
		Deposit:             fields[0],
		StartTime:           startTime,
		UnclaimedRewards:    fields[2],
		TotalClaimedRewards: fields[3],
		MinimumTimeToFocus:  fields[4],
	}, nil
}

func (w *EVM) GetTotalRewardsClaimed(ctx context.Context) (string, error) {
	return w.readAmount(ctx, chain.MethodTotalRewardsClaimed)
}

func (w *EVM) GetRewardRatePerSecond(ctx context.Context) (string, error) {
	return w.readAmount(ctx, chain.MethodRewardRatePerSecond)
}

func (w *EVM) GetInitialReward(ctx context.Context) (string, error) {
	return w.readAmount(ctx, chain.MethodInitialReward)
}

func (w *EVM) claim(ctx context.Context, method string) (Receipt, error) {
	res, err := w.transact(ctx, method)
	if err != nil {
		return Receipt{}, err
	}
	hash := res.TxHash.Hex()
	return Receipt{TxHash: hash, Message: "Reward claimed successfully! Transaction hash: " + hash}, nil
}

func (w *EVM) transact(ctx context.Context, method string, args ...any) (*chain.CallResult, error) {
	return w.adapter.CallContract(ctx, chain.Call{
		Contract: w.focus,
		ABI:      chain.FocusToEarnABI,
		Method:   method,
		Args:     args,
		Mutating: true,
	})
}

func (w *EVM) read(ctx context.Context, method string, args ...any) ([]any, error) {
	res, err := w.adapter.CallContract(ctx, chain.Call{
		Contract: w.focus,
		ABI:      chain.FocusToEarnABI,
		Method:   method,
		Args:     args,
	})
	if err != nil {
		return nil, err
	}
	return res.Values, nil
}

func (w *EVM) readAmount(ctx context.Context, method string) (string, error) {
	values, err := w.read(ctx, method)
	if err != nil {
		return "", err
	}
	v, err := chain.BigOut(values, 0, method)
	if err != nil {
		return "", err
	}
	return units.FormatEther(v), nil
}
