package wallet

import (
	"context"

	"github.com/olehkaliuzhnyi/focus2earn/pkg/models"
)

// Capability is the chain-agnostic operation set the session depends on.
// One instance is bound to one live connection.
type Capability interface {
	GetAddress(ctx context.Context) (string, error)
	// GetBalance returns the native balance as a decimal string.
	GetBalance(ctx context.Context) (string, error)
	GetChainID(ctx context.Context) (string, error)

	// StartFocus deposits depositAmount tokens and opens a focus session.
	StartFocus(ctx context.Context, depositAmount string, minimumSeconds int64) (Receipt, error)
	StopFocus(ctx context.Context) (Receipt, error)
	ClaimRewards(ctx context.Context) (Receipt, error)
	ClaimInitialReward(ctx context.Context) (Receipt, error)
	// ApproveTokenSpending lets the focus contract pull amount tokens from the account.
	ApproveTokenSpending(ctx context.Context, amount string) (Receipt, error)

	GetUserTokenBalance(ctx context.Context) (string, error)
	GetContractTokenBalance(ctx context.Context) (string, error)
	GetUserDetails(ctx context.Context) (*models.UserDetails, error)
	GetTotalRewardsClaimed(ctx context.Context) (string, error)
	GetRewardRatePerSecond(ctx context.Context) (string, error)
	GetInitialReward(ctx context.Context) (string, error)
}

// Journaled is implemented by façades that record the transactions they submit.
type Journaled interface {
	Journal() ([]*models.Transaction, error)
}

// Receipt is the confirmed outcome of a mutating operation.
type Receipt struct {
	TxHash  string
	Message string
}

// Factory builds a Capability from the opaque handle of a login provider.
type Factory func(handle any) (Capability, error)
