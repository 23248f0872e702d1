package chain

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Focus contract methods.
const (
	MethodStartFocus          = "startFocus"
	MethodStopFocus           = "stopFocus"
	MethodClaimRewards        = "claimRewards"
	MethodClaimInitialReward  = "claimInitialReward"
	MethodUsers               = "users"
	MethodTotalRewardsClaimed = "totalRewardsClaimed"
	MethodRewardRatePerSecond = "rewardRatePerSecond"
	MethodInitialReward       = "initialReward"
)

// ERC-20 methods.
const (
	MethodBalanceOf = "balanceOf"
	MethodApprove   = "approve"
	MethodAllowance = "allowance"
)

const focusToEarnABIJSON = `[
  {"type":"function","name":"startFocus","stateMutability":"nonpayable",
   "inputs":[{"name":"amount","type":"uint256"},{"name":"minimumTime","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"stopFocus","stateMutability":"nonpayable","inputs":[],"outputs":[]},
  {"type":"function","name":"claimRewards","stateMutability":"nonpayable","inputs":[],"outputs":[]},
  {"type":"function","name":"claimInitialReward","stateMutability":"nonpayable","inputs":[],"outputs":[]},
  {"type":"function","name":"users","stateMutability":"view",
   "inputs":[{"name":"","type":"address"}],
   "outputs":[
     {"name":"deposit","type":"uint256"},
     {"name":"startTime","type":"uint256"},
     {"name":"unclaimedRewards","type":"uint256"},
     {"name":"totalClaimedRewards","type":"uint256"},
     {"name":"minimumTimeToFocus","type":"uint256"}]},
  {"type":"function","name":"totalRewardsClaimed","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"rewardRatePerSecond","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"initialReward","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]}
]`

const erc20ABIJSON = `[
  {"type":"function","name":"balanceOf","stateMutability":"view",
   "inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"approve","stateMutability":"nonpayable",
   "inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"allowance","stateMutability":"view",
   "inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"decimals","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]}
]`

// Parsed contract descriptors.
var (
	FocusToEarnABI = mustParseABI(focusToEarnABIJSON)
	ERC20ABI       = mustParseABI(erc20ABIJSON)
)

func mustParseABI(raw string) *abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic("chain: invalid embedded abi: " + err.Error())
	}
	return &parsed
}
