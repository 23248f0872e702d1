package chaintest

import (
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Token is a scripted ERC-20.
type Token struct {
	mu         sync.Mutex
	balances   map[common.Address]*big.Int
	allowances map[common.Address]map[common.Address]*big.Int
}

func NewToken() *Token {
	return &Token{
		balances:   make(map[common.Address]*big.Int),
		allowances: make(map[common.Address]map[common.Address]*big.Int),
	}
}

// Mint credits amount to holder.
func (t *Token) Mint(holder common.Address, amount *big.Int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.balances[holder] = new(big.Int).Add(t.balanceLocked(holder), amount)
}

// BalanceOf returns the balance of holder.
func (t *Token) BalanceOf(holder common.Address) *big.Int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return new(big.Int).Set(t.balanceLocked(holder))
}

// Allowance returns what spender may pull from owner.
func (t *Token) Allowance(owner, spender common.Address) *big.Int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return new(big.Int).Set(t.allowanceLocked(owner, spender))
}

func (t *Token) Call(method string, from common.Address, args []any) ([]any, error) {
	switch method {
	case "balanceOf":
		return []any{t.BalanceOf(args[0].(common.Address))}, nil
	case "allowance":
		return []any{t.Allowance(args[0].(common.Address), args[1].(common.Address))}, nil
	case "approve":
		t.mu.Lock()
		defer t.mu.Unlock()
		spender := args[0].(common.Address)
		if t.allowances[from] == nil {
			t.allowances[from] = make(map[common.Address]*big.Int)
		}
		t.allowances[from][spender] = new(big.Int).Set(args[1].(*big.Int))
		return []any{true}, nil
	case "decimals":
		return []any{uint8(18)}, nil
	}
	return nil, fmt.Errorf("unknown method %s", method)
}

// Transfer moves amount between holders.
func (t *Token) Transfer(from, to common.Address, amount *big.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	bal := t.balanceLocked(from)
	if bal.Cmp(amount) < 0 {
		return errors.New("ERC20: transfer amount exceeds balance")
	}
	t.balances[from] = new(big.Int).Sub(bal, amount)
	t.balances[to] = new(big.Int).Add(t.balanceLocked(to), amount)
	return nil
}

// spend consumes allowance of spender over owner.
func (t *Token) spend(owner, spender common.Address, amount *big.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	allowed := t.allowanceLocked(owner, spender)
	if allowed.Cmp(amount) < 0 {
		return errors.New("ERC20: insufficient allowance")
	}
	t.allowances[owner][spender] = new(big.Int).Sub(allowed, amount)
	return nil
}

func (t *Token) balanceLocked(holder common.Address) *big.Int {
	if b, ok := t.balances[holder]; ok {
		return b
	}
	return new(big.Int)
}

func (t *Token) allowanceLocked(owner, spender common.Address) *big.Int {
	if m, ok := t.allowances[owner]; ok {
		if a, ok := m[spender]; ok {
			return a
		}
	}
	return new(big.Int)
}

// FocusUser mirrors the users(address) record.
type FocusUser struct {
	Deposit            *big.Int
	StartTime          int64
	UnclaimedRewards   *big.Int
	TotalClaimed       *big.Int
	MinimumTimeToFocus *big.Int
	InitialClaimed     bool
}

// FocusToEarn is a scripted focus-to-earn contract holding its rewards in Token.
type FocusToEarn struct {
	mu sync.Mutex

	Address common.Address
	Token   *Token
	// Now is the contract clock in unix seconds.
	Now func() int64
	// RequireAllowance makes startFocus pull the deposit through transferFrom semantics.
	RequireAllowance bool

	RewardRatePerSecond *big.Int
	InitialReward       *big.Int

	users        map[common.Address]*FocusUser
	totalClaimed *big.Int
}

func NewFocusToEarn(addr common.Address, token *Token) *FocusToEarn {
	return &FocusToEarn{
		Address:             addr,
		Token:               token,
		Now:                 func() int64 { return time.Now().Unix() },
		RewardRatePerSecond: big.NewInt(1_000_000_000_000_000), // 0.001 token/s
		InitialReward:       new(big.Int).Mul(big.NewInt(10), big.NewInt(1_000_000_000_000_000_000)),
		users:               make(map[common.Address]*FocusUser),
		totalClaimed:        new(big.Int),
	}
}

// User returns a copy of the record for addr.
func (f *FocusToEarn) User(addr common.Address) FocusUser {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.user(addr)
}

func (f *FocusToEarn) user(addr common.Address) *FocusUser {
	u, ok := f.users[addr]
	if !ok {
		u = &FocusUser{
			Deposit:            new(big.Int),
			UnclaimedRewards:   new(big.Int),
			TotalClaimed:       new(big.Int),
			MinimumTimeToFocus: new(big.Int),
		}
		f.users[addr] = u
	}
	return u
}

func (f *FocusToEarn) Call(method string, from common.Address, args []any) ([]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch method {
	case "users":
		u := f.user(args[0].(common.Address))
		return []any{
			new(big.Int).Set(u.Deposit),
			big.NewInt(u.StartTime),
			new(big.Int).Set(u.UnclaimedRewards),
			new(big.Int).Set(u.TotalClaimed),
			new(big.Int).Set(u.MinimumTimeToFocus),
		}, nil
	case "totalRewardsClaimed":
		return []any{new(big.Int).Set(f.totalClaimed)}, nil
	case "rewardRatePerSecond":
		return []any{new(big.Int).Set(f.RewardRatePerSecond)}, nil
	case "initialReward":
		return []any{new(big.Int).Set(f.InitialReward)}, nil
	case "startFocus":
		return nil, f.startFocus(from, args[0].(*big.Int), args[1].(*big.Int))
	case "stopFocus":
		return nil, f.stopFocus(from)
	case "claimRewards":
		return nil, f.claimRewards(from)
	case "claimInitialReward":
		return nil, f.claimInitialReward(from)
	}
	return nil, fmt.Errorf("unknown method %s", method)
}

func (f *FocusToEarn) startFocus(from common.Address, amount, minTime *big.Int) error {
	if amount.Sign() <= 0 {
		return errors.New("deposit must be greater than zero")
	}
	u := f.user(from)
	if u.StartTime != 0 {
		return errors.New("focus session already active")
	}
	if f.RequireAllowance {
		if err := f.Token.spend(from, f.Address, amount); err != nil {
			return err
		}
	}
	if err := f.Token.Transfer(from, f.Address, amount); err != nil {
		return err
	}
	u.Deposit = new(big.Int).Set(amount)
	u.StartTime = f.Now()
	u.MinimumTimeToFocus = new(big.Int).Set(minTime)
	return nil
}

func (f *FocusToEarn) stopFocus(from common.Address) error {
	u := f.user(from)
	if u.StartTime == 0 {
		return errors.New("no active focus session")
	}
	elapsed := f.Now() - u.StartTime
	if elapsed >= u.MinimumTimeToFocus.Int64() {
		reward := new(big.Int).Mul(big.NewInt(elapsed), f.RewardRatePerSecond)
		u.UnclaimedRewards = new(big.Int).Add(u.UnclaimedRewards, reward)
	}
	if err := f.Token.Transfer(f.Address, from, u.Deposit); err != nil {
		return err
	}
	u.Deposit = new(big.Int)
	u.StartTime = 0
	return nil
}

func (f *FocusToEarn) claimRewards(from common.Address) error {
	u := f.user(from)
	if u.UnclaimedRewards.Sign() == 0 {
		return errors.New("no rewards to claim")
	}
	if err := f.Token.Transfer(f.Address, from, u.UnclaimedRewards); err != nil {
		return err
	}
	u.TotalClaimed = new(big.Int).Add(u.TotalClaimed, u.UnclaimedRewards)
	f.totalClaimed = new(big.Int).Add(f.totalClaimed, u.UnclaimedRewards)
	u.UnclaimedRewards = new(big.Int)
	return nil
}

func (f *FocusToEarn) claimInitialReward(from common.Address) error {
	u := f.user(from)
	if u.InitialClaimed {
		return errors.New("initial reward already claimed")
	}
	if err := f.Token.Transfer(f.Address, from, f.InitialReward); err != nil {
		return err
	}
	u.InitialClaimed = true
	u.TotalClaimed = new(big.Int).Add(u.TotalClaimed, f.InitialReward)
	f.totalClaimed = new(big.Int).Add(f.totalClaimed, f.InitialReward)
	return nil
}
