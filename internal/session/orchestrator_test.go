package session

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olehkaliuzhnyi/focus2earn/internal/chain"
	"github.com/olehkaliuzhnyi/focus2earn/internal/chain/chaintest"
	"github.com/olehkaliuzhnyi/focus2earn/internal/login"
	"github.com/olehkaliuzhnyi/focus2earn/internal/timer"
	"github.com/olehkaliuzhnyi/focus2earn/internal/units"
	"github.com/olehkaliuzhnyi/focus2earn/internal/wallet"
	"github.com/olehkaliuzhnyi/focus2earn/pkg/models"
)

var testConfig = Config{MinimumFocusSeconds: 10}

// connectedFake returns an orchestrator attached to a fake wallet.
func connectedFake(t *testing.T) (*Orchestrator, *fakeWallet) {
	t.Helper()
	w := newFakeWallet()
	o := New(testConfig, handleFactory, nil, nil)
	o.attach(context.Background(), w)
	require.Equal(t, models.StateConnected, o.State())
	return o, w
}

// connectedChain returns an orchestrator attached to the scripted chain.
func connectedChain(t *testing.T) (*Orchestrator, *chaintest.Env) {
	t.Helper()
	env := chaintest.NewEnv(2810)
	factory := wallet.NewEVMFactory(wallet.EVMConfig{
		FocusToEarn: chaintest.FocusAddress,
		RewardToken: chaintest.TokenAddress,
		Adapter: chain.AdapterConfig{
			Confirmer:           chain.ConfirmerConfig{PollInterval: time.Millisecond},
			BroadcastMaxRetries: 1,
		},
	})
	o := New(testConfig, factory, nil, nil)
	o.attach(context.Background(), env.Connection())
	require.Equal(t, models.StateConnected, o.State())
	return o, env
}

func TestOperations_WithoutWallet(t *testing.T) {
	ctx := context.Background()
	ops := map[string]func(*Orchestrator) models.Result{
		"ClaimInitialReward":      func(o *Orchestrator) models.Result { return o.ClaimInitialReward(ctx) },
		"ClaimRewards":            func(o *Orchestrator) models.Result { return o.ClaimRewards(ctx) },
		"StartFocus":              func(o *Orchestrator) models.Result { return o.StartFocus(ctx, "100") },
		"StopFocus":               func(o *Orchestrator) models.Result { return o.StopFocus(ctx) },
		"ApproveTokenSpending":    func(o *Orchestrator) models.Result { return o.ApproveTokenSpending(ctx, "5") },
		"GetAddress":              func(o *Orchestrator) models.Result { return o.GetAddress(ctx) },
		"GetBalance":              func(o *Orchestrator) models.Result { return o.GetBalance(ctx) },
		"GetChainID":              func(o *Orchestrator) models.Result { return o.GetChainID(ctx) },
		"GetUserTokenBalance":     func(o *Orchestrator) models.Result { return o.GetUserTokenBalance(ctx) },
		"GetContractTokenBalance": func(o *Orchestrator) models.Result { return o.GetContractTokenBalance(ctx) },
		"GetTotalRewardsClaimed":  func(o *Orchestrator) models.Result { return o.GetTotalRewardsClaimed(ctx) },
		"GetRewardRatePerSecond":  func(o *Orchestrator) models.Result { return o.GetRewardRatePerSecond(ctx) },
		"GetInitialReward":        func(o *Orchestrator) models.Result { return o.GetInitialReward(ctx) },
		"GetUserDetails":          func(o *Orchestrator) models.Result { return o.GetUserDetails(ctx) },
		"Transactions":            func(o *Orchestrator) models.Result { return o.Transactions(ctx) },
		"GetUserInfo":             func(o *Orchestrator) models.Result { return o.GetUserInfo(ctx) },
		"Refresh":                 func(o *Orchestrator) models.Result { return o.Refresh(ctx) },
		"Logout":                  func(o *Orchestrator) models.Result { return o.Logout(ctx) },
	}
	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			o := New(testConfig, handleFactory, nil, nil)
			res := op(o)
			assert.False(t, res.OK())
			assert.Equal(t, models.KindPreconditionNotMet, res.Kind)
			assert.Equal(t, 1, o.Console().Len(), "exactly one log entry")
			assert.False(t, o.Loading())
			assert.Equal(t, timer.Stopped, o.timer.State())
		})
	}
}

func TestClaimInitialReward_WithoutWallet(t *testing.T) {
	o := New(testConfig, handleFactory, nil, nil)
	res := o.ClaimInitialReward(context.Background())

	assert.Equal(t, models.StatusFailure, res.Status)
	assert.Equal(t, models.KindPreconditionNotMet, res.Kind)
	entries := o.Console().Entries()
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Body, "provider not initialized yet")
}

func TestStartFocus_InvalidDeposit(t *testing.T) {
	for _, deposit := range []string{"", "0", "0.0", "-1", "abc", "1.2.3"} {
		t.Run(deposit, func(t *testing.T) {
			o, w := connectedFake(t)
			res := o.StartFocus(context.Background(), deposit)
			assert.Equal(t, models.KindParseFailure, res.Kind)
			assert.Zero(t, w.called("StartFocus"))
			assert.Equal(t, timer.Stopped, o.timer.State())
		})
	}
}

func TestApproveTokenSpending_InvalidAmount(t *testing.T) {
	o, w := connectedFake(t)
	res := o.ApproveTokenSpending(context.Background(), "-3")
	assert.Equal(t, models.KindParseFailure, res.Kind)
	assert.Zero(t, w.called("ApproveTokenSpending"))
}

func TestFocusScenario(t *testing.T) {
	o, env := connectedChain(t)
	ctx := context.Background()

	res := o.StartFocus(ctx, "100")
	require.True(t, res.OK(), res.Message)
	assert.NotEmpty(t, res.TxHash)
	assert.Equal(t, models.FocusSession{Running: true, ElapsedSeconds: 0}, o.Focus())
	assert.Equal(t, chaintest.Ether(100), env.Focus.User(env.Signer.Address()).Deposit)

	for i := 0; i < 5; i++ {
		o.timer.Tick()
	}
	assert.Equal(t, models.FocusSession{Running: true, ElapsedSeconds: 5}, o.Focus())

	res = o.StopFocus(ctx)
	require.True(t, res.OK(), res.Message)
	assert.Equal(t, models.FocusSession{Running: false, ElapsedSeconds: 0}, o.Focus())
	assert.False(t, o.Loading())
}

func TestStartFocus_FailureLeavesTimerStopped(t *testing.T) {
	o, w := connectedFake(t)
	w.fail("StartFocus", &chain.Error{Kind: models.KindChainRejected, Op: "startFocus", Err: errors.New("execution reverted")})

	res := o.StartFocus(context.Background(), "100")
	assert.Equal(t, models.KindChainRejected, res.Kind)
	assert.Contains(t, res.Message, "Error starting focus mode: ")
	assert.Equal(t, timer.Stopped, o.timer.State())
	assert.False(t, o.Loading())
}

func TestStopFocus_FailureKeepsTimerRunning(t *testing.T) {
	o, w := connectedFake(t)
	ctx := context.Background()

	require.True(t, o.StartFocus(ctx, "1").OK())
	o.timer.Tick()
	o.timer.Tick()

	w.fail("StopFocus", &chain.Error{Kind: models.KindUserRejected, Op: "stopFocus", Err: errors.New("user rejected the request")})
	res := o.StopFocus(ctx)
	assert.Equal(t, models.KindUserRejected, res.Kind)
	assert.Equal(t, models.FocusSession{Running: true, ElapsedSeconds: 2}, o.Focus())
}

func TestGetter_UpdatesOnlyOwnField(t *testing.T) {
	o, w := connectedFake(t)
	ctx := context.Background()
	before := o.Snapshot()
	require.NotNil(t, before.ContractTokenBalance)

	w.set("GetUserTokenBalance", "900.0")
	w.set("GetContractTokenBalance", "600.0")

	res := o.GetUserTokenBalance(ctx)
	require.True(t, res.OK())
	assert.Equal(t, "900.0", res.Value)

	after := o.Snapshot()
	assert.Equal(t, "900.0", *after.TokenBalance)
	assert.Equal(t, "500.0", *after.ContractTokenBalance, "other fields keep their cached value")
	assert.Equal(t, before.Cycle, after.Cycle)
}

func TestGetter_FailureIsReported(t *testing.T) {
	o, w := connectedFake(t)
	w.fail("GetContractTokenBalance", &chain.Error{Kind: models.KindNetworkFailure, Op: "balanceOf", Err: errors.New("i/o timeout")})
	logged := o.Console().Len()

	res := o.GetContractTokenBalance(context.Background())
	assert.Equal(t, models.KindNetworkFailure, res.Kind)
	assert.Equal(t, "Error getting contract token balance: balanceOf: i/o timeout", res.Message)
	assert.Equal(t, logged+1, o.Console().Len())
	assert.Equal(t, "500.0", *o.Snapshot().ContractTokenBalance)
}

func TestGetter_ValueOnlyReads(t *testing.T) {
	o, _ := connectedFake(t)
	ctx := context.Background()

	res := o.GetRewardRatePerSecond(ctx)
	require.True(t, res.OK())
	assert.Equal(t, "Reward rate per second: 0.001", res.Message)

	res = o.GetInitialReward(ctx)
	require.True(t, res.OK())
	assert.Equal(t, "Initial reward: 10.0", res.Message)

	res = o.GetUserDetails(ctx)
	require.True(t, res.OK())
	assert.IsType(t, models.UserDetails{}, res.Value)
}

func TestRefresh_BestEffort(t *testing.T) {
	o, w := connectedFake(t)
	first := o.Snapshot()
	require.NotNil(t, first.Address)
	require.NotNil(t, first.ChainID)
	assert.Equal(t, "afa", *first.ChainID)

	w.fail("GetBalance", errors.New("dial tcp: connection refused"))
	res := o.Refresh(context.Background())
	require.True(t, res.OK())

	snap := o.Snapshot()
	assert.Nil(t, snap.NativeBalance)
	assert.Equal(t, "1000.0", *snap.TokenBalance)
	assert.Equal(t, first.Cycle+1, snap.Cycle)
}

func TestClaimInitialReward_TotalRewardsMonotonic(t *testing.T) {
	o, _ := connectedChain(t)
	ctx := context.Background()

	before := o.Snapshot().TotalRewardsClaimed
	require.NotNil(t, before)

	res := o.ClaimInitialReward(ctx)
	require.True(t, res.OK(), res.Message)
	assert.Contains(t, res.Message, "Reward claimed successfully! Transaction hash: ")

	after := o.Snapshot().TotalRewardsClaimed
	require.NotNil(t, after)
	b, err := units.ParseEther(*before)
	require.NoError(t, err)
	a, err := units.ParseEther(*after)
	require.NoError(t, err)
	assert.True(t, a.Cmp(b) >= 0, "total rewards went from %s to %s", *before, *after)
	assert.Equal(t, 0, a.Cmp(new(big.Int).Add(b, chaintest.Ether(10))))

	res = o.ClaimInitialReward(ctx)
	assert.Equal(t, models.KindChainRejected, res.Kind)
	assert.Equal(t, *after, *o.Snapshot().TotalRewardsClaimed)
}

func TestWatch_Lifecycle(t *testing.T) {
	w := newFakeWallet()
	p := newFakeProvider(w)
	o := New(testConfig, handleFactory, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- o.Watch(ctx, p) }()

	p.statuses <- login.StatusNotReady
	p.statuses <- login.StatusReady
	assert.Eventually(t, func() bool { return o.State() == models.StateConnected }, time.Second, time.Millisecond)
	assert.Eventually(t, func() bool { return o.Snapshot().Address != nil }, time.Second, time.Millisecond)
	assert.Equal(t, 1, p.connectCount())

	res := o.GetUserInfo(context.Background())
	require.True(t, res.OK())
	assert.Equal(t, "Ada", res.Value.(models.UserInfo).Name)

	require.True(t, o.StartFocus(context.Background(), "1").OK())
	require.True(t, o.Logout(context.Background()).OK())
	assert.Eventually(t, func() bool { return o.State() == models.StateDisconnected }, time.Second, time.Millisecond)
	assert.Equal(t, models.AccountSnapshot{}, o.Snapshot())
	assert.Equal(t, timer.Stopped, o.timer.State())
	assert.Equal(t, models.KindPreconditionNotMet, o.GetAddress(context.Background()).Kind)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestWatch_RepeatedStatusIgnored(t *testing.T) {
	p := newFakeProvider(newFakeWallet())
	p.connectErr = errors.New("connection refused")
	o := New(testConfig, handleFactory, nil, nil)

	p.statuses <- login.StatusReady
	p.statuses <- login.StatusReady

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- o.Watch(ctx, p) }()

	assert.Eventually(t, func() bool { return p.connectCount() == 1 }, time.Second, time.Millisecond)
	assert.Eventually(t, func() bool { return o.State() == models.StateDisconnected }, time.Second, time.Millisecond)

	cancel()
	<-done
	assert.Equal(t, 1, p.connectCount())
}

func TestWatch_FactoryFailure(t *testing.T) {
	p := newFakeProvider("not a wallet")
	factory := func(handle any) (wallet.Capability, error) {
		return nil, errors.New("unsupported provider handle string")
	}
	o := New(testConfig, factory, nil, nil)

	p.statuses <- login.StatusConnected
	close(p.statuses)

	require.NoError(t, o.Watch(context.Background(), p))
	assert.Equal(t, models.StateDisconnected, o.State())
	assert.Equal(t, 1, o.Console().Len())
}

func TestWatch_NonConnectedStatusDropsWallet(t *testing.T) {
	w := newFakeWallet()
	p := newFakeProvider(w)
	o := New(testConfig, handleFactory, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- o.Watch(ctx, p) }()

	p.statuses <- login.StatusConnected
	require.Eventually(t, func() bool { return o.Snapshot().Address != nil }, time.Second, time.Millisecond)
	require.True(t, o.StartFocus(context.Background(), "1").OK())

	p.statuses <- login.StatusConnecting
	assert.Eventually(t, func() bool { return o.State() == models.StateConnecting }, time.Second, time.Millisecond)
	assert.Equal(t, models.KindPreconditionNotMet, o.GetAddress(context.Background()).Kind)
	assert.Equal(t, models.KindPreconditionNotMet, o.ClaimRewards(context.Background()).Kind)
	assert.Equal(t, models.AccountSnapshot{}, o.Snapshot())
	assert.Equal(t, timer.Running, o.timer.State())

	cancel()
	<-done
}

func TestTransition_ReadyAfterConnectedDropsWallet(t *testing.T) {
	p := newFakeProvider(newFakeWallet())
	o, _ := connectedFake(t)
	ctx := context.Background()
	require.True(t, o.StartFocus(ctx, "1").OK())

	o.transition(ctx, p, login.StatusReady)

	assert.Equal(t, 1, p.connectCount())
	assert.Equal(t, models.StateConnecting, o.State())
	assert.Equal(t, models.AccountSnapshot{}, o.Snapshot())
	assert.Equal(t, models.KindPreconditionNotMet, o.StartFocus(ctx, "1").Kind)
	assert.Equal(t, timer.Running, o.timer.State())
}

func TestClaims_LoadingWhileInFlight(t *testing.T) {
	claims := map[string]func(*Orchestrator) models.Result{
		"ClaimRewards":       func(o *Orchestrator) models.Result { return o.ClaimRewards(context.Background()) },
		"ClaimInitialReward": func(o *Orchestrator) models.Result { return o.ClaimInitialReward(context.Background()) },
	}
	outcomes := map[string]error{
		"confirmed": nil,
		"reverted":  &chain.Error{Kind: models.KindChainRejected, Op: "claim", Err: errors.New("execution reverted")},
	}
	for method, claim := range claims {
		for outcome, err := range outcomes {
			t.Run(method+"/"+outcome, func(t *testing.T) {
				o, w := connectedFake(t)
				if err != nil {
					w.fail(method, err)
				}
				release := w.hold(method)
				defer release()

				done := make(chan models.Result, 1)
				go func() { done <- claim(o) }()

				require.Eventually(t, func() bool { return w.called(method) == 1 }, time.Second, time.Millisecond)
				assert.True(t, o.Loading())

				release()
				res := <-done
				assert.Equal(t, err == nil, res.OK(), res.Message)
				assert.False(t, o.Loading())
			})
		}
	}
}

func TestFocusTimer_DrivenBeforeRefresh(t *testing.T) {
	o, w := connectedFake(t)
	ctx := context.Background()
	require.Equal(t, 1, w.called("GetBalance"))

	release := w.hold("GetBalance")
	done := make(chan models.Result, 1)
	go func() { done <- o.StartFocus(ctx, "1") }()

	require.Eventually(t, func() bool { return w.called("GetBalance") == 2 }, time.Second, time.Millisecond)
	assert.True(t, o.Focus().Running)
	assert.Len(t, done, 0)
	release()
	require.True(t, (<-done).OK())

	release = w.hold("GetBalance")
	defer release()
	go func() { done <- o.StopFocus(ctx) }()

	require.Eventually(t, func() bool { return w.called("GetBalance") == 3 }, time.Second, time.Millisecond)
	assert.False(t, o.Focus().Running)
	assert.Len(t, done, 0)
	release()
	require.True(t, (<-done).OK())
}

func TestMutation_TeardownInFlightSkipsRefresh(t *testing.T) {
	o, w := connectedFake(t)
	release := w.hold("ClaimRewards")
	defer release()

	done := make(chan models.Result, 1)
	go func() { done <- o.ClaimRewards(context.Background()) }()
	require.Eventually(t, func() bool { return w.called("ClaimRewards") == 1 }, time.Second, time.Millisecond)

	o.teardown()
	before := o.Console().Len()
	release()
	res := <-done

	require.True(t, res.OK(), res.Message)
	assert.Equal(t, before+1, o.Console().Len(), "only the receipt is logged")
	assert.NotContains(t, o.Console().Text(), msgNoWallet)
	assert.Equal(t, 1, w.called("GetAddress"))
}

func TestStartFocus_TeardownInFlightLeavesTimerStopped(t *testing.T) {
	o, w := connectedFake(t)
	release := w.hold("StartFocus")
	defer release()

	done := make(chan models.Result, 1)
	go func() { done <- o.StartFocus(context.Background(), "1") }()
	require.Eventually(t, func() bool { return w.called("StartFocus") == 1 }, time.Second, time.Millisecond)

	o.teardown()
	release()

	require.True(t, (<-done).OK())
	assert.Equal(t, timer.Stopped, o.timer.State())
}

func TestTransactions_ListsSubmitted(t *testing.T) {
	o, _ := connectedChain(t)
	ctx := context.Background()
	require.True(t, o.ClaimInitialReward(ctx).OK())

	res := o.Transactions(ctx)
	require.True(t, res.OK(), res.Message)
	txs := res.Value.([]*models.Transaction)
	require.Len(t, txs, 1)
	assert.Equal(t, chain.MethodClaimInitialReward, txs[0].Label)
	assert.Equal(t, models.TxMined, txs[0].Status)
}

func TestTransactions_WithoutJournal(t *testing.T) {
	o, _ := connectedFake(t)

	res := o.Transactions(context.Background())
	require.True(t, res.OK())
	assert.Empty(t, res.Value)
}
