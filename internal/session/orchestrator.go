// Package session owns the wallet connection lifecycle and sequences the
// focus-to-earn operations on top of it.
//
// Every operation returns a models.Result; failures never escape as errors.
// The orchestrator guards its own fields but does not serialize operations,
// so two concurrent StartFocus calls can both submit.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/olehkaliuzhnyi/focus2earn/internal/chain"
	"github.com/olehkaliuzhnyi/focus2earn/internal/console"
	"github.com/olehkaliuzhnyi/focus2earn/internal/login"
	"github.com/olehkaliuzhnyi/focus2earn/internal/timer"
	"github.com/olehkaliuzhnyi/focus2earn/internal/units"
	"github.com/olehkaliuzhnyi/focus2earn/internal/wallet"
	"github.com/olehkaliuzhnyi/focus2earn/pkg/models"
)

const (
	msgNoWallet   = "provider not initialized yet"
	msgNoProvider = "login provider not initialized yet"
)

// Config holds orchestrator settings.
type Config struct {
	// MinimumFocusSeconds is passed to every startFocus call.
	MinimumFocusSeconds int64
}

// Orchestrator is the session core. Create one per login lifecycle.
type Orchestrator struct {
	cfg     Config
	factory wallet.Factory
	timer   *timer.Timer
	console *console.Console
	logger  *slog.Logger

	mu       sync.RWMutex
	state    models.ConnectionState
	provider login.Provider
	wallet   wallet.Capability
	snapshot models.AccountSnapshot
	loading  int
	connErr  error
	// changed is closed and replaced on every state or snapshot change.
	changed chan struct{}
}

// New creates a disconnected orchestrator. A nil timer or console is replaced
// with a manually ticked timer and an unmirrored console.
func New(cfg Config, factory wallet.Factory, tm *timer.Timer, sink *console.Console) *Orchestrator {
	if tm == nil {
		tm = timer.New(0)
	}
	if sink == nil {
		sink = console.New(nil)
	}
	return &Orchestrator{
		cfg:     cfg,
		factory: factory,
		timer:   tm,
		console: sink,
		logger:  slog.Default().With("component", "session"),
		state:   models.StateDisconnected,
		changed: make(chan struct{}),
	}
}

// State returns the connection state.
func (o *Orchestrator) State() models.ConnectionState {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state
}

// Snapshot returns a copy of the cached account figures.
func (o *Orchestrator) Snapshot() models.AccountSnapshot {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.snapshot
}

// Focus returns the local focus clock.
func (o *Orchestrator) Focus() models.FocusSession {
	return o.timer.Session()
}

// Loading reports whether any operation is in flight.
func (o *Orchestrator) Loading() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.loading > 0
}

func (o *Orchestrator) Console() *console.Console {
	return o.console
}

// WaitConnected blocks until the connection is up and its first snapshot is
// loaded, the provider reports a failure, or ctx is done.
func (o *Orchestrator) WaitConnected(ctx context.Context) error {
	for {
		o.mu.RLock()
		if o.state == models.StateConnected && o.snapshot.Cycle > 0 {
			o.mu.RUnlock()
			return nil
		}
		if o.connErr != nil {
			err := o.connErr
			o.mu.RUnlock()
			return err
		}
		changed := o.changed
		o.mu.RUnlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-changed:
		}
	}
}

func (o *Orchestrator) notifyLocked() {
	close(o.changed)
	o.changed = make(chan struct{})
}

// Watch consumes the provider's status stream and drives the connection
// state. Only status changes are acted on; repeats are ignored. It returns
// when the stream closes or ctx is done.
func (o *Orchestrator) Watch(ctx context.Context, p login.Provider) error {
	o.mu.Lock()
	o.provider = p
	o.mu.Unlock()

	var last login.Status
	statuses := p.Statuses()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case s, ok := <-statuses:
			if !ok {
				return nil
			}
			if s == last {
				continue
			}
			last = s
			o.logger.Debug("provider status", "status", string(s))
			o.transition(ctx, p, s)
		}
	}
}

func (o *Orchestrator) transition(ctx context.Context, p login.Provider, s login.Status) {
	switch s {
	case login.StatusReady:
		o.detach()
		if err := p.Connect(ctx); err != nil {
			o.logger.Error("connect failed", "error", err)
			o.setConnErr(err)
		}
	case login.StatusConnecting:
		o.detach()
	case login.StatusConnected:
		o.attach(ctx, p.Handle())
	case login.StatusErrored:
		o.teardown()
		o.setConnErr(errors.New("login provider reported an error"))
	default:
		o.teardown()
	}
}

// attach builds the façade for a fresh connection and loads the snapshot.
func (o *Orchestrator) attach(ctx context.Context, handle any) {
	w, err := o.factory(handle)
	if err != nil {
		o.logger.Error("build wallet", "error", err)
		o.console.Log(err.Error())
		o.teardown()
		o.setConnErr(err)
		return
	}

	o.mu.Lock()
	o.wallet = w
	o.snapshot = models.AccountSnapshot{}
	o.state = models.StateConnected
	o.connErr = nil
	o.notifyLocked()
	o.mu.Unlock()

	o.logger.Info("connected")
	o.Refresh(ctx)
}

func (o *Orchestrator) teardown() {
	o.mu.Lock()
	wasConnected := o.wallet != nil
	o.wallet = nil
	o.snapshot = models.AccountSnapshot{}
	o.state = models.StateDisconnected
	o.notifyLocked()
	o.mu.Unlock()

	o.timer.Stop()
	if wasConnected {
		o.logger.Info("disconnected")
	}
}

// detach drops the façade and snapshot while a connection is being
// (re)established. The focus clock keeps running.
func (o *Orchestrator) detach() {
	o.mu.Lock()
	wasConnected := o.wallet != nil
	o.wallet = nil
	o.snapshot = models.AccountSnapshot{}
	o.state = models.StateConnecting
	o.connErr = nil
	o.notifyLocked()
	o.mu.Unlock()

	if wasConnected {
		o.logger.Info("reconnecting")
	}
}

func (o *Orchestrator) setConnErr(err error) {
	o.mu.Lock()
	o.connErr = err
	o.notifyLocked()
	o.mu.Unlock()
}

// Logout asks the provider to end the session. Teardown follows from the
// disconnected status it reports.
func (o *Orchestrator) Logout(ctx context.Context) models.Result {
	o.mu.RLock()
	p := o.provider
	o.mu.RUnlock()
	if p == nil {
		return o.precondition(msgNoProvider)
	}
	if err := p.Logout(ctx); err != nil {
		o.console.Log(err.Error())
		return models.Failure(models.KindNetworkFailure, err.Error())
	}
	o.console.Log("logged out")
	return models.Success("logged out", "")
}

// Refresh re-reads every snapshot field in parallel. Failed reads leave
// their field nil; the new snapshot replaces the old one in one step.
func (o *Orchestrator) Refresh(ctx context.Context) models.Result {
	w := o.capability()
	if w == nil {
		return o.precondition(msgNoWallet)
	}

	var next models.AccountSnapshot
	reads := []struct {
		name  string
		read  func(context.Context) (string, error)
		field **string
	}{
		{"address", w.GetAddress, &next.Address},
		{"native_balance", w.GetBalance, &next.NativeBalance},
		{"chain_id", w.GetChainID, &next.ChainID},
		{"token_balance", w.GetUserTokenBalance, &next.TokenBalance},
		{"contract_token_balance", w.GetContractTokenBalance, &next.ContractTokenBalance},
		{"total_rewards_claimed", w.GetTotalRewardsClaimed, &next.TotalRewardsClaimed},
	}

	var g errgroup.Group
	for _, r := range reads {
		g.Go(func() error {
			v, err := r.read(ctx)
			if err != nil {
				o.logger.Warn("refresh read failed", "field", r.name, "error", err)
				return nil
			}
			*r.field = models.Ptr(v)
			return nil
		})
	}
	_ = g.Wait()

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.wallet != w {
		return models.Failure(models.KindPreconditionNotMet, "connection changed during refresh")
	}
	next.Cycle = o.snapshot.Cycle + 1
	o.snapshot = next
	o.notifyLocked()
	return models.Success("snapshot refreshed", "").WithValue(next)
}

// GetUserInfo returns the login profile.
func (o *Orchestrator) GetUserInfo(ctx context.Context) models.Result {
	o.mu.RLock()
	p := o.provider
	o.mu.RUnlock()
	if p == nil {
		return o.precondition(msgNoProvider)
	}
	info := p.UserInfo()
	o.console.Log(info)
	return models.Success("user info", "").WithValue(info)
}

func (o *Orchestrator) GetAddress(ctx context.Context) models.Result {
	return o.read(ctx, "address", wallet.Capability.GetAddress,
		func(s *models.AccountSnapshot, v *string) { s.Address = v })
}

func (o *Orchestrator) GetBalance(ctx context.Context) models.Result {
	return o.read(ctx, "balance", wallet.Capability.GetBalance,
		func(s *models.AccountSnapshot, v *string) { s.NativeBalance = v })
}

func (o *Orchestrator) GetChainID(ctx context.Context) models.Result {
	return o.read(ctx, "chain id", wallet.Capability.GetChainID,
		func(s *models.AccountSnapshot, v *string) { s.ChainID = v })
}

func (o *Orchestrator) GetUserTokenBalance(ctx context.Context) models.Result {
	return o.read(ctx, "user token balance", wallet.Capability.GetUserTokenBalance,
		func(s *models.AccountSnapshot, v *string) { s.TokenBalance = v })
}

func (o *Orchestrator) GetContractTokenBalance(ctx context.Context) models.Result {
	return o.read(ctx, "contract token balance", wallet.Capability.GetContractTokenBalance,
		func(s *models.AccountSnapshot, v *string) { s.ContractTokenBalance = v })
}

func (o *Orchestrator) GetTotalRewardsClaimed(ctx context.Context) models.Result {
	return o.read(ctx, "total rewards claimed", wallet.Capability.GetTotalRewardsClaimed,
		func(s *models.AccountSnapshot, v *string) { s.TotalRewardsClaimed = v })
}

func (o *Orchestrator) GetRewardRatePerSecond(ctx context.Context) models.Result {
	res := o.read(ctx, "reward rate per second", wallet.Capability.GetRewardRatePerSecond, nil)
	if res.OK() {
		res.Message = "Reward rate per second: " + res.Message
	}
	return res
}

func (o *Orchestrator) GetInitialReward(ctx context.Context) models.Result {
	res := o.read(ctx, "initial reward", wallet.Capability.GetInitialReward, nil)
	if res.OK() {
		res.Message = "Initial reward: " + res.Message
	}
	return res
}

// GetUserDetails reads the on-chain session record of the account.
func (o *Orchestrator) GetUserDetails(ctx context.Context) models.Result {
	w := o.capability()
	if w == nil {
		return o.precondition(msgNoWallet)
	}
	defer o.begin()()

	details, err := w.GetUserDetails(ctx)
	if err != nil {
		return o.fail("Error getting user details", err)
	}
	o.console.Log("User details: ", details)
	return models.Success("user details", "").WithValue(*details)
}

// Transactions lists the transactions submitted on the current connection.
func (o *Orchestrator) Transactions(ctx context.Context) models.Result {
	w := o.capability()
	if w == nil {
		return o.precondition(msgNoWallet)
	}
	j, ok := w.(wallet.Journaled)
	if !ok {
		return models.Success("0 transactions", "").WithValue([]*models.Transaction{})
	}
	txs, err := j.Journal()
	if err != nil {
		return o.fail("Error reading transactions", err)
	}
	return models.Success(fmt.Sprintf("%d transactions", len(txs)), "").WithValue(txs)
}

// ClaimInitialReward claims the one-time onboarding reward.
func (o *Orchestrator) ClaimInitialReward(ctx context.Context) models.Result {
	return o.mutate(ctx, "Claiming tokens...", "Error claiming initial reward",
		func(w wallet.Capability) (wallet.Receipt, error) { return w.ClaimInitialReward(ctx) }, nil)
}

// ClaimRewards claims the rewards accrued by finished focus sessions.
func (o *Orchestrator) ClaimRewards(ctx context.Context) models.Result {
	return o.mutate(ctx, "Claiming tokens...", "Error claiming tokens",
		func(w wallet.Capability) (wallet.Receipt, error) { return w.ClaimRewards(ctx) }, nil)
}

// ApproveTokenSpending allows the focus contract to pull amount tokens.
func (o *Orchestrator) ApproveTokenSpending(ctx context.Context, amount string) models.Result {
	if o.capability() == nil {
		return o.precondition(msgNoWallet)
	}
	if _, err := units.ParsePositive(amount, units.EtherDecimals); err != nil {
		return o.invalidAmount(amount, err)
	}
	return o.mutate(ctx, "Approving tokens...", "Error approving tokens",
		func(w wallet.Capability) (wallet.Receipt, error) { return w.ApproveTokenSpending(ctx, amount) }, nil)
}

// StartFocus deposits and starts the local focus clock as soon as the deposit
// is mined, before the snapshot is refreshed. The clock is left untouched on
// failure.
func (o *Orchestrator) StartFocus(ctx context.Context, deposit string) models.Result {
	if o.capability() == nil {
		return o.precondition(msgNoWallet)
	}
	if _, err := units.ParsePositive(deposit, units.EtherDecimals); err != nil {
		return o.invalidAmount(deposit, err)
	}
	return o.mutate(ctx, "Starting focus mode...", "Error starting focus mode",
		func(w wallet.Capability) (wallet.Receipt, error) {
			return w.StartFocus(ctx, deposit, o.cfg.MinimumFocusSeconds)
		}, o.timer.Start)
}

// StopFocus ends the session. On failure the clock keeps running.
func (o *Orchestrator) StopFocus(ctx context.Context) models.Result {
	return o.mutate(ctx, "Stopping focus mode...", "Error stopping focus mode",
		func(w wallet.Capability) (wallet.Receipt, error) { return w.StopFocus(ctx) }, o.timer.Stop)
}

func (o *Orchestrator) capability() wallet.Capability {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.wallet
}

// begin raises the loading flag; the returned func lowers it.
func (o *Orchestrator) begin() func() {
	o.mu.Lock()
	o.loading++
	o.mu.Unlock()
	return func() {
		o.mu.Lock()
		o.loading--
		o.mu.Unlock()
	}
}

func (o *Orchestrator) precondition(msg string) models.Result {
	o.console.Log(msg)
	return models.Failure(models.KindPreconditionNotMet, msg)
}

func (o *Orchestrator) invalidAmount(amount string, err error) models.Result {
	msg := fmt.Sprintf("invalid amount %q: %v", amount, err)
	o.console.Log(msg)
	return models.Failure(models.KindParseFailure, msg)
}

func (o *Orchestrator) fail(prefix string, err error) models.Result {
	msg := fmt.Sprintf("%s: %s", prefix, err.Error())
	o.console.Log(msg)
	return models.Failure(chain.KindOf(err), msg)
}

func (o *Orchestrator) read(
	ctx context.Context,
	label string,
	call func(wallet.Capability, context.Context) (string, error),
	store func(*models.AccountSnapshot, *string),
) models.Result {
	w := o.capability()
	if w == nil {
		return o.precondition(msgNoWallet)
	}
	defer o.begin()()

	v, err := call(w, ctx)
	if err != nil {
		return o.fail("Error getting "+label, err)
	}
	if store != nil {
		o.mu.Lock()
		if o.wallet == w {
			store(&o.snapshot, models.Ptr(v))
		}
		o.mu.Unlock()
	}
	o.console.Log(v)
	return models.Success(v, "").WithValue(v)
}

func (o *Orchestrator) mutate(
	ctx context.Context,
	progress, failPrefix string,
	call func(wallet.Capability) (wallet.Receipt, error),
	onConfirm func(),
) models.Result {
	w := o.capability()
	if w == nil {
		return o.precondition(msgNoWallet)
	}
	defer o.begin()()

	o.console.Log(progress)
	receipt, err := call(w)
	if err != nil {
		return o.fail(failPrefix, err)
	}
	o.console.Log(receipt.Message)
	o.logger.Info("transaction confirmed", "tx_hash", receipt.TxHash)

	// w was dropped while the call was in flight
	if o.capability() != w {
		return models.Success(receipt.Message, receipt.TxHash)
	}
	if onConfirm != nil {
		onConfirm()
	}
	o.Refresh(ctx)
	return models.Success(receipt.Message, receipt.TxHash)
}
