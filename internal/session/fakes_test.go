package session

import (
	"context"
	"sync"

	"github.com/olehkaliuzhnyi/focus2earn/internal/login"
	"github.com/olehkaliuzhnyi/focus2earn/internal/wallet"
	"github.com/olehkaliuzhnyi/focus2earn/pkg/models"
)

// fakeWallet answers from fields; errs keyed by method name override a call.
// A call to a gated method blocks until its gate is closed.
type fakeWallet struct {
	mu     sync.Mutex
	values map[string]string
	errs   map[string]error
	gates  map[string]chan struct{}
	calls  []string
}

func newFakeWallet() *fakeWallet {
	return &fakeWallet{
		values: map[string]string{
			"GetAddress":              "0x9858EfFD232B4033E47d90003D41EC34EcaEda94",
			"GetBalance":              "1.0",
			"GetChainID":              "afa",
			"GetUserTokenBalance":     "1000.0",
			"GetContractTokenBalance": "500.0",
			"GetTotalRewardsClaimed":  "0.0",
			"GetRewardRatePerSecond":  "0.001",
			"GetInitialReward":        "10.0",
		},
		errs:  map[string]error{},
		gates: map[string]chan struct{}{},
	}
}

func (f *fakeWallet) set(method, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[method] = value
}

func (f *fakeWallet) fail(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[method] = err
}

// hold makes calls to method block until the returned func is called.
func (f *fakeWallet) hold(method string) (release func()) {
	gate := make(chan struct{})
	f.mu.Lock()
	f.gates[method] = gate
	f.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

func (f *fakeWallet) called(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == method {
			n++
		}
	}
	return n
}

// enter records the call and waits on the method's gate, if any.
func (f *fakeWallet) enter(method string) {
	f.mu.Lock()
	f.calls = append(f.calls, method)
	gate := f.gates[method]
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
}

func (f *fakeWallet) get(method string) (string, error) {
	f.enter(method)
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs[method]; err != nil {
		return "", err
	}
	return f.values[method], nil
}

func (f *fakeWallet) send(method string) (wallet.Receipt, error) {
	f.enter(method)
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs[method]; err != nil {
		return wallet.Receipt{}, err
	}
	hash := "0x" + method
	return wallet.Receipt{TxHash: hash, Message: method + " done: " + hash}, nil
}

func (f *fakeWallet) GetAddress(ctx context.Context) (string, error) { return f.get("GetAddress") }
func (f *fakeWallet) GetBalance(ctx context.Context) (string, error) { return f.get("GetBalance") }
func (f *fakeWallet) GetChainID(ctx context.Context) (string, error) { return f.get("GetChainID") }

func (f *fakeWallet) StartFocus(ctx context.Context, deposit string, minimumSeconds int64) (wallet.Receipt, error) {
	return f.send("StartFocus")
}

func (f *fakeWallet) StopFocus(ctx context.Context) (wallet.Receipt, error) {
	return f.send("StopFocus")
}

func (f *fakeWallet) ClaimRewards(ctx context.Context) (wallet.Receipt, error) {
	return f.send("ClaimRewards")
}

func (f *fakeWallet) ClaimInitialReward(ctx context.Context) (wallet.Receipt, error) {
	return f.send("ClaimInitialReward")
}

func (f *fakeWallet) ApproveTokenSpending(ctx context.Context, amount string) (wallet.Receipt, error) {
	return f.send("ApproveTokenSpending")
}

func (f *fakeWallet) GetUserTokenBalance(ctx context.Context) (string, error) {
	return f.get("GetUserTokenBalance")
}

func (f *fakeWallet) GetContractTokenBalance(ctx context.Context) (string, error) {
	return f.get("GetContractTokenBalance")
}

func (f *fakeWallet) GetUserDetails(ctx context.Context) (*models.UserDetails, error) {
	if _, err := f.get("GetUserDetails"); err != nil {
		return nil, err
	}
	return &models.UserDetails{Deposit: "0.0", UnclaimedRewards: "0.0", TotalClaimedRewards: "0.0", MinimumTimeToFocus: "10"}, nil
}

func (f *fakeWallet) GetTotalRewardsClaimed(ctx context.Context) (string, error) {
	return f.get("GetTotalRewardsClaimed")
}

func (f *fakeWallet) GetRewardRatePerSecond(ctx context.Context) (string, error) {
	return f.get("GetRewardRatePerSecond")
}

func (f *fakeWallet) GetInitialReward(ctx context.Context) (string, error) {
	return f.get("GetInitialReward")
}

// handleFactory treats the provider handle as the Capability itself.
func handleFactory(handle any) (wallet.Capability, error) {
	return handle.(wallet.Capability), nil
}

// fakeProvider reports connected on Connect and disconnected on Logout.
type fakeProvider struct {
	statuses   chan login.Status
	handle     any
	connectErr error

	mu       sync.Mutex
	connects int
	logouts  int
}

func newFakeProvider(handle any) *fakeProvider {
	return &fakeProvider{statuses: make(chan login.Status, 16), handle: handle}
}

func (p *fakeProvider) Statuses() <-chan login.Status { return p.statuses }

func (p *fakeProvider) Connect(ctx context.Context) error {
	p.mu.Lock()
	p.connects++
	p.mu.Unlock()
	if p.connectErr != nil {
		p.statuses <- login.StatusErrored
		return p.connectErr
	}
	p.statuses <- login.StatusConnecting
	p.statuses <- login.StatusConnected
	return nil
}

func (p *fakeProvider) Logout(ctx context.Context) error {
	p.mu.Lock()
	p.logouts++
	p.mu.Unlock()
	p.statuses <- login.StatusDisconnected
	return nil
}

func (p *fakeProvider) UserInfo() models.UserInfo {
	return models.UserInfo{Name: "Ada", LoginType: "custodial"}
}

func (p *fakeProvider) Handle() any { return p.handle }

func (p *fakeProvider) connectCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connects
}
