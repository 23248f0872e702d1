package login

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"

	"github.com/olehkaliuzhnyi/focus2earn/internal/chain"
	"github.com/olehkaliuzhnyi/focus2earn/internal/keys"
	"github.com/olehkaliuzhnyi/focus2earn/pkg/models"
)

const statusBuffer = 16

// ErrClosed is returned by operations on a closed provider.
var ErrClosed = errors.New("login provider closed")

// DialFunc opens the RPC backend for a connection.
type DialFunc func(ctx context.Context, cfg chain.RPCConfig, logger *slog.Logger) (chain.Backend, error)

// DialRPC is the default DialFunc.
func DialRPC(ctx context.Context, cfg chain.RPCConfig, logger *slog.Logger) (chain.Backend, error) {
	client, err := chain.Dial(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// CustodialConfig configures a Custodial provider.
type CustodialConfig struct {
	Mnemonic   string
	Passphrase string
	Index      uint32
	RPC        chain.RPCConfig
	// Name and Email populate the reported profile.
	Name  string
	Email string
	// Dial defaults to DialRPC.
	Dial DialFunc
}

// Custodial derives the account key from a mnemonic and connects over RPC.
type Custodial struct {
	cfg     CustodialConfig
	account *keys.DerivedAccount
	logger  *slog.Logger

	mu       sync.Mutex
	statuses chan Status
	conn     *chain.Connection
	closed   bool
}

// NewCustodial validates the mnemonic and derives the account. The provider
// starts in not_ready; call Init to announce it as ready.
func NewCustodial(cfg CustodialConfig, logger *slog.Logger) (*Custodial, error) {
	if logger == nil {
		logger = slog.Default()
	}
	seed, err := keys.SeedFromMnemonic(cfg.Mnemonic, cfg.Passphrase)
	if err != nil {
		return nil, err
	}
	account, err := keys.Derive(seed, cfg.Index)
	if err != nil {
		return nil, fmt.Errorf("derive account: %w", err)
	}
	if cfg.Dial == nil {
		cfg.Dial = DialRPC
	}

	p := &Custodial{
		cfg:      cfg,
		account:  account,
		logger:   logger.With("component", "login", "address", account.Address.Hex()),
		statuses: make(chan Status, statusBuffer),
	}
	p.emitLocked(StatusNotReady)
	return p, nil
}

// Init marks the provider ready to connect.
func (p *Custodial) Init() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	p.emitLocked(StatusReady)
	return nil
}

func (p *Custodial) Statuses() <-chan Status {
	return p.statuses
}

// Connect dials the RPC endpoint and binds the derived account to it.
func (p *Custodial) Connect(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	if p.conn != nil {
		p.mu.Unlock()
		return nil
	}
	p.emitLocked(StatusConnecting)
	p.mu.Unlock()

	backend, err := p.cfg.Dial(ctx, p.cfg.RPC, p.logger)
	if err == nil {
		var id *big.Int
		id, err = backend.ChainID(ctx)
		if err == nil {
			p.mu.Lock()
			defer p.mu.Unlock()
			if p.closed {
				closeBackend(backend)
				return ErrClosed
			}
			p.conn = &chain.Connection{Backend: backend, Signer: p.account.Signer(), ChainID: id}
			p.logger.Info("connected", "chain_id", id)
			p.emitLocked(StatusConnected)
			return nil
		}
		closeBackend(backend)
	}

	p.logger.Error("connect failed", "error", err)
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.emitLocked(StatusErrored)
	}
	return fmt.Errorf("connect: %w", err)
}

// Logout drops the connection and reports disconnected.
func (p *Custodial) Logout(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	if p.conn != nil {
		closeBackend(p.conn.Backend)
		p.conn = nil
	}
	p.logger.Info("logged out")
	p.emitLocked(StatusDisconnected)
	return nil
}

func (p *Custodial) UserInfo() models.UserInfo {
	return models.UserInfo{
		Name:      p.cfg.Name,
		Email:     p.cfg.Email,
		Verifier:  "mnemonic",
		LoginType: "custodial",
		Address:   p.account.Address.Hex(),
	}
}

// Handle returns the *chain.Connection while connected, nil otherwise.
func (p *Custodial) Handle() any {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil {
		return nil
	}
	return p.conn
}

// Close releases the connection and closes the status channel.
func (p *Custodial) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	if p.conn != nil {
		closeBackend(p.conn.Backend)
		p.conn = nil
	}
	p.closed = true
	close(p.statuses)
}

// emitLocked drops the status when nobody drains the channel.
func (p *Custodial) emitLocked(s Status) {
	select {
	case p.statuses <- s:
	default:
		p.logger.Warn("status dropped, channel full", "status", string(s))
	}
}

func closeBackend(b chain.Backend) {
	if c, ok := b.(interface{ Close() }); ok {
		c.Close()
	}
}
