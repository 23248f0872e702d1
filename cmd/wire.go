package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"

	"github.com/olehkaliuzhnyi/focus2earn/internal/chain"
	"github.com/olehkaliuzhnyi/focus2earn/internal/config"
	"github.com/olehkaliuzhnyi/focus2earn/internal/console"
	"github.com/olehkaliuzhnyi/focus2earn/internal/login"
	"github.com/olehkaliuzhnyi/focus2earn/internal/session"
	"github.com/olehkaliuzhnyi/focus2earn/internal/timer"
	"github.com/olehkaliuzhnyi/focus2earn/internal/wallet"
)

var errNoMnemonic = errors.New("FOCUS_MNEMONIC is not set")

type app struct {
	configPath    string
	logLevel      string
	mirrorConsole bool

	cfg  config.Config
	dial login.DialFunc
}

// connected is a live session: the orchestrator plus what must be released.
type connected struct {
	orch  *session.Orchestrator
	close func()
}

// connect logs in with the custodial provider and waits for the first snapshot.
func (a *app) connect(ctx context.Context, stderr io.Writer) (*connected, error) {
	if a.cfg.Wallet.Mnemonic == "" {
		return nil, errNoMnemonic
	}

	provider, err := login.NewCustodial(login.CustodialConfig{
		Mnemonic:   a.cfg.Wallet.Mnemonic,
		Passphrase: a.cfg.Wallet.Passphrase,
		Index:      a.cfg.Wallet.DerivationIndex,
		RPC: chain.RPCConfig{
			URL:           a.cfg.Chain.RPCURL,
			ChainID:       a.cfg.Chain.ChainID,
			MaxRetries:    a.cfg.Chain.DialRetries,
			RetryInterval: a.cfg.Chain.DialRetryDelay,
		},
		Dial: a.dial,
	}, slog.Default())
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	var mirror io.Writer
	if a.mirrorConsole {
		mirror = stderr
	}
	factory := wallet.NewEVMFactory(wallet.EVMConfig{
		FocusToEarn: common.HexToAddress(a.cfg.Contracts.FocusToEarn),
		RewardToken: common.HexToAddress(a.cfg.Contracts.RewardToken),
		Adapter: chain.AdapterConfig{
			Confirmer: chain.ConfirmerConfig{
				PollInterval:      a.cfg.ReceiptPollInterval,
				ConfirmationDepth: a.cfg.ConfirmationDepth,
			},
			BroadcastMaxRetries: a.cfg.BroadcastMaxRetries,
		},
	})
	orch := session.New(
		session.Config{MinimumFocusSeconds: a.cfg.MinimumFocusSeconds},
		factory,
		timer.New(a.cfg.TickInterval),
		console.New(mirror),
	)

	watchCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = orch.Watch(watchCtx, provider)
	}()
	release := func() {
		cancel()
		<-done
		provider.Close()
	}

	if err := provider.Init(); err != nil {
		release()
		return nil, err
	}
	if err := orch.WaitConnected(ctx); err != nil {
		release()
		return nil, fmt.Errorf("connect to %s: %w", a.cfg.Chain.DisplayName, err)
	}
	return &connected{orch: orch, close: release}, nil
}
