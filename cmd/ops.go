package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/olehkaliuzhnyi/focus2earn/internal/session"
	"github.com/olehkaliuzhnyi/focus2earn/internal/units"
	"github.com/olehkaliuzhnyi/focus2earn/pkg/models"
)

type opFunc func(ctx context.Context, orch *session.Orchestrator, args []string) models.Result

// newOpCmd wraps a single orchestrator operation into a command that connects,
// runs it and prints the result.
func newOpCmd(a *app, use, short string, args cobra.PositionalArgs, op opFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := a.connect(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer conn.close()
			return writeResult(cmd, op(cmd.Context(), conn.orch, args))
		},
	}
}

func writeResult(cmd *cobra.Command, res models.Result) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	if !res.OK() {
		return fmt.Errorf("%s: %s", res.Kind, res.Message)
	}
	return nil
}

type statusView struct {
	Network string                 `json:"network"`
	User    models.UserInfo        `json:"user"`
	Account models.AccountSnapshot `json:"account"`
	// Balance is the native balance cut to 4 decimals; empty when unread.
	Balance string `json:"balance,omitempty"`
}

func newStatusCmd(a *app) *cobra.Command {
	return newOpCmd(a, "status", "Connect and print the account snapshot", cobra.NoArgs,
		func(ctx context.Context, orch *session.Orchestrator, _ []string) models.Result {
			info := orch.GetUserInfo(ctx)
			if !info.OK() {
				return info
			}
			view := statusView{
				Network: a.cfg.Chain.DisplayName,
				User:    info.Value.(models.UserInfo),
				Account: orch.Snapshot(),
			}
			if b := view.Account.NativeBalance; b != nil {
				view.Balance = units.Truncate(*b, 4)
			}
			return models.Success("connected", "").WithValue(view)
		})
}

func newStartFocusCmd(a *app) *cobra.Command {
	return newOpCmd(a, "start-focus <amount>", "Deposit tokens and start a focus session", cobra.ExactArgs(1),
		func(ctx context.Context, orch *session.Orchestrator, args []string) models.Result {
			return orch.StartFocus(ctx, args[0])
		})
}

func newStopFocusCmd(a *app) *cobra.Command {
	return newOpCmd(a, "stop-focus", "Stop the focus session and withdraw the deposit", cobra.NoArgs,
		func(ctx context.Context, orch *session.Orchestrator, _ []string) models.Result {
			return orch.StopFocus(ctx)
		})
}

func newClaimCmd(a *app) *cobra.Command {
	return newOpCmd(a, "claim", "Claim accrued focus rewards", cobra.NoArgs,
		func(ctx context.Context, orch *session.Orchestrator, _ []string) models.Result {
			return orch.ClaimRewards(ctx)
		})
}

func newClaimInitialCmd(a *app) *cobra.Command {
	return newOpCmd(a, "claim-initial", "Claim the one-time initial reward", cobra.NoArgs,
		func(ctx context.Context, orch *session.Orchestrator, _ []string) models.Result {
			return orch.ClaimInitialReward(ctx)
		})
}

func newApproveCmd(a *app) *cobra.Command {
	return newOpCmd(a, "approve <amount>", "Allow the focus contract to pull reward tokens", cobra.ExactArgs(1),
		func(ctx context.Context, orch *session.Orchestrator, args []string) models.Result {
			return orch.ApproveTokenSpending(ctx, args[0])
		})
}

func newDetailsCmd(a *app) *cobra.Command {
	return newOpCmd(a, "details", "Print the on-chain focus record of the account", cobra.NoArgs,
		func(ctx context.Context, orch *session.Orchestrator, _ []string) models.Result {
			return orch.GetUserDetails(ctx)
		})
}

func newRateCmd(a *app) *cobra.Command {
	return newOpCmd(a, "rate", "Print the reward rate per second", cobra.NoArgs,
		func(ctx context.Context, orch *session.Orchestrator, _ []string) models.Result {
			return orch.GetRewardRatePerSecond(ctx)
		})
}

func newInitialRewardCmd(a *app) *cobra.Command {
	return newOpCmd(a, "initial-reward", "Print the initial reward amount", cobra.NoArgs,
		func(ctx context.Context, orch *session.Orchestrator, _ []string) models.Result {
			return orch.GetInitialReward(ctx)
		})
}

type focusRun struct {
	ElapsedSeconds int64                 `json:"elapsed_seconds"`
	Stop           models.Result         `json:"stop"`
	Transactions   []*models.Transaction `json:"transactions,omitempty"`
}

func newFocusCmd(a *app) *cobra.Command {
	var duration time.Duration

	cmd := newOpCmd(a, "focus <amount>", "Run a full focus session: start, wait, stop", cobra.ExactArgs(1),
		func(ctx context.Context, orch *session.Orchestrator, args []string) models.Result {
			if res := orch.StartFocus(ctx, args[0]); !res.OK() {
				return res
			}

			select {
			case <-ctx.Done():
			case <-time.After(duration):
			}
			elapsed := orch.Focus().ElapsedSeconds

			// the session is stopped even when ctx was cancelled
			stop := orch.StopFocus(context.WithoutCancel(ctx))
			if !stop.OK() {
				return stop
			}
			run := focusRun{ElapsedSeconds: elapsed, Stop: stop}
			if txs := orch.Transactions(ctx); txs.OK() {
				run.Transactions = txs.Value.([]*models.Transaction)
			}
			return models.Success(stop.Message, stop.TxHash).WithValue(run)
		})
	cmd.Flags().DurationVar(&duration, "duration", 25*time.Minute, "how long to stay focused")
	return cmd
}
