package chain

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/olehkaliuzhnyi/focus2earn/pkg/models"
)

type rpcError struct {
	code int
	msg  string
}

func (e *rpcError) Error() string  { return e.msg }
func (e *rpcError) ErrorCode() int { return e.code }

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind models.FailureKind
		is   error
	}{
		{"eip1193 code", &rpcError{code: 4001, msg: "request declined"}, models.KindUserRejected, ErrUserRejected},
		{"user denied text", errors.New("MetaMask Tx Signature: User denied transaction signature."), models.KindUserRejected, ErrUserRejected},
		{"revert text", errors.New("execution reverted: focus session already active"), models.KindChainRejected, ErrChainRejected},
		{"wrapped revert", fmt.Errorf("estimate gas: %w", &rpcError{code: 3, msg: "execution reverted"}), models.KindChainRejected, ErrChainRejected},
		{"transport", errors.New("Post \"https://rpc\": dial tcp: lookup rpc: no such host"), models.KindNetworkFailure, ErrNetwork},
		{"deadline", context.DeadlineExceeded, models.KindNetworkFailure, ErrNetwork},
		{"sentinel", fmt.Errorf("sign: %w", ErrUserRejected), models.KindUserRejected, ErrUserRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Classify("claimRewards", tt.err)
			if got := KindOf(err); got != tt.kind {
				t.Errorf("KindOf = %s, want %s", got, tt.kind)
			}
			if !errors.Is(err, tt.is) {
				t.Errorf("errors.Is(%v, %v) = false", err, tt.is)
			}
			if !errors.Is(err, tt.err) {
				t.Error("classified error should still wrap the cause")
			}
		})
	}
}

func TestClassify_Idempotent(t *testing.T) {
	first := Classify("stopFocus", errors.New("execution reverted"))
	second := Classify("outer", fmt.Errorf("wrapped: %w", first))

	var ce *Error
	if !errors.As(second, &ce) {
		t.Fatal("expected *Error")
	}
	if ce.Op != "stopFocus" {
		t.Errorf("reclassification should keep the first op, got %q", ce.Op)
	}
	if Classify("x", nil) != nil {
		t.Error("Classify(nil) should be nil")
	}
}

func TestError_MessageKeepsRawCause(t *testing.T) {
	err := Classify("startFocus", errors.New("insufficient funds for gas * price + value"))
	want := "startFocus: insufficient funds for gas * price + value"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
