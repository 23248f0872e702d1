package chain

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/rpc"

	"github.com/olehkaliuzhnyi/focus2earn/pkg/models"
)

// Sentinels matched with errors.Is against a classified *Error.
var (
	ErrUserRejected  = errors.New("user rejected")
	ErrChainRejected = errors.New("transaction rejected by chain")
	ErrNetwork       = errors.New("network failure")
	ErrEncoding      = errors.New("abi encoding failure")
)

// userRejectedCode is the EIP-1193 code for a declined request.
const userRejectedCode = 4001

// Error is a classified chain failure. Error() keeps the raw underlying message.
type Error struct {
	Kind models.FailureKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap exposes both the cause and the sentinel for the kind.
func (e *Error) Unwrap() []error {
	return []error{e.Err, sentinel(e.Kind)}
}

func sentinel(kind models.FailureKind) error {
	switch kind {
	case models.KindUserRejected:
		return ErrUserRejected
	case models.KindChainRejected:
		return ErrChainRejected
	case models.KindParseFailure:
		return ErrEncoding
	default:
		return ErrNetwork
	}
}

// Classify wraps err into an *Error. Already classified errors are returned as is.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var ce *Error
	if errors.As(err, &ce) {
		return err
	}
	return &Error{Kind: kindOf(err), Op: op, Err: err}
}

// KindOf returns the failure kind of a classified error, or NetworkFailure.
func KindOf(err error) models.FailureKind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return kindOf(err)
}

func kindOf(err error) models.FailureKind {
	switch {
	case errors.Is(err, ErrUserRejected):
		return models.KindUserRejected
	case errors.Is(err, ErrChainRejected):
		return models.KindChainRejected
	case errors.Is(err, ErrEncoding):
		return models.KindParseFailure
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return models.KindNetworkFailure
	}

	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) && rpcErr.ErrorCode() == userRejectedCode {
		return models.KindUserRejected
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "user rejected"), strings.Contains(msg, "user denied"):
		return models.KindUserRejected
	case strings.Contains(msg, "execution reverted"), strings.Contains(msg, "revert"):
		return models.KindChainRejected
	}
	return models.KindNetworkFailure
}
