package models

// ResultStatus tags a Result as success or failure.
type ResultStatus string

const (
	StatusSuccess ResultStatus = "success"
	StatusFailure ResultStatus = "failure"
)

// FailureKind classifies why an operation failed.
type FailureKind string

const (
	KindPreconditionNotMet FailureKind = "precondition_not_met"
	KindUserRejected       FailureKind = "user_rejected"
	KindChainRejected      FailureKind = "chain_rejected"
	KindNetworkFailure     FailureKind = "network_failure"
	KindParseFailure       FailureKind = "parse_failure"
)

// Result is returned by every orchestrator operation.
type Result struct {
	Status  ResultStatus `json:"status"`
	Message string       `json:"message"`
	TxHash  string       `json:"tx_hash,omitempty"`
	Kind    FailureKind  `json:"kind,omitempty"`
	Value   any          `json:"value,omitempty"`
}

// Success builds a successful result. txHash may be empty for reads.
func Success(message, txHash string) Result {
	return Result{Status: StatusSuccess, Message: message, TxHash: txHash}
}

// Failure builds a failed result.
func Failure(kind FailureKind, message string) Result {
	return Result{Status: StatusFailure, Message: message, Kind: kind}
}

// OK reports whether the result is a success.
func (r Result) OK() bool {
	return r.Status == StatusSuccess
}

// WithValue returns a copy of r carrying v.
func (r Result) WithValue(v any) Result {
	r.Value = v
	return r
}
