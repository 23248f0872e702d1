package models

import "time"

// ConnectionState is the orchestrator's view of the wallet connection.
type ConnectionState string

// Connection states.
const (
	StateDisconnected ConnectionState = "disconnected"
	StateConnecting   ConnectionState = "connecting"
	StateConnected    ConnectionState = "connected"
)

// AccountSnapshot is a point-in-time cache of account figures.
// A nil field means the value is unknown (never read, or its read failed).
type AccountSnapshot struct {
	Address              *string `json:"address"`
	NativeBalance        *string `json:"native_balance"`
	TokenBalance         *string `json:"token_balance"`
	ContractTokenBalance *string `json:"contract_token_balance"`
	TotalRewardsClaimed  *string `json:"total_rewards_claimed"`
	ChainID              *string `json:"chain_id"`
	// Cycle identifies the full refresh the snapshot was built in.
	Cycle uint64 `json:"cycle"`
}

// FocusSession is the client-side approximation of the on-chain focus session.
type FocusSession struct {
	Running        bool  `json:"running"`
	ElapsedSeconds int64 `json:"elapsed_seconds"`
}

// UserDetails is the decoded users(address) record of the focus contract.
type UserDetails struct {
	Deposit             string `json:"deposit"`
	StartTime           *int64 `json:"start_time,omitempty"` // unix seconds, nil when no session was started
	UnclaimedRewards    string `json:"unclaimed_rewards"`
	TotalClaimedRewards string `json:"total_claimed_rewards"`
	MinimumTimeToFocus  string `json:"minimum_time_to_focus"`
}

// UserInfo is the profile reported by the login provider.
type UserInfo struct {
	Name      string `json:"name,omitempty"`
	Email     string `json:"email,omitempty"`
	Verifier  string `json:"verifier,omitempty"`
	LoginType string `json:"login_type,omitempty"`
	Address   string `json:"address,omitempty"`
}

// Ptr returns a pointer to s.
func Ptr(s string) *string {
	return &s
}

// TxStatus is the lifecycle state of a submitted transaction.
type TxStatus string

// Transaction states.
const (
	TxPending  TxStatus = "pending"
	TxMined    TxStatus = "mined"
	TxReverted TxStatus = "reverted"
)

// Transaction is the journal record of a transaction this client submitted.
type Transaction struct {
	Hash        string    `json:"hash"`
	Label       string    `json:"label"` // contract method that produced it
	From        string    `json:"from"`
	To          string    `json:"to"`
	Nonce       uint64    `json:"nonce"`
	Value       string    `json:"value,omitempty"` // base units
	Status      TxStatus  `json:"status"`
	BlockNumber uint64    `json:"block_number,omitempty"`
	SubmittedAt time.Time `json:"submitted_at"`
}
