package chaintest

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/olehkaliuzhnyi/focus2earn/internal/chain"
)

// Default addresses of the scripted contracts.
var (
	FocusAddress = common.HexToAddress("0xCD6372C8f10017295d80F9d66f80f6da61B35dc0")
	TokenAddress = common.HexToAddress("0xEdb522211B4cab110B76B57b6D0691e297B4d921")
)

// Env is a chain with the reward token and focus contract deployed and one funded account.
type Env struct {
	Backend *Backend
	Signer  *Signer
	Token   *Token
	Focus   *FocusToEarn
}

// Ether returns n whole tokens in base units.
func Ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1_000_000_000_000_000_000))
}

// NewEnv deploys both contracts, funds the account with 1 ETH and 1000 tokens
// and the focus contract with 1000 tokens for rewards.
func NewEnv(chainID int64) *Env {
	backend := NewBackend(chainID)
	signer := NewSigner()
	token := NewToken()
	focus := NewFocusToEarn(FocusAddress, token)

	backend.Deploy(TokenAddress, chain.ERC20ABI, token)
	backend.Deploy(FocusAddress, chain.FocusToEarnABI, focus)
	backend.SetBalance(signer.Address(), Ether(1))
	token.Mint(signer.Address(), Ether(1000))
	token.Mint(FocusAddress, Ether(1000))

	return &Env{Backend: backend, Signer: signer, Token: token, Focus: focus}
}

// Connection returns the provider handle for the funded account.
func (e *Env) Connection() *chain.Connection {
	return &chain.Connection{
		Backend: e.Backend,
		Signer:  e.Signer,
		ChainID: new(big.Int).Set(e.Backend.chainID),
	}
}
