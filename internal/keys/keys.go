// Package keys derives the custodial account key from a BIP-39 mnemonic and
// signs transactions with it.
package keys

import (
	"context"
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/tyler-smith/go-bip32"
	"github.com/tyler-smith/go-bip39"
	"golang.org/x/crypto/sha3"
)

// ethCoinType is the SLIP-44 coin type for Ethereum.
const ethCoinType = 60

// ErrInvalidMnemonic is returned when the mnemonic fails the BIP-39 checksum.
var ErrInvalidMnemonic = errors.New("invalid mnemonic")

// DerivedAccount is an EVM account derived from a seed.
type DerivedAccount struct {
	Address        common.Address
	DerivationPath string
	PublicKey      string // uncompressed, hex
	privateKey     *ecdsa.PrivateKey
}

// SeedFromMnemonic validates a mnemonic and returns its BIP-39 seed.
func SeedFromMnemonic(mnemonic, passphrase string) ([]byte, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, ErrInvalidMnemonic
	}
	return bip39.NewSeed(mnemonic, passphrase), nil
}

// Derive derives the account at m/44'/60'/0'/0/{index}.
func Derive(seed []byte, index uint32) (*DerivedAccount, error) {
	path := fmt.Sprintf("m/44'/60'/0'/0/%d", index)

	key, err := deriveKey(seed, ethCoinType, index)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}

	_, pubKey := btcec.PrivKeyFromBytes(key)
	pubBytes := pubKey.SerializeUncompressed()

	// Ethereum address = last 20 bytes of Keccak256(publicKey)
	hash := keccak256(pubBytes[1:]) // skip 0x04 prefix

	priv, err := crypto.ToECDSA(key)
	if err != nil {
		return nil, fmt.Errorf("load private key: %w", err)
	}

	return &DerivedAccount{
		Address:        common.BytesToAddress(hash[12:]),
		DerivationPath: path,
		PublicKey:      hex.EncodeToString(pubBytes),
		privateKey:     priv,
	}, nil
}

// Signer returns a transaction signer for the account.
func (a *DerivedAccount) Signer() *Signer {
	return &Signer{address: a.Address, key: a.privateKey}
}

// Signer signs EVM transactions with a locally held key (EIP-155 / London rules).
type Signer struct {
	address common.Address
	key     *ecdsa.PrivateKey
}

// Address returns the signing account.
func (s *Signer) Address() common.Address {
	return s.address
}

// SignTx signs tx for chainID.
func (s *Signer) SignTx(ctx context.Context, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if chainID == nil || chainID.Sign() <= 0 {
		return nil, fmt.Errorf("invalid chain id %v", chainID)
	}
	return types.SignTx(tx, types.LatestSignerForChainID(chainID), s.key)
}

// --- helpers ---

// deriveKey derives a child private key from a BIP-39 seed using BIP-32/BIP-44.
// Path: m/44'/{coinType}'/0'/0/{index}
func deriveKey(seed []byte, coinType uint32, index uint32) ([]byte, error) {
	masterKey, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, fmt.Errorf("master key: %w", err)
	}

	// m/44'
	purpose, err := masterKey.NewChildKey(bip32.FirstHardenedChild + 44)
	if err != nil {
		return nil, fmt.Errorf("derive purpose: %w", err)
	}

	// m/44'/{coinType}'
	coin, err := purpose.NewChildKey(bip32.FirstHardenedChild + coinType)
	if err != nil {
		return nil, fmt.Errorf("derive coin: %w", err)
	}

	// m/44'/{coinType}'/0'
	account, err := coin.NewChildKey(bip32.FirstHardenedChild + 0)
	if err != nil {
		return nil, fmt.Errorf("derive account: %w", err)
	}

	// m/44'/{coinType}'/0'/0
	change, err := account.NewChildKey(0)
	if err != nil {
		return nil, fmt.Errorf("derive change: %w", err)
	}

	// m/44'/{coinType}'/0'/0/{index}
	child, err := change.NewChildKey(index)
	if err != nil {
		return nil, fmt.Errorf("derive child: %w", err)
	}

	return child.Key, nil
}

func keccak256(data []byte) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	return h.Sum(nil)
}
