package storage

import "github.com/olehkaliuzhnyi/focus2earn/pkg/models"

// NonceTracker hands out per-address nonces on top of the chain's pending nonce.
type NonceTracker interface {
	// Reserve returns max(chainNonce, next local nonce) and advances the local nonce past it.
	Reserve(address string, chainNonce uint64) (uint64, error)
	// Release gives back a reserved nonce that was never broadcast.
	// Only the most recent reservation can be released.
	Release(address string, nonce uint64) error
}

// TxStore journals transactions submitted by this client.
type TxStore interface {
	// Put stores a transaction keyed by its hash.
	Put(tx *models.Transaction) error
	// Get returns a stored transaction by hash, or nil if not found.
	Get(hash string) (*models.Transaction, error)
	// SetStatus records the outcome of a transaction.
	SetStatus(hash string, status models.TxStatus, blockNumber uint64) error
	// List returns all journaled transactions, oldest first.
	List() ([]*models.Transaction, error)
}
