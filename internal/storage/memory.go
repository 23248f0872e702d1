package storage

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/olehkaliuzhnyi/focus2earn/pkg/models"
)

// MemoryNonceTracker is an in-memory NonceTracker.
type MemoryNonceTracker struct {
	mu   sync.Mutex
	next map[string]uint64
}

func NewMemoryNonceTracker() *MemoryNonceTracker {
	return &MemoryNonceTracker{next: make(map[string]uint64)}
}

func (s *MemoryNonceTracker) Reserve(address string, chainNonce uint64) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(address)
	n := s.next[key]
	if chainNonce > n {
		n = chainNonce
	}
	s.next[key] = n + 1
	return n, nil
}

func (s *MemoryNonceTracker) Release(address string, nonce uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(address)
	if s.next[key] != nonce+1 {
		return fmt.Errorf("nonce %d for %s is not the latest reservation", nonce, address)
	}
	s.next[key] = nonce
	return nil
}

// MemoryTxStore is an in-memory TxStore.
type MemoryTxStore struct {
	mu  sync.RWMutex
	txs map[string]*models.Transaction
}

func NewMemoryTxStore() *MemoryTxStore {
	return &MemoryTxStore{txs: make(map[string]*models.Transaction)}
}

func (s *MemoryTxStore) Put(tx *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *tx
	s.txs[strings.ToLower(tx.Hash)] = &cp
	return nil
}

func (s *MemoryTxStore) Get(hash string) (*models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tx, ok := s.txs[strings.ToLower(hash)]
	if !ok {
		return nil, nil
	}
	cp := *tx
	return &cp, nil
}

func (s *MemoryTxStore) SetStatus(hash string, status models.TxStatus, blockNumber uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.txs[strings.ToLower(hash)]
	if !ok {
		return fmt.Errorf("transaction %s not found", hash)
	}
	tx.Status = status
	tx.BlockNumber = blockNumber
	return nil
}

func (s *MemoryTxStore) List() ([]*models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*models.Transaction, 0, len(s.txs))
	for _, tx := range s.txs {
		cp := *tx
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].SubmittedAt.Equal(result[j].SubmittedAt) {
			return result[i].Nonce < result[j].Nonce
		}
		return result[i].SubmittedAt.Before(result[j].SubmittedAt)
	})
	return result, nil
}
