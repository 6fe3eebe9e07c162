package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"bankguard/internal/sentinel"
	id "bankguard/pkg/domain"
)

// InMemoryStore holds transactions, accounts, and admins in memory for
// tests and dev mode. It implements TransactionStore, AccountStore, and
// AdminDirectory.
type InMemoryStore struct {
	mu           sync.RWMutex
	transactions map[id.AccountID][]Transaction
	accounts     map[id.AccountID]*Account
	admins       []Admin
}

// NewInMemoryStore constructs an empty in-memory ledger view.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		transactions: make(map[id.AccountID][]Transaction),
		accounts:     make(map[id.AccountID]*Account),
	}
}

// AddTransaction records a transaction for later queries. Test/dev seeding only.
func (s *InMemoryStore) AddTransaction(tx Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions[tx.AccountID] = append(s.transactions[tx.AccountID], tx)
}

// PutAccount stores or replaces an account. Test/dev seeding only.
func (s *InMemoryStore) PutAccount(account *Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[account.ID] = account
}

// PutAdmin registers an operator. Test/dev seeding only.
func (s *InMemoryStore) PutAdmin(admin Admin) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.admins = append(s.admins, admin)
}

func (s *InMemoryStore) ListByAccountSince(_ context.Context, accountID id.AccountID, since time.Time) ([]Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Transaction, 0)
	for _, tx := range s.transactions[accountID] {
		if !tx.CreatedAt.Before(since) {
			out = append(out, tx)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemoryStore) ListByAccountTypeSince(ctx context.Context, accountID id.AccountID, txType TransactionType, since time.Time) ([]Transaction, error) {
	all, err := s.ListByAccountSince(ctx, accountID, since)
	if err != nil {
		return nil, err
	}
	out := make([]Transaction, 0, len(all))
	for _, tx := range all {
		if tx.Type == txType {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (s *InMemoryStore) CountByAccountSince(ctx context.Context, accountID id.AccountID, since time.Time) (int, error) {
	all, err := s.ListByAccountSince(ctx, accountID, since)
	if err != nil {
		return 0, err
	}
	return len(all), nil
}

func (s *InMemoryStore) Get(_ context.Context, accountID id.AccountID) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if account, ok := s.accounts[accountID]; ok {
		copy := *account
		return &copy, nil
	}
	return nil, fmt.Errorf("account %s: %w", accountID, sentinel.ErrNotFound)
}

func (s *InMemoryStore) ListActiveAdmins(_ context.Context) ([]Admin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Admin, 0, len(s.admins))
	for _, a := range s.admins {
		if a.Active {
			out = append(out, a)
		}
	}
	return out, nil
}
