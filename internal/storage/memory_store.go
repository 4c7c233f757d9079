package storage

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store implementation suitable for tests and
// single-instance deployments. It loses all state on restart — never use
// it where payment/audit history must survive a process restart.
type MemoryStore struct {
	mu sync.RWMutex

	tenantsBySlug  map[string]Tenant
	endpoints      map[string]map[string]Endpoint // tenantID -> slug -> Endpoint
	secrets        map[string]map[string]Secret   // tenantID -> name -> Secret
	payments       map[string]Payment
	requestLogs    []RequestLog
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tenantsBySlug: make(map[string]Tenant),
		endpoints:     make(map[string]map[string]Endpoint),
		secrets:       make(map[string]map[string]Secret),
		payments:      make(map[string]Payment),
	}
}

// SeedTenant and SeedEndpoint/SeedSecret below let tests and a local
// single-process deployment populate the store without a database.

// SeedTenant inserts or replaces a Tenant.
func (m *MemoryStore) SeedTenant(t Tenant) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tenantsBySlug[t.Slug] = t
}

// SeedEndpoint inserts or replaces an Endpoint under its owning tenant.
func (m *MemoryStore) SeedEndpoint(e Endpoint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.endpoints[e.TenantID] == nil {
		m.endpoints[e.TenantID] = make(map[string]Endpoint)
	}
	m.endpoints[e.TenantID][e.Slug] = e
}

// SeedSecret inserts or replaces a Secret under its owning tenant.
func (m *MemoryStore) SeedSecret(s Secret) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.secrets[s.TenantID] == nil {
		m.secrets[s.TenantID] = make(map[string]Secret)
	}
	m.secrets[s.TenantID][s.Name] = s
}

func (m *MemoryStore) GetTenantBySlug(_ context.Context, slug string) (Tenant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tenantsBySlug[slug]
	if !ok {
		return Tenant{}, ErrNotFound
	}
	return t, nil
}

func (m *MemoryStore) GetEndpoint(_ context.Context, tenantID, endpointSlug string) (Endpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	byTenant, ok := m.endpoints[tenantID]
	if !ok {
		return Endpoint{}, ErrNotFound
	}
	e, ok := byTenant[endpointSlug]
	if !ok {
		return Endpoint{}, ErrNotFound
	}
	return e, nil
}

func (m *MemoryStore) GetSecret(_ context.Context, tenantID, name string) (Secret, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	byTenant, ok := m.secrets[tenantID]
	if !ok {
		return Secret{}, ErrNotFound
	}
	s, ok := byTenant[name]
	if !ok {
		return Secret{}, ErrNotFound
	}
	return s, nil
}

func (m *MemoryStore) CreatePayment(_ context.Context, payment Payment) (Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = time.Now()
	}
	m.payments[payment.ID] = payment
	return payment, nil
}

func (m *MemoryStore) UpdatePaymentStatus(_ context.Context, paymentID string, status PaymentStatus, transactionHash string, settlementResponse []byte, errorMessage string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	payment, ok := m.payments[paymentID]
	if !ok {
		return ErrNotFound
	}

	payment.Status = status
	if transactionHash != "" {
		payment.TransactionHash = transactionHash
	}
	if settlementResponse != nil {
		payment.SettlementResponse = settlementResponse
	}
	if errorMessage != "" {
		payment.ErrorMessage = errorMessage
	}
	if status == PaymentSettled || status == PaymentFailed {
		now := time.Now()
		payment.SettledAt = &now
	}
	m.payments[paymentID] = payment
	return nil
}

func (m *MemoryStore) AppendRequestLog(_ context.Context, entry RequestLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	m.requestLogs = append(m.requestLogs, entry)
	return nil
}

// RequestLogs returns a snapshot of every logged request, newest last. Test
// helper — production callers never need to enumerate the whole log.
func (m *MemoryStore) RequestLogs() []RequestLog {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]RequestLog, len(m.requestLogs))
	copy(out, m.requestLogs)
	return out
}

// Payment returns a payment by ID. Test helper.
func (m *MemoryStore) Payment(id string) (Payment, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.payments[id]
	return p, ok
}

func (m *MemoryStore) ArchiveOldRecords(_ context.Context, olderThan time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var count int64
	for id, p := range m.payments {
		if p.CreatedAt.Before(olderThan) {
			delete(m.payments, id)
			count++
		}
	}

	kept := m.requestLogs[:0]
	for _, entry := range m.requestLogs {
		if entry.CreatedAt.Before(olderThan) {
			count++
			continue
		}
		kept = append(kept, entry)
	}
	m.requestLogs = kept

	return count, nil
}

func (m *MemoryStore) Close() error {
	return nil
}
