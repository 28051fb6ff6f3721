package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/portfolio-dashboard/internal/models"
)

// KV is a JSON document store keyed by string
type KV interface {
	// Get decodes the value at key into dest and reports whether it existed
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Put(ctx context.Context, key string, value interface{}) error
	Delete(ctx context.Context, key string) error
}

// Record keys, one document per user
func PortfolioKey(user string) string    { return "portfolio:" + user }
func TransactionsKey(user string) string { return "transactions:" + user }
func MessagesKey(user string) string     { return "ai_messages:" + user }

// KVStore is the Postgres-backed KV (table kv_records)
type KVStore struct {
	db *PostgresDB
}

// NewKVStore creates a KV store on db
func NewKVStore(db *PostgresDB) *KVStore {
	return &KVStore{db: db}
}

func (s *KVStore) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	var raw []byte
	err := s.db.Pool().QueryRow(ctx, `SELECT value FROM kv_records WHERE key = $1`, key).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}

func (s *KVStore) Put(ctx context.Context, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}

	query := `
		INSERT INTO kv_records (key, value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`
	if _, err := s.db.Pool().Exec(ctx, query, key, raw, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to put %s: %w", key, err)
	}
	return nil
}

func (s *KVStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.Pool().Exec(ctx, `DELETE FROM kv_records WHERE key = $1`, key); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// MemoryKV is an in-process KV for development and tests. Values are stored
// encoded so callers never share memory with the store.
type MemoryKV struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryKV creates an empty in-memory KV
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string][]byte)}
}

func (m *MemoryKV) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	m.mu.RLock()
	raw, ok := m.data[key]
	m.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}

func (m *MemoryKV) Put(_ context.Context, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	m.mu.Lock()
	m.data[key] = raw
	m.mu.Unlock()
	return nil
}

func (m *MemoryKV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
	return nil
}

// RecordStore reads and writes the per-user portfolio and conversation documents
type RecordStore struct {
	kv KV
}

// NewRecordStore creates a record store over kv
func NewRecordStore(kv KV) *RecordStore {
	return &RecordStore{kv: kv}
}

// Portfolio returns the user's stored portfolio, or nil if there is none
func (s *RecordStore) Portfolio(ctx context.Context, user string) (*models.PortfolioData, error) {
	var p models.PortfolioData
	found, err := s.kv.Get(ctx, PortfolioKey(user), &p)
	if err != nil || !found {
		return nil, err
	}
	return &p, nil
}

// SavePortfolio stores p, stamping UpdatedAt
func (s *RecordStore) SavePortfolio(ctx context.Context, user string, p *models.PortfolioData, now time.Time) error {
	stored := *p
	ts := now.UTC()
	stored.UpdatedAt = &ts
	return s.kv.Put(ctx, PortfolioKey(user), &stored)
}

// Messages returns the user's stored conversation, or nil if there is none
func (s *RecordStore) Messages(ctx context.Context, user string) ([]models.ConversationMessage, error) {
	var msgs []models.ConversationMessage
	found, err := s.kv.Get(ctx, MessagesKey(user), &msgs)
	if err != nil || !found {
		return nil, err
	}
	if msgs == nil {
		msgs = []models.ConversationMessage{}
	}
	return msgs, nil
}

// SaveMessages replaces the user's stored conversation
func (s *RecordStore) SaveMessages(ctx context.Context, user string, msgs []models.ConversationMessage) error {
	return s.kv.Put(ctx, MessagesKey(user), msgs)
}
