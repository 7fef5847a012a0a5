// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// memoryEntry implements jetstream.KeyValueEntry
type memoryEntry struct {
	bucket   string
	key      string
	value    []byte
	revision uint64
	created  time.Time
}

func (e *memoryEntry) Bucket() string                  { return e.bucket }
func (e *memoryEntry) Key() string                     { return e.key }
func (e *memoryEntry) Value() []byte                   { return e.value }
func (e *memoryEntry) Revision() uint64                { return e.revision }
func (e *memoryEntry) Created() time.Time              { return e.created }
func (e *memoryEntry) Delta() uint64                   { return 0 }
func (e *memoryEntry) Operation() jetstream.KeyValueOp { return jetstream.KeyValuePut }

// MemoryKeyValue is an in-process INatsKeyValue with the same Create and
// Update semantics as a JetStream bucket. It backs unit tests.
type MemoryKeyValue struct {
	mu       sync.Mutex
	bucket   string
	entries  map[string]*memoryEntry
	sequence uint64

	// Errors injected per operation ("get", "create", "update").
	errs map[string]error
	// BeforeUpdate runs before an Update is applied, outside the lock.
	// Tests use it to interleave a competing write.
	BeforeUpdate func(key string)
}

// NewMemoryKeyValue creates an empty in-memory bucket
func NewMemoryKeyValue(bucket string) *MemoryKeyValue {
	return &MemoryKeyValue{
		bucket:  bucket,
		entries: make(map[string]*memoryEntry),
		errs:    make(map[string]error),
	}
}

// FailOn makes every call to operation return err until cleared with a nil err.
func (m *MemoryKeyValue) FailOn(operation string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.errs, operation)
		return
	}
	m.errs[operation] = err
}

// Len returns the number of keys stored
func (m *MemoryKeyValue) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *MemoryKeyValue) Get(_ context.Context, key string) (jetstream.KeyValueEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.errs["get"]; err != nil {
		return nil, err
	}
	entry, ok := m.entries[key]
	if !ok {
		return nil, jetstream.ErrKeyNotFound
	}
	copied := *entry
	copied.value = append([]byte(nil), entry.value...)
	return &copied, nil
}

func (m *MemoryKeyValue) Create(_ context.Context, key string, value []byte, _ ...jetstream.KVCreateOpt) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.errs["create"]; err != nil {
		return 0, err
	}
	if _, ok := m.entries[key]; ok {
		return 0, jetstream.ErrKeyExists
	}
	return m.put(key, value), nil
}

func (m *MemoryKeyValue) Update(_ context.Context, key string, value []byte, revision uint64) (uint64, error) {
	if hook := m.BeforeUpdate; hook != nil {
		hook(key)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.errs["update"]; err != nil {
		return 0, err
	}
	entry, ok := m.entries[key]
	if !ok {
		return 0, jetstream.ErrKeyNotFound
	}
	if entry.revision != revision {
		return 0, fmt.Errorf("nats: wrong last sequence: %d", entry.revision)
	}
	return m.put(key, value), nil
}

func (m *MemoryKeyValue) put(key string, value []byte) uint64 {
	m.sequence++
	m.entries[key] = &memoryEntry{
		bucket:   m.bucket,
		key:      key,
		value:    append([]byte(nil), value...),
		revision: m.sequence,
		created:  time.Now(),
	}
	return m.sequence
}
