// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// BadgerDB-backed ChatStore.
//
// License: BadgerDB is Apache 2.0 licensed (github.com/dgraph-io/badger).
// This package follows Apache 2.0 guidelines for attribution and usage.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/AleutianChat/services/chat/datatypes"
)

// =============================================================================
// Configuration
// =============================================================================

// Config holds configuration for the Badger-backed store.
type Config struct {
	// Path is the directory for BadgerDB files.
	// Required for persistent databases. Ignored when InMemory is true.
	Path string

	// InMemory enables in-memory mode (no disk persistence).
	// Useful for testing.
	InMemory bool

	// SyncWrites enables synchronous writes for durability.
	// Default: true for production, false for testing.
	SyncWrites bool

	// Logger is the logger for BadgerDB operations.
	// If nil, BadgerDB's internal logging is disabled.
	Logger *slog.Logger

	// GCInterval is how often to run value log garbage collection.
	// Default: 5 minutes. Set to 0 to disable.
	GCInterval time.Duration

	// GCDiscardRatio is the minimum ratio of discardable data before GC.
	// Default: 0.5.
	GCDiscardRatio float64
}

// DefaultConfig returns production defaults: synchronous writes, 5-minute
// GC interval, 50% discard ratio.
func DefaultConfig(path string) Config {
	return Config{
		Path:           path,
		SyncWrites:     true,
		GCInterval:     5 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

// InMemoryConfig returns configuration optimized for testing: in-memory
// mode, async writes, GC disabled.
func InMemoryConfig() Config {
	return Config{
		InMemory:   true,
		SyncWrites: false,
	}
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// =============================================================================
// BadgerStore
// =============================================================================

// BadgerStore is the embedded BadgerDB implementation of ChatStore.
//
// Keys are laid out as "conv/<owner>/<conversation id>" with the whole
// conversation serialized as one JSON value. Appends are read-modify-write
// inside a single transaction, which makes the user/assistant exchange
// atomic.
type BadgerStore struct {
	db     *badger.DB
	logger *slog.Logger

	gcStop chan struct{}
	gcDone chan struct{}
}

var _ ChatStore = (*BadgerStore)(nil)

// OpenBadger opens a Badger-backed store with the given configuration.
//
// # Inputs
//
//   - cfg: Store configuration. Path is required unless InMemory is true.
//
// # Outputs
//
//   - *BadgerStore: The opened store. Caller must call Close() when done.
//   - error: Non-nil if the path is invalid or the database cannot open.
//
// Thread Safety: the returned store is safe for concurrent use.
func OpenBadger(cfg Config) (*BadgerStore, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites)
	opts = opts.WithNumVersionsToKeep(1)

	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil) // Disable BadgerDB's internal logging
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}

	s := &BadgerStore{db: db, logger: cfg.Logger}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		s.gcStop = make(chan struct{})
		s.gcDone = make(chan struct{})
		go s.runGC(cfg.GCInterval, cfg.GCDiscardRatio)
	}
	return s, nil
}

// OpenInMemory opens an in-memory store for testing.
func OpenInMemory() (*BadgerStore, error) {
	return OpenBadger(InMemoryConfig())
}

// Close stops garbage collection and closes the database.
func (s *BadgerStore) Close() error {
	if s.gcStop != nil {
		close(s.gcStop)
		<-s.gcDone
		s.gcStop = nil
	}
	return s.db.Close()
}

func (s *BadgerStore) runGC(interval time.Duration, ratio float64) {
	defer close(s.gcDone)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.gcStop:
			return
		case <-ticker.C:
			// RunValueLogGC returns ErrNoRewrite when no GC was needed
			err := s.db.RunValueLogGC(ratio)
			if err != nil && !errors.Is(err, badger.ErrNoRewrite) && s.logger != nil {
				s.logger.Warn("badger value log GC error", slog.String("error", err.Error()))
			}
		}
	}
}

// =============================================================================
// Key Layout
// =============================================================================

const convKeyPrefix = "conv/"

func convKey(ownerID, conversationID string) []byte {
	return []byte(convKeyPrefix + ownerID + "/" + conversationID)
}

func ownerPrefix(ownerID string) []byte {
	return []byte(convKeyPrefix + ownerID + "/")
}

// =============================================================================
// ChatStore Implementation
// =============================================================================

// Create persists a new conversation. Returns ErrAlreadyExists when the
// key is taken.
func (s *BadgerStore) Create(ctx context.Context, conv *datatypes.Conversation) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled: %w", err)
	}
	key := convKey(conv.OwnerID, conv.ID)
	value, err := json.Marshal(conv)
	if err != nil {
		return fmt.Errorf("marshal conversation: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if err == nil {
			return ErrAlreadyExists
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("check conversation key: %w", err)
		}
		return txn.Set(key, value)
	})
}

// Find returns the conversation for (ownerID, conversationID).
func (s *BadgerStore) Find(ctx context.Context, ownerID, conversationID string) (*datatypes.Conversation, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context cancelled: %w", err)
	}
	var conv datatypes.Conversation
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(convKey(ownerID, conversationID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get conversation: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &conv)
		})
	})
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// List returns summaries for the owner's conversations, most recently
// updated first.
func (s *BadgerStore) List(ctx context.Context, ownerID string) ([]datatypes.ConversationSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context cancelled: %w", err)
	}
	summaries := []datatypes.ConversationSummary{}
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = ownerPrefix(ownerID)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			var conv datatypes.Conversation
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &conv)
			})
			if err != nil {
				return fmt.Errorf("unmarshal conversation: %w", err)
			}
			summaries = append(summaries, conv.Summary())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].UpdatedAt > summaries[j].UpdatedAt
	})
	return summaries, nil
}

// Rename updates the conversation's display name.
func (s *BadgerStore) Rename(ctx context.Context, ownerID, conversationID, name string) error {
	return s.mutate(ctx, ownerID, conversationID, func(conv *datatypes.Conversation) {
		conv.Name = name
	})
}

// Delete removes the conversation.
func (s *BadgerStore) Delete(ctx context.Context, ownerID, conversationID string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled: %w", err)
	}
	key := convKey(ownerID, conversationID)
	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		} else if err != nil {
			return fmt.Errorf("get conversation: %w", err)
		}
		return txn.Delete(key)
	})
}

// AppendExchange appends the user turn and the assistant turn in one
// transaction. Either both turns land or, on any error, neither does.
func (s *BadgerStore) AppendExchange(ctx context.Context, ownerID, conversationID string, userTurn, assistantTurn datatypes.Turn) (*datatypes.Conversation, error) {
	var updated *datatypes.Conversation
	err := s.mutate(ctx, ownerID, conversationID, func(conv *datatypes.Conversation) {
		conv.Messages = append(conv.Messages, userTurn, assistantTurn)
		updated = conv
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// mutate runs a read-modify-write cycle on one conversation and bumps
// UpdatedAt.
func (s *BadgerStore) mutate(ctx context.Context, ownerID, conversationID string, fn func(*datatypes.Conversation)) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled: %w", err)
	}
	key := convKey(ownerID, conversationID)
	return s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get conversation: %w", err)
		}
		var conv datatypes.Conversation
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &conv)
		}); err != nil {
			return fmt.Errorf("unmarshal conversation: %w", err)
		}
		fn(&conv)
		conv.UpdatedAt = time.Now().UnixMilli()
		value, err := json.Marshal(&conv)
		if err != nil {
			return fmt.Errorf("marshal conversation: %w", err)
		}
		return txn.Set(key, value)
	})
}
