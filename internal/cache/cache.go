// Package cache persists two things internal/session can otherwise recompute
// from scratch every run: a word's inferred stack effect (internal/types),
// keyed by its source text, and the superinstruction fusion pattern table
// (internal/optimize) a project has accumulated across compiles. Grounded
// on server/dao/sqlite's sqlite.Store, adapted from session/game-world
// storage to compiler memoization.
package cache

import (
	"database/sql"
	"fmt"
	"path/filepath"

	"github.com/dekarrin/rezi"
	"github.com/dekarrin/vorth/internal/types"
	_ "modernc.org/sqlite"
)

// Store is a persistent memoization cache backed by a single sqlite file.
type Store struct {
	db *sql.DB
}

// Open creates (if needed) and opens the cache database under dir.
func Open(dir string) (*Store, error) {
	path := filepath.Join(dir, "vorth-cache.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}

	s := &Store{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init() error {
	stmt := `CREATE TABLE IF NOT EXISTS stack_effects (
		source_hash TEXT NOT NULL PRIMARY KEY,
		effect_data BLOB NOT NULL
	);
	CREATE TABLE IF NOT EXISTS fusion_patterns (
		first_op INTEGER NOT NULL,
		second_op INTEGER NOT NULL,
		fused_op INTEGER NOT NULL,
		hit_count INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (first_op, second_op)
	);`
	_, err := s.db.Exec(stmt)
	if err != nil {
		return fmt.Errorf("init cache schema: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// LookupEffect returns the cached StackEffect for a word whose source body
// hashes to sourceHash, if present.
func (s *Store) LookupEffect(sourceHash string) (types.StackEffect, bool, error) {
	var blob []byte
	err := s.db.QueryRow(`SELECT effect_data FROM stack_effects WHERE source_hash = ?`, sourceHash).Scan(&blob)
	if err == sql.ErrNoRows {
		return types.StackEffect{}, false, nil
	}
	if err != nil {
		return types.StackEffect{}, false, fmt.Errorf("lookup effect: %w", err)
	}

	var eff types.StackEffect
	if _, err := rezi.DecBinary(blob, &eff); err != nil {
		return types.StackEffect{}, false, fmt.Errorf("decode cached effect: %w", err)
	}
	return eff, true, nil
}

// StoreEffect memoizes a word's inferred StackEffect under sourceHash, so a
// later LookupEffect for byte-identical source returns it without
// re-running the inferencer. internal/session calls neither method.
func (s *Store) StoreEffect(sourceHash string, eff types.StackEffect) error {
	blob := rezi.EncBinary(eff)
	_, err := s.db.Exec(
		`INSERT INTO stack_effects (source_hash, effect_data) VALUES (?, ?)
		 ON CONFLICT(source_hash) DO UPDATE SET effect_data = excluded.effect_data`,
		sourceHash, blob,
	)
	if err != nil {
		return fmt.Errorf("store effect: %w", err)
	}
	return nil
}

// RecordFusionHit increments the hit counter for a (first, second) ->
// fused opcode triple, feeding internal/optimize's decision about which
// superinstructions are worth adding to fusionPairs in a future build of
// the optimizer itself.
func (s *Store) RecordFusionHit(firstOp, secondOp, fusedOp int) error {
	_, err := s.db.Exec(
		`INSERT INTO fusion_patterns (first_op, second_op, fused_op, hit_count) VALUES (?, ?, ?, 1)
		 ON CONFLICT(first_op, second_op) DO UPDATE SET hit_count = hit_count + 1`,
		firstOp, secondOp, fusedOp,
	)
	if err != nil {
		return fmt.Errorf("record fusion hit: %w", err)
	}
	return nil
}

// TopFusionPatterns returns the limit most-frequently-hit (first, second,
// fused) opcode triples recorded so far, most frequent first.
func (s *Store) TopFusionPatterns(limit int) ([][3]int, error) {
	rows, err := s.db.Query(
		`SELECT first_op, second_op, fused_op FROM fusion_patterns ORDER BY hit_count DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query fusion patterns: %w", err)
	}
	defer rows.Close()

	var out [][3]int
	for rows.Next() {
		var a, b, c int
		if err := rows.Scan(&a, &b, &c); err != nil {
			return nil, fmt.Errorf("scan fusion pattern: %w", err)
		}
		out = append(out, [3]int{a, b, c})
	}
	return out, rows.Err()
}
