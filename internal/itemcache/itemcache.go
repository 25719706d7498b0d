// Copyright (C) 2010 The Kaphan Foundation.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package itemcache is the persistent per-item token store. Entries arrive
// in their Atom source form and are turned into token maps by the feature
// extraction workers.
package itemcache

import (
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/seangeo/winnow/pkg/log"
	"github.com/seangeo/winnow/pkg/schema"
)

const extractionQueueSize = 256

type ItemCache struct {
	db         *sqlx.DB
	extraction chan string
}

// Open opens (and if necessary creates) the item cache database.
func Open(path string) (*ItemCache, error) {
	db, err := sqlx.Open("sqlite3", fmt.Sprintf("%s?_foreign_keys=on", path))
	if err != nil {
		return nil, err
	}

	// sqlite does not multithread. Having more than one connection open
	// would just mean waiting for locks.
	db.SetMaxOpenConns(1)

	if err := migrateDB(db.DB); err != nil {
		db.Close()
		return nil, err
	}

	return &ItemCache{
		db:         db,
		extraction: make(chan string, extractionQueueSize),
	}, nil
}

func (ic *ItemCache) Close() error {
	return ic.db.Close()
}

// FetchItem returns the tokenized form of an entry. Entries that exist but
// have not been through feature extraction yet do not count as present.
func (ic *ItemCache) FetchItem(id string) (*schema.Item, bool) {
	q := sq.Select("token_id", "frequency").
		From("entry_tokens").
		Where(sq.Eq{"entry_id": id})

	query, args, err := q.ToSql()
	if err != nil {
		log.Errorf("error building item query: %v", err)
		return nil, false
	}

	rows, err := ic.db.Query(query, args...)
	if err != nil {
		log.Errorf("error fetching item %s: %v", id, err)
		return nil, false
	}
	defer rows.Close()

	tokens := make(map[int]int)
	for rows.Next() {
		var token, frequency int
		if err := rows.Scan(&token, &frequency); err != nil {
			log.Errorf("error scanning token row: %v", err)
			return nil, false
		}
		tokens[token] = frequency
	}
	if rows.Err() != nil || len(tokens) == 0 {
		return nil, false
	}

	return schema.NewItem(id, tokens), true
}

// AddEntry stores an entry's Atom source and schedules it for feature
// extraction.
func (ic *ItemCache) AddEntry(entry schema.Entry) error {
	_, err := ic.db.Exec(
		`INSERT INTO entries (id, atom, added_at) VALUES ($1, $2, $3)
		 ON CONFLICT(id) DO UPDATE SET atom = excluded.atom`,
		entry.ID, entry.Atom, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("adding entry %s: %w", entry.ID, err)
	}

	ic.scheduleExtraction(entry.ID)
	return nil
}

// RequestItems adds the entries and schedules them for extraction. It is
// the add-and-extract hook the tagger cache uses for missing training items.
func (ic *ItemCache) RequestItems(entries []schema.Entry) {
	for _, entry := range entries {
		if err := ic.AddEntry(entry); err != nil {
			log.Errorf("could not add entry %s: %v", entry.ID, err)
		}
	}
}

func (ic *ItemCache) scheduleExtraction(id string) {
	select {
	case ic.extraction <- id:
	default:
		log.Warnf("feature extraction queue full, dropping %s", id)
	}
}

// ExtractionRequests is drained by the insertion workers.
func (ic *ItemCache) ExtractionRequests() <-chan string {
	return ic.extraction
}

// EntryAtom returns the stored Atom source of an entry.
func (ic *ItemCache) EntryAtom(id string) ([]byte, error) {
	var atom []byte
	err := ic.db.QueryRow(`SELECT atom FROM entries WHERE id = $1`, id).Scan(&atom)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no entry with id %s", id)
	}
	return atom, err
}

// StoreTokens records the outcome of feature extraction for an entry.
func (ic *ItemCache) StoreTokens(id string, tokens map[int]int) error {
	tx, err := ic.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM entry_tokens WHERE entry_id = $1`, id); err != nil {
		return err
	}
	for token, frequency := range tokens {
		if _, err := tx.Exec(
			`INSERT INTO entry_tokens (entry_id, token_id, frequency) VALUES ($1, $2, $3)`,
			id, token, frequency); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(
		`UPDATE entries SET tokenized_at = $1 WHERE id = $2`,
		time.Now().Unix(), id); err != nil {
		return err
	}

	return tx.Commit()
}

// ItemIDs lists the tokenized entries, the candidates for classification,
// ordered by the second they were added, then by id.
func (ic *ItemCache) ItemIDs() ([]string, error) {
	query, args, err := sq.Select("id").
		From("entries").
		Where(sq.NotEq{"tokenized_at": nil}).
		OrderBy("added_at ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, err
	}

	ids := []string{}
	if err := ic.db.Select(&ids, query, args...); err != nil {
		return nil, err
	}
	return ids, nil
}

// Count returns the number of entries, tokenized or not.
func (ic *ItemCache) Count() (int, error) {
	var count int
	err := ic.db.QueryRow(`SELECT count(*) FROM entries`).Scan(&count)
	return count, err
}
