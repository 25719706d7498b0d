// Copyright (C) 2010 The Kaphan Foundation.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package repository

import (
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/seangeo/winnow/pkg/log"
	"github.com/seangeo/winnow/pkg/schema"
)

var (
	taggingRepoOnce     sync.Once
	taggingRepoInstance *TaggingRepository
)

type TaggingRepository struct {
	dbConn *DBConnection
}

func GetTaggingRepository() *TaggingRepository {
	taggingRepoOnce.Do(func() {
		taggingRepoInstance = &TaggingRepository{dbConn: GetConnection()}
	})
	return taggingRepoInstance
}

// Store writes a tagging, replacing any previous tagging of the same item
// by the same tag.
func (r *TaggingRepository) Store(tagging *schema.Tagging) error {
	_, err := r.dbConn.DB.Exec(
		`INSERT INTO taggings (user, tag_name, user_id, tag_id, item_id, strength, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT(tag_id, item_id) DO UPDATE SET
		   strength = excluded.strength, created_at = excluded.created_at`,
		tagging.User, tagging.TagName, tagging.UserID, tagging.TagID, tagging.ItemID,
		tagging.Strength, time.Now().Unix())
	if err != nil {
		log.Errorf("Error while storing tagging for %s: %v", tagging.ItemID, err)
		return err
	}
	return nil
}

// ForTag returns all taggings a tag produced, strongest first.
func (r *TaggingRepository) ForTag(tagID string) ([]*schema.Tagging, error) {
	query, args, err := sq.Select("user", "tag_name", "user_id", "tag_id", "item_id", "strength").
		From("taggings").
		Where(sq.Eq{"tag_id": tagID}).
		OrderBy("strength DESC", "item_id ASC").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.dbConn.DB.Queryx(query, args...)
	if err != nil {
		log.Error("Error while running query")
		return nil, err
	}
	defer rows.Close()

	taggings := make([]*schema.Tagging, 0)
	for rows.Next() {
		var t schema.Tagging
		if err := rows.StructScan(&t); err != nil {
			return nil, err
		}
		taggings = append(taggings, &t)
	}
	return taggings, rows.Err()
}

// DeleteForTag removes a tag's taggings, for example before re-classifying
// against an updated training document.
func (r *TaggingRepository) DeleteForTag(tagID string) (int64, error) {
	res, err := r.dbConn.DB.Exec(`DELETE FROM taggings WHERE tag_id = $1`, tagID)
	if err != nil {
		log.Error("Error while running query")
		return 0, err
	}
	return res.RowsAffected()
}

// Count returns the total number of stored taggings.
func (r *TaggingRepository) Count() (int, error) {
	var count int
	err := r.dbConn.DB.QueryRow(`SELECT count(*) FROM taggings`).Scan(&count)
	return count, err
}
