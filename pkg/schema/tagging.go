// Copyright (C) 2010 The Kaphan Foundation.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package schema

// A Tagging assigns a tag to an item with a strength in [0,1]. TagID is the
// tag document's id URI, ItemID the id of the classified item in the item
// cache.
type Tagging struct {
	User     string  `json:"user,omitempty" db:"user"`
	TagName  string  `json:"tag_name,omitempty" db:"tag_name"`
	UserID   int     `json:"user_id,omitempty" db:"user_id"`
	TagID    string  `json:"tag_id" db:"tag_id"`
	ItemID   string  `json:"item_id" db:"item_id"`
	Strength float64 `json:"strength" db:"strength"`
}
