// Copyright (C) 2010 The Kaphan Foundation.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package schema

// An Entry is a content item in its Atom source form, before feature
// extraction has turned it into an Item.
type Entry struct {
	ID   string
	Atom []byte
}
