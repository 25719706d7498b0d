// Copyright (C) 2010 The Kaphan Foundation.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package repository

import (
	"database/sql"
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
	"github.com/qustavo/sqlhooks/v2"

	"github.com/seangeo/winnow/pkg/log"
)

var (
	dbConnOnce     sync.Once
	dbConnInstance *DBConnection
)

type DBConnection struct {
	DB *sqlx.DB
}

// Connect opens the taggings database. Must be called once at startup.
func Connect(db string) {
	dbConnOnce.Do(func() {
		sql.Register("sqlite3WithHooks", sqlhooks.Wrap(&sqlite3.SQLiteDriver{}, &Hooks{}))
		dbHandle, err := sqlx.Open("sqlite3WithHooks", fmt.Sprintf("%s?_foreign_keys=on", db))
		if err != nil {
			log.Fatal(err)
		}

		// sqlite does not multithread. Having more than one connection open
		// would just mean waiting for locks.
		dbHandle.SetMaxOpenConns(1)

		if err := checkDBVersion(dbHandle.DB); err != nil {
			log.Fatal(err)
		}

		dbConnInstance = &DBConnection{DB: dbHandle}
	})
}

func GetConnection() *DBConnection {
	if dbConnInstance == nil {
		log.Fatalf("Database connection not initialized!")
	}

	return dbConnInstance
}
