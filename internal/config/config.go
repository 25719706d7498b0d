// Copyright (C) 2010 The Kaphan Foundation.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package config

import (
	"bytes"
	"encoding/json"
	"os"
	"time"

	"github.com/seangeo/winnow/pkg/log"
	"github.com/seangeo/winnow/pkg/schema"
)

var Keys schema.ProgramConfig = schema.ProgramConfig{
	Addr:              "localhost:8008",
	ClassifierWorkers: 1,
	InsertionWorkers:  1,
	AutoDeleteAfter:   "15m",
	TaggingDB:         "./var/taggings.db",
	ItemCacheDB:       "./var/items.db",
}

// Init overwrites the defaults with the options from the config file, after
// validating it against the embedded schema. A missing file keeps the
// defaults.
func Init(flagConfigFile string) {
	raw, err := os.ReadFile(flagConfigFile)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Fatalf("Reading config file: %v", err)
		}
		return
	}

	if err := schema.Validate(schema.Config, bytes.NewReader(raw)); err != nil {
		log.Fatalf("Validate config: %v", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&Keys); err != nil {
		log.Fatalf("Decoding config file: %v", err)
	}
}

// AutoDeleteAfter parses the configured auto-delete window.
func AutoDeleteAfter() time.Duration {
	d, err := time.ParseDuration(Keys.AutoDeleteAfter)
	if err != nil {
		log.Warnf("Could not parse duration for auto-delete-after: %v", Keys.AutoDeleteAfter)
		return 15 * time.Minute
	}
	return d
}
