// Copyright (C) 2010 The Kaphan Foundation.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestInitMissingFileKeepsDefaults(t *testing.T) {
	Init(filepath.Join(t.TempDir(), "does-not-exist.json"))
	if Keys.Addr != "localhost:8008" {
		t.Errorf("expected default addr, got %s", Keys.Addr)
	}
	if Keys.ClassifierWorkers != 1 {
		t.Errorf("expected 1 classifier worker, got %d", Keys.ClassifierWorkers)
	}
}

func TestInitReadsConfigFile(t *testing.T) {
	fp := filepath.Join(t.TempDir(), "config.json")
	cfg := `{
	"addr": "0.0.0.0:8008",
	"classifier-workers": 4,
	"insertion-workers": 2,
	"auto-delete-after": "30m",
	"tag-index-url": "http://trunk.mindloom.org:80/tags.atom",
	"credentials": {"access_id": "collector", "secret_key": "sekrit"}
}`
	if err := os.WriteFile(fp, []byte(cfg), 0666); err != nil {
		t.Fatal(err)
	}

	Init(fp)

	if Keys.Addr != "0.0.0.0:8008" {
		t.Errorf("wrong addr: %s", Keys.Addr)
	}
	if Keys.ClassifierWorkers != 4 || Keys.InsertionWorkers != 2 {
		t.Errorf("wrong worker counts: %d/%d", Keys.ClassifierWorkers, Keys.InsertionWorkers)
	}
	if Keys.Credentials == nil || Keys.Credentials.AccessID != "collector" {
		t.Errorf("wrong credentials: %+v", Keys.Credentials)
	}
	if AutoDeleteAfter().Minutes() != 30 {
		t.Errorf("wrong auto-delete window: %v", AutoDeleteAfter())
	}
}
