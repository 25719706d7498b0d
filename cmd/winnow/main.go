// Copyright (C) 2010 The Kaphan Foundation.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/seangeo/winnow/internal/config"
	"github.com/seangeo/winnow/internal/engine"
	"github.com/seangeo/winnow/internal/fetch"
	"github.com/seangeo/winnow/internal/itemcache"
	"github.com/seangeo/winnow/internal/repository"
	"github.com/seangeo/winnow/internal/runtimeEnv"
	"github.com/seangeo/winnow/internal/tagger"
	"github.com/seangeo/winnow/pkg/log"
)

const version = "2.0.0"

func main() {
	cliInit()

	if flagVersion {
		fmt.Printf("winnow version %s\n", version)
		os.Exit(0)
	}

	log.Init(flagLogLevel, flagLogDateTime)

	if err := runtimeEnv.LoadEnv("./.env"); err != nil {
		log.Fatalf("parsing './.env' file failed: %s", err.Error())
	}

	config.Init(flagConfigFile)

	repository.Connect(config.Keys.TaggingDB)
	if flagMigrateDB {
		os.Exit(0)
	}

	items, err := itemcache.Open(config.Keys.ItemCacheDB)
	if err != nil {
		log.Fatalf("opening item cache failed: %s", err.Error())
	}

	taggerCache := tagger.NewCache(items, fetch.Document, tagger.CacheOptions{
		TagIndexURL: config.Keys.TagIndexURL,
		Credentials: config.Keys.Credentials,
	})
	if config.Keys.TagIndexURL != "" {
		taggerCache.StartIndexWatcher(10 * time.Minute)
	}

	classificationEngine := engine.New(
		taggerCache,
		items,
		repository.GetTaggingRepository(),
		itemcache.NewExtractor(config.Keys.TokenizerURL),
		engine.Options{
			ClassifierWorkers: config.Keys.ClassifierWorkers,
			InsertionWorkers:  config.Keys.InsertionWorkers,
			AutoDeleteAfter:   config.AutoDeleteAfter(),
		})

	if err := classificationEngine.Start(); err != nil {
		log.Fatalf("starting classification engine failed: %s", err.Error())
	}

	srv := startHTTPServer(classificationEngine)
	runtimeEnv.SystemdNotify(true, "running")

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs

	runtimeEnv.SystemdNotify(false, "shutting down")
	shutdownHTTPServer(srv)
	classificationEngine.Stop()
	taggerCache.Close()
	items.Close()
	log.Print("Graceful shutdown completed!")
}
