// Copyright (C) 2010 The Kaphan Foundation.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package main

import (
	"context"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/seangeo/winnow/internal/api"
	"github.com/seangeo/winnow/internal/config"
	"github.com/seangeo/winnow/internal/engine"
	"github.com/seangeo/winnow/pkg/log"
)

func startHTTPServer(classificationEngine *engine.Engine) *http.Server {
	r := mux.NewRouter()

	restapi := &api.RestApi{Engine: classificationEngine}
	restapi.MountRoutes(r)

	r.Use(handlers.CompressHandler)
	r.Use(handlers.RecoveryHandler(handlers.PrintRecoveryStack(true)))

	handler := handlers.CustomLoggingHandler(io.Discard, r,
		func(_ io.Writer, params handlers.LogFormatterParams) {
			log.Debugf("%s %s (%d, %.02fkb, %dms)",
				params.Request.Method, params.URL.RequestURI(),
				params.StatusCode, float32(params.Size)/1024,
				time.Since(params.TimeStamp).Milliseconds())
		})

	srv := &http.Server{
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		Handler:      handler,
		Addr:         config.Keys.Addr,
	}

	listener, err := net.Listen("tcp", config.Keys.Addr)
	if err != nil {
		log.Fatalf("starting http listener failed: %v", err)
	}

	go func() {
		if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Fatalf("starting server failed: %v", err)
		}
	}()

	log.Infof("classifier listening on %s", config.Keys.Addr)
	return srv
}

func shutdownHTTPServer(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("http server shutdown: %v", err)
	}
}
