// Copyright (C) 2010 The Kaphan Foundation.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package fetch retrieves tag documents over HTTP with conditional GET
// semantics and optional HMAC request signing.
package fetch

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/seangeo/winnow/pkg/log"
	"github.com/seangeo/winnow/pkg/schema"
)

type Status int

const (
	OK Status = iota
	NotModified
	NotFound
	Fail
)

// Func is the retriever contract used by the tagger cache. A zero
// ifModifiedSince requests the document unconditionally.
type Func func(url string, ifModifiedSince time.Time, creds *schema.Credentials) (Status, []byte, error)

var client = &http.Client{Timeout: 30 * time.Second}

// Document fetches url, sending an If-Modified-Since header when
// ifModifiedSince is set and signing the request when credentials are given.
func Document(rawurl string, ifModifiedSince time.Time, creds *schema.Credentials) (Status, []byte, error) {
	req, err := http.NewRequest(http.MethodGet, rawurl, nil)
	if err != nil {
		return Fail, nil, err
	}

	if !ifModifiedSince.IsZero() {
		req.Header.Set("If-Modified-Since", ifModifiedSince.UTC().Format(http.TimeFormat))
	}

	if creds != nil {
		sign(req, creds)
	}

	resp, err := client.Do(req)
	if err != nil {
		log.Warnf("fetching %s failed: %v", rawurl, err)
		return Fail, nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return Fail, nil, err
		}
		return OK, body, nil
	case http.StatusNotModified:
		return NotModified, nil, nil
	case http.StatusNotFound:
		return NotFound, nil, fmt.Errorf("%s does not exist", rawurl)
	default:
		return Fail, nil, fmt.Errorf("got HTTP %d for %s", resp.StatusCode, rawurl)
	}
}

// sign adds an AuthHMAC style Authorization header built from the request
// method, date and path.
func sign(req *http.Request, creds *schema.Credentials) {
	date := time.Now().UTC().Format(http.TimeFormat)
	req.Header.Set("Date", date)

	path := req.URL.Path
	if path == "" {
		path = "/"
	}

	mac := hmac.New(sha1.New, []byte(creds.SecretKey))
	fmt.Fprintf(mac, "%s\n\n\n%s\n%s", req.Method, date, path)
	signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	req.Header.Set("Authorization", fmt.Sprintf("AuthHMAC %s:%s", creds.AccessID, signature))
}
