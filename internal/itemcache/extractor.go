// Copyright (C) 2010 The Kaphan Foundation.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package itemcache

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/seangeo/winnow/pkg/log"
)

// Extractor posts an entry's Atom source to the tokenizer service and
// parses the tokenized item it returns.
type Extractor struct {
	tokenizerURL string
	client       *http.Client
}

func NewExtractor(tokenizerURL string) *Extractor {
	return &Extractor{
		tokenizerURL: tokenizerURL,
		client:       &http.Client{Timeout: 30 * time.Second},
	}
}

// The tokenizer answers with a token list:
//
//	<item xmlns="http://peerworks.org/classifier" id="...">
//	  <token id="1" frequency="2"/>
//	</item>
type tokenizedItem struct {
	XMLName xml.Name `xml:"http://peerworks.org/classifier item"`
	ID      string   `xml:"id,attr"`
	Tokens  []struct {
		ID        int `xml:"id,attr"`
		Frequency int `xml:"frequency,attr"`
	} `xml:"token"`
}

func (e *Extractor) Tokenize(entryID string, atom []byte) (map[int]int, error) {
	log.Infof("tokenizing entry %s using %s", entryID, e.tokenizerURL)

	resp, err := e.client.Post(e.tokenizerURL, "application/atom+xml", bytes.NewReader(atom))
	if err != nil {
		return nil, fmt.Errorf("tokenizer not accessible: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("got %d for tokenization of %s", resp.StatusCode, entryID)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var item tokenizedItem
	if err := xml.Unmarshal(body, &item); err != nil {
		return nil, fmt.Errorf("tokenizer response for %s was badly formed: %w", entryID, err)
	}

	tokens := make(map[int]int, len(item.Tokens))
	for _, t := range item.Tokens {
		tokens[t.ID] = t.Frequency
	}
	return tokens, nil
}
