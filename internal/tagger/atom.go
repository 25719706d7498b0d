// Copyright (C) 2010 The Kaphan Foundation.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package tagger

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"time"
)

// Atom vocabulary of tag training documents and the tag index. The
// 'classifier' namespace carries the training metadata.
const (
	atomNS       = "http://www.w3.org/2005/Atom"
	classifierNS = "http://peerworks.org/classifier"

	selfRel            = "self"
	editRel            = "http://peerworks.org/classifier/edit"
	negativeExampleRel = "http://peerworks.org/classifier/negative-example"
	trainingRel        = "http://peerworks.org/classifier/training"
)

type atomLink struct {
	Rel  string `xml:"rel,attr"`
	Href string `xml:"href,attr"`
}

type atomCategory struct {
	Term string `xml:"term,attr"`
}

type atomEntry struct {
	ID         string         `xml:"http://www.w3.org/2005/Atom id"`
	Links      []atomLink     `xml:"http://www.w3.org/2005/Atom link"`
	Categories []atomCategory `xml:"http://www.w3.org/2005/Atom category"`
	UserID     string         `xml:"http://peerworks.org/classifier user_id"`
	Raw        string         `xml:",innerxml"`
}

// source re-wraps the entry's inner XML so it can be handed to the item
// cache and later to the tokenizer.
func (e *atomEntry) source() []byte {
	return []byte(fmt.Sprintf("<entry xmlns=%q>%s</entry>", atomNS, e.Raw))
}

type atomFeed struct {
	XMLName    xml.Name    `xml:"http://www.w3.org/2005/Atom feed"`
	ID         string      `xml:"http://www.w3.org/2005/Atom id"`
	Title      string      `xml:"http://www.w3.org/2005/Atom title"`
	Updated    string      `xml:"http://www.w3.org/2005/Atom updated"`
	Links      []atomLink  `xml:"http://www.w3.org/2005/Atom link"`
	Classified string      `xml:"http://peerworks.org/classifier classified"`
	Bias       string      `xml:"http://peerworks.org/classifier bias"`
	UserID     string      `xml:"http://peerworks.org/classifier user_id"`
	Entries    []atomEntry `xml:"http://www.w3.org/2005/Atom entry"`
}

func parseFeed(doc []byte) (*atomFeed, error) {
	var feed atomFeed
	if err := xml.Unmarshal(doc, &feed); err != nil {
		return nil, fmt.Errorf("the tag document was badly formed: %w", err)
	}
	return &feed, nil
}

func (f *atomFeed) linkHref(rel string) string {
	for _, l := range f.Links {
		if l.Rel == rel {
			return l.Href
		}
	}
	return ""
}

func (e *atomEntry) linkHref(rel string) string {
	for _, l := range e.Links {
		if l.Rel == rel {
			return l.Href
		}
	}
	return ""
}

func (e *atomEntry) hasLink(rel string) bool {
	return e.linkHref(rel) != ""
}

func (f *atomFeed) updatedTime() time.Time {
	return parseTime(f.Updated)
}

func (f *atomFeed) classifiedTime() time.Time {
	return parseTime(f.Classified)
}

func (f *atomFeed) biasValue() float64 {
	if f.Bias == "" {
		return 1.0
	}
	bias, err := strconv.ParseFloat(f.Bias, 64)
	if err != nil {
		return 1.0
	}
	return bias
}

func (f *atomFeed) userIDValue() int {
	if f.UserID == "" {
		return 0
	}
	id, err := strconv.Atoi(f.UserID)
	if err != nil {
		return 0
	}
	return id
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
