// Package message builds the payloads pushed to chat clients. Timestamps are
// always taken from the server clock when the payload is built.
package message

import (
	"strconv"
	"time"

	"github.com/goccy/go-json"
)

const mapsURL = "https://www.google.com/maps?q="

// Text is a group chat line, also used for group typing notices.
type Text struct {
	From      string `json:"from"`
	Text      string `json:"text"`
	CreatedAt int64  `json:"createdAt"`
}

// Location carries a map link built from a shared position.
type Location struct {
	From      string `json:"from"`
	URL       string `json:"url"`
	CreatedAt int64  `json:"createdAt"`
}

// Private is addressed to a single connection. To holds the socket id the
// recipient should answer to. Files are relayed exactly as the sender wrote
// them.
type Private struct {
	From      string            `json:"from"`
	To        string            `json:"to"`
	Text      string            `json:"text"`
	Files     []json.RawMessage `json:"files"`
	CreatedAt int64             `json:"createdAt"`
}

// Formatter stamps payloads with the time returned by Now.
type Formatter struct {
	Now func() time.Time
}

func (f Formatter) stamp() int64 {
	return f.Now().UnixMilli()
}

func (f Formatter) Generate(from, text string) Text {
	return Text{From: from, Text: text, CreatedAt: f.stamp()}
}

func (f Formatter) GenerateLocation(from string, latitude, longitude float64) Location {
	return Location{
		From:      from,
		URL:       LocationURL(latitude, longitude),
		CreatedAt: f.stamp(),
	}
}

func (f Formatter) GeneratePrivate(from, to, text string, files []json.RawMessage) Private {
	if files == nil {
		files = []json.RawMessage{}
	}
	return Private{From: from, To: to, Text: text, Files: files, CreatedAt: f.stamp()}
}

// LocationURL renders coordinates with the shortest representation, so 10.0
// becomes "10". Ranges are not checked.
func LocationURL(latitude, longitude float64) string {
	return mapsURL + strconv.FormatFloat(latitude, 'f', -1, 64) + "," + strconv.FormatFloat(longitude, 'f', -1, 64)
}
