// Package core defines the types shared by codecs and the pipeline.
package core

import "strings"

// Layer identifies one of the seven OSI layers, numbered bottom-up.
type Layer uint8

const (
	Physical Layer = iota + 1
	DataLink
	Network
	Transport
	Session
	Presentation
	Application
)

var layerNames = [...]string{
	Physical:     "Physical Layer",
	DataLink:     "Data Link Layer",
	Network:      "Network Layer",
	Transport:    "Transport Layer",
	Session:      "Session Layer",
	Presentation: "Presentation Layer",
	Application:  "Application Layer",
}

var layerKeys = [...]string{
	Physical:     "physical",
	DataLink:     "datalink",
	Network:      "network",
	Transport:    "transport",
	Session:      "session",
	Presentation: "presentation",
	Application:  "application",
}

// Layers lists every layer top-down, the order Send walks them.
func Layers() []Layer {
	return []Layer{Application, Presentation, Session, Transport, Network, DataLink, Physical}
}

// Valid reports whether l is one of the seven layers.
func (l Layer) Valid() bool {
	return l >= Physical && l <= Application
}

// String returns the trace name, e.g. "Data Link Layer".
func (l Layer) String() string {
	if !l.Valid() {
		return "Unknown Layer"
	}
	return layerNames[l]
}

// Key returns the configuration key, e.g. "datalink".
func (l Layer) Key() string {
	if !l.Valid() {
		return ""
	}
	return layerKeys[l]
}

// ParseLayer resolves a configuration key (case-insensitive).
func ParseLayer(key string) (Layer, bool) {
	key = strings.ToLower(strings.TrimSpace(key))
	for l := Physical; l <= Application; l++ {
		if layerKeys[l] == key {
			return l, true
		}
	}
	return 0, false
}

// Direction tells whether a frame is on its way down or up the stack.
type Direction uint8

const (
	Sending Direction = iota
	Receiving
)

func (d Direction) String() string {
	if d == Receiving {
		return "Receiving"
	}
	return "Sending"
}

// DefaultSenderID is used when no hardware address can be found.
const DefaultSenderID = "00:00:00:00:00:00"

// Metadata is encode-time context. Only layers that ask for it see it.
type Metadata struct {
	SenderID string
}
