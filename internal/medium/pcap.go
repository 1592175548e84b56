// Package medium carries wire frames outside the process: it records sent
// bit strings as Ethernet frames in a pcap file and reads them back for
// replay.
package medium

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

const (
	// EtherType marks recorded frames; 0x88B5 is reserved for local
	// experimental use.
	EtherType layers.EthernetType = 0x88B5

	snapLen = 262144
)

var (
	broadcast = net.HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}
	zeroMAC   = net.HardwareAddr{0, 0, 0, 0, 0, 0}
)

// Frame is one recorded wire frame.
type Frame struct {
	Timestamp time.Time
	Sender    string
	Wire      []byte
}

// Recorder appends wire frames to a pcap stream. It is safe for
// concurrent use.
type Recorder struct {
	mu     sync.Mutex
	w      *pcapgo.Writer
	closer io.Closer
	now    func() time.Time
}

// NewRecorder writes the pcap file header to w.
func NewRecorder(w io.Writer) (*Recorder, error) {
	pw := pcapgo.NewWriter(w)
	if err := pw.WriteFileHeader(snapLen, layers.LinkTypeEthernet); err != nil {
		return nil, fmt.Errorf("write pcap header: %w", err)
	}
	return &Recorder{w: pw, now: time.Now}, nil
}

// Create opens path for writing, truncating any existing file.
func Create(path string) (*Recorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create pcap file: %w", err)
	}
	r, err := NewRecorder(f)
	if err != nil {
		return nil, errors.Join(err, f.Close())
	}
	r.closer = f
	return r, nil
}

// Record writes wire as the payload of a broadcast Ethernet frame. The
// source address is sender when it parses as a 48-bit MAC, zero otherwise.
func (r *Recorder) Record(wire []byte, sender string) error {
	eth := &layers.Ethernet{
		SrcMAC:       hardwareAddr(sender),
		DstMAC:       broadcast,
		EthernetType: EtherType,
	}
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true}
	if err := gopacket.SerializeLayers(buf, opts, eth, gopacket.Payload(wire)); err != nil {
		return fmt.Errorf("serialize frame: %w", err)
	}
	data := buf.Bytes()
	if len(data) > snapLen {
		return fmt.Errorf("frame of %d bytes exceeds snap length %d", len(data), snapLen)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	ci := gopacket.CaptureInfo{
		Timestamp:     r.now(),
		CaptureLength: len(data),
		Length:        len(data),
	}
	if err := r.w.WritePacket(ci, data); err != nil {
		return fmt.Errorf("write packet: %w", err)
	}
	return nil
}

// Close closes the underlying file when the recorder owns one.
func (r *Recorder) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// ReadFrames reads every recorded frame from a pcap stream. Frames with a
// different EtherType are skipped. Trailing zero bytes added as Ethernet
// padding are removed; bit-string wires never contain them.
func ReadFrames(rd io.Reader) ([]Frame, error) {
	pr, err := pcapgo.NewReader(rd)
	if err != nil {
		return nil, fmt.Errorf("read pcap header: %w", err)
	}
	if pr.LinkType() != layers.LinkTypeEthernet {
		return nil, fmt.Errorf("unsupported link type: %s", pr.LinkType())
	}

	var frames []Frame
	for {
		data, ci, err := pr.ReadPacketData()
		if errors.Is(err, io.EOF) {
			return frames, nil
		}
		if err != nil {
			return frames, fmt.Errorf("read packet %d: %w", len(frames)+1, err)
		}

		var eth layers.Ethernet
		if err := eth.DecodeFromBytes(data, gopacket.NilDecodeFeedback); err != nil {
			continue
		}
		if eth.EthernetType != EtherType {
			continue
		}
		frames = append(frames, Frame{
			Timestamp: ci.Timestamp,
			Sender:    eth.SrcMAC.String(),
			Wire:      bytes.TrimRight(bytes.Clone(eth.Payload), "\x00"),
		})
	}
}

// Open reads all frames from the pcap file at path.
func Open(path string) ([]Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pcap file: %w", err)
	}
	defer f.Close()
	return ReadFrames(f)
}

func hardwareAddr(sender string) net.HardwareAddr {
	hw, err := net.ParseMAC(sender)
	if err != nil || len(hw) != 6 {
		return zeroMAC
	}
	return hw
}
