/*
NAME
  pes.go - PES packet header decoding and per-PID reassembly.

DESCRIPTION
  Decodes a PES packet's optional header (stream ID, PTS/DTS/ESCR)
  and reassembles one PES packet's payload from a PID's successive
  packet payloads, in both the length-bounded and unbounded
  (video, stream_id 0xE0-0xEF) framing modes.

LICENSE
  Copyright (C) 2026 the isdbt authors. All Rights Reserved.
*/

// Package pes decodes Packetized Elementary Stream headers and
// reassembles PES packets from successive Transport Stream payloads,
// per ISO/IEC 13818-1 and spec.md §4.4.
package pes

import "github.com/Comcast/gots"

// StreamID is the PES stream_id byte.
type StreamID uint8

const (
	StreamIDProgramStreamMap StreamID = 0xBC
	StreamIDPrivateStream1   StreamID = 0xBD
	StreamIDPaddingStream    StreamID = 0xBE
	StreamIDPrivateStream2   StreamID = 0xBF
	StreamIDECM              StreamID = 0xF0
	StreamIDEMM              StreamID = 0xF1
	StreamIDProgramStreamDirectory StreamID = 0xFF
)

// hasAdditionalHeader reports whether stream_id carries the
// PTS/DTS/ESCR optional-fields header, per Table 2-21.
func (s StreamID) hasAdditionalHeader() bool {
	switch s {
	case StreamIDProgramStreamMap, StreamIDPaddingStream, StreamIDPrivateStream2,
		StreamIDECM, StreamIDEMM, StreamIDProgramStreamDirectory, 0xF2, 0xF8:
		return false
	}
	return true
}

// Option holds the optional PES header fields present when the
// stream_id carries an additional header.
type Option struct {
	PTS  *uint64
	DTS  *uint64
	ESCR *uint64
}

// Header is the decoded fixed + optional PES header.
type Header struct {
	StreamID StreamID
	Option   *Option
}

// Packet is a fully reassembled PES packet.
type Packet struct {
	Header Header
	Data   []byte
}

// readTimestamp decodes a 5-byte marker-bit-delimited 33-bit
// timestamp field (PTS or DTS), per ISO/IEC 13818-1 §2.4.3.7.
func readTimestamp(b []byte) uint64 {
	return gots.ExtractTime(b)
}

// readESCR decodes a 6-byte ESCR field.
func readESCR(b []byte) uint64 {
	v := uint64(b[0]&0x38) << 27
	v |= uint64(b[0]&0x03) << 28
	v |= uint64(b[1]) << 20
	v |= uint64(b[2]&0xF8) << 12
	v |= uint64(b[2]&0x03) << 13
	v |= uint64(b[3]) << 5
	v |= uint64(b[4]&0xF8) >> 3
	return v
}

// Parse decodes one PES packet from data, which must begin with the
// 00 00 01 start code and contain at least the fixed 6-byte header.
// ok is false on any start-code or length inconsistency.
func Parse(data []byte) (Packet, bool) {
	if len(data) < 6 || data[0] != 0x00 || data[1] != 0x00 || data[2] != 0x01 {
		return Packet{}, false
	}
	streamID := StreamID(data[3])
	pesPacketLength := int(data[4])<<8 | int(data[5])

	var body []byte
	if pesPacketLength != 0 {
		total := 6 + pesPacketLength
		if len(data) < total {
			return Packet{}, false
		}
		body = data[6:total]
	} else {
		body = data[6:]
	}

	hdr := Header{StreamID: streamID}
	payload := body

	if streamID.hasAdditionalHeader() {
		if len(body) < 3 {
			return Packet{}, false
		}
		ptsDtsFlags := (body[1] & 0xC0) >> 6
		escrFlag := body[1]&0x20 != 0
		headerDataLength := int(body[2])
		mid := 3 + headerDataLength
		if len(body) < mid {
			return Packet{}, false
		}
		optData := body[3:mid]
		payload = body[mid:]

		opt := &Option{}
		off := 0
		if ptsDtsFlags == 0b10 && len(optData) >= off+5 {
			pts := readTimestamp(optData[off : off+5])
			opt.PTS = &pts
			off += 5
		} else if ptsDtsFlags == 0b11 && len(optData) >= off+10 {
			pts := readTimestamp(optData[off : off+5])
			opt.PTS = &pts
			off += 5
			dts := readTimestamp(optData[off : off+5])
			opt.DTS = &dts
			off += 5
		}
		if escrFlag && len(optData) >= off+6 {
			escr := readESCR(optData[off : off+6])
			opt.ESCR = &escr
			off += 6
		}
		hdr.Option = opt
	}

	return Packet{Header: hdr, Data: payload}, true
}

// mode tags the Reassembler's current framing state.
type mode int

const (
	modeHeader mode = iota
	modeBounded
	modeUnbounded
	modeCompleted
)

// Reassembler accumulates packets for a single PID into complete PES
// packets, per spec.md §4.4.
type Reassembler struct {
	buf   []byte
	mode  mode
	total int // expected total length, when mode == modeBounded
}

// NewReassembler returns an empty PES Reassembler.
func NewReassembler() *Reassembler {
	return &Reassembler{buf: make([]byte, 0, 64*1024+5), mode: modeHeader}
}

// Feed appends a packet's payload. unitStart must be true exactly
// when this packet's unit_start_indicator was set. It returns a
// complete Packet when reassembly finishes, either because a bounded
// PES collected its full length, or because an unbounded PES in
// progress is flushed by the next unit-start.
func (r *Reassembler) Feed(unitStart bool, payload []byte) (Packet, bool) {
	var flushed Packet
	var hasFlushed bool

	if unitStart {
		if r.mode == modeUnbounded && len(r.buf) > 0 {
			if p, ok := Parse(r.buf); ok {
				flushed, hasFlushed = p, true
			}
		}
		r.buf = r.buf[:0]
		r.mode = modeHeader
	}

	if r.mode == modeCompleted {
		return flushed, hasFlushed
	}
	if len(payload) == 0 {
		return flushed, hasFlushed
	}

	r.buf = append(r.buf, payload...)

	if r.mode == modeHeader {
		if len(r.buf) < 6 {
			return flushed, hasFlushed
		}
		if r.buf[0] != 0x00 || r.buf[1] != 0x00 || r.buf[2] != 0x01 {
			r.mode = modeCompleted
			return flushed, hasFlushed
		}
		length := int(r.buf[4])<<8 | int(r.buf[5])
		if length == 0 {
			r.mode = modeUnbounded
		} else {
			r.mode = modeBounded
			r.total = 6 + length
		}
	}

	if r.mode == modeBounded && len(r.buf) >= r.total {
		p, ok := Parse(r.buf[:r.total])
		r.mode = modeCompleted
		if !ok {
			return flushed, hasFlushed
		}
		// A prior unbounded flush and a bounded completion can't both
		// happen in the same Feed call; bounded wins since it's later.
		return p, true
	}

	return flushed, hasFlushed
}
