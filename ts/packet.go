/*
NAME
  packet.go - typed, zero-copy accessors over a 188-byte Transport Stream packet.

DESCRIPTION
  Parses a 188-byte Transport Stream packet's fixed header and
  adaptation field in place, without copying the payload, and
  validates the structural invariants a conforming packet must hold
  (sync byte, reserved PID range, scrambling and adaptation-field
  control values).

LICENSE
  Copyright (C) 2026 the isdbt authors. All Rights Reserved.
*/

// Package ts provides the Transport Stream packet view, its
// adaptation field, PCR arithmetic, and a resyncing packet reader,
// per ISO/IEC 13818-1.
package ts

import (
	"github.com/pkg/errors"

	"github.com/ausocean/isdbt/pid"
)

// PacketSize is the fixed length of an MPEG-2 Transport Stream packet.
const PacketSize = 188

// SyncByte is the required first byte of every packet.
const SyncByte = 0x47

var (
	// ErrBadSync indicates the packet's first byte isn't SyncByte.
	ErrBadSync = errors.New("ts: bad sync byte")
	// ErrMalformed indicates the packet fails one of the structural
	// invariants in addition to having a valid sync byte.
	ErrMalformed = errors.New("ts: malformed packet")
)

// Packet is a read-only view over exactly PacketSize bytes. It never
// copies or allocates; every accessor reads directly from the
// underlying slice.
type Packet struct {
	b []byte
}

// View wraps b, which must be exactly PacketSize bytes, as a Packet.
func View(b []byte) Packet {
	return Packet{b: b}
}

func (p Packet) SyncByte() byte { return p.b[0] }

func (p Packet) ErrorIndicator() bool { return p.b[1]&0x80 != 0 }

func (p Packet) UnitStart() bool { return p.b[1]&0x40 != 0 }

func (p Packet) Priority() bool { return p.b[1]&0x20 != 0 }

func (p Packet) PID() pid.PID { return pid.Read(p.b[1:3]) }

func (p Packet) ScramblingControl() byte { return (p.b[3] & 0xC0) >> 6 }

func (p Packet) IsScrambled() bool { return p.ScramblingControl()&0b10 != 0 }

func (p Packet) AdaptationFieldControl() byte { return (p.b[3] & 0x30) >> 4 }

func (p Packet) ContinuityCounter() byte { return p.b[3] & 0x0F }

func (p Packet) HasAdaptationField() bool { return p.AdaptationFieldControl()&0b10 != 0 }

func (p Packet) HasPayload() bool { return p.AdaptationFieldControl()&0b01 != 0 }

// AdaptationFieldLength returns the length byte of the adaptation
// field (valid only when HasAdaptationField is true).
func (p Packet) AdaptationFieldLength() int {
	return int(p.b[4])
}

// AdaptationField returns a view over the adaptation field, or ok ==
// false if the packet carries none.
func (p Packet) AdaptationField() (AdaptationField, bool) {
	if !p.HasAdaptationField() {
		return AdaptationField{}, false
	}
	l := p.AdaptationFieldLength()
	if 5+l > PacketSize {
		return AdaptationField{}, false
	}
	return AdaptationField{b: p.b[4 : 5+l]}, true
}

// Payload returns the payload slice, or nil if the packet carries
// none (pure adaptation-field-only packet).
func (p Packet) Payload() []byte {
	if !p.HasPayload() {
		return nil
	}
	off := 4
	if p.HasAdaptationField() {
		off += 1 + p.AdaptationFieldLength()
	}
	if off > PacketSize {
		return nil
	}
	return p.b[off:]
}

// Bytes returns the raw underlying 188 bytes.
func (p Packet) Bytes() []byte { return p.b }

// isNormal implements IsNormal; PIDs 0x0002..=0x000F are reserved by
// ISO/IEC 13818-1.
func isNormal(b []byte) bool {
	if len(b) < PacketSize {
		return false
	}
	if b[0] != SyncByte {
		return false
	}
	p := View(b)
	if p.ErrorIndicator() {
		return false
	}
	v := p.PID()
	if v >= 0x0002 && v <= 0x000F {
		return false
	}
	if p.ScramblingControl() == 0b01 {
		return false
	}
	afc := p.AdaptationFieldControl()
	if afc == 0b00 {
		return false
	}
	if afc == 0b10 && p.AdaptationFieldLength() > 183 {
		return false
	}
	if afc == 0b11 && p.AdaptationFieldLength() > 182 {
		return false
	}
	return true
}

// IsNormal reports whether b (a PacketSize-byte slice) satisfies the
// structural invariants from the data model: valid sync, no error
// bit, PID outside the reserved range, scrambling control not
// reserved, adaptation field control not reserved, and adaptation
// field length consistent with that control value.
func IsNormal(b []byte) bool { return isNormal(b) }
