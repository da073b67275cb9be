/*
NAME
  section.go - PSI section types and per-PID reassembly from TS packets.

DESCRIPTION
  Reassembles PSI sections from a PID's successive packet payloads,
  handling the pointer_field at unit-start, CRC-32 validation, and
  the version/section-number gating a Repository applies before a
  section is accepted as new.

LICENSE
  Copyright (C) 2026 the isdbt authors. All Rights Reserved.
*/

// Package psi implements Program-Specific Information section
// reassembly, CRC-32 validation, the version-gated Repository, and
// decoders for the PAT/CAT/PMT/NIT/SDT/EIT/... table family.
package psi

import (
	"github.com/Comcast/gots"
	"github.com/pkg/errors"
)

// Syntax holds the fields present only when section_syntax_indicator is set.
type Syntax struct {
	TableIDExtension  uint16
	Version           uint8 // 5 bits
	CurrentNext       bool
	SectionNumber     uint8
	LastSectionNumber uint8
}

// Section is a fully reassembled and CRC-validated PSI section.
type Section struct {
	TableID uint8
	Syntax  *Syntax // nil when section_syntax_indicator is clear
	Data    []byte  // payload after any syntax header, excluding CRC
	CRC     uint32
}

var (
	// ErrShort indicates fewer bytes were available than section_length claims.
	ErrShort = errors.New("psi: section shorter than section_length")
	// ErrCRC indicates the CRC-32 check failed.
	ErrCRC = errors.New("psi: crc mismatch")
)

// crc32 computes the MPEG-2 systems CRC-32 over b, matching the
// narrow helper the teacher's own encoder calls when appending a
// section's trailing checksum.
func crc32(b []byte) uint32 {
	c := gots.ComputeCRC(b)
	return uint32(c[0])<<24 | uint32(c[1])<<16 | uint32(c[2])<<8 | uint32(c[3])
}

// parseSection parses one complete PSI section starting at buf[0],
// where buf is at least as long as the section. It does not check
// for trailing garbage beyond the section.
func parseSection(buf []byte) (Section, error) {
	if len(buf) < 3 {
		return Section{}, ErrShort
	}
	tableID := buf[0]
	if tableID == 0xFF {
		return Section{}, errors.New("psi: end-of-table marker")
	}
	syntaxIndicator := buf[1]&0x80 != 0
	sectionLength := int(uint16(buf[1]&0x0F)<<8 | uint16(buf[2]))
	total := 3 + sectionLength
	if len(buf) < total {
		return Section{}, ErrShort
	}
	full := buf[:total]
	if sectionLength < 4 {
		return Section{}, errors.New("psi: section_length too short for CRC")
	}

	gotCRC := crc32(full[:total-4])
	wantCRC := uint32(full[total-4])<<24 | uint32(full[total-3])<<16 | uint32(full[total-2])<<8 | uint32(full[total-1])
	if gotCRC != wantCRC {
		return Section{}, ErrCRC
	}

	sec := Section{TableID: tableID, CRC: wantCRC}
	if syntaxIndicator {
		if sectionLength < 5+4 {
			return Section{}, ErrShort
		}
		sec.Syntax = &Syntax{
			TableIDExtension:  uint16(full[3])<<8 | uint16(full[4]),
			Version:           (full[5] & 0x3E) >> 1,
			CurrentNext:       full[5]&0x01 != 0,
			SectionNumber:     full[6],
			LastSectionNumber: full[7],
		}
		sec.Data = full[8 : total-4]
	} else {
		sec.Data = full[3 : total-4]
	}
	return sec, nil
}

// sectionLen reports how many bytes buf[0:] needs for a complete
// section, or 0 if buf does not yet contain enough bytes to know
// (fewer than 3 header bytes).
func sectionLen(buf []byte) int {
	if len(buf) < 3 {
		return 0
	}
	if buf[0] == 0xFF {
		return -1 // end-of-table marker consumes one byte
	}
	sectionLength := int(uint16(buf[1]&0x0F)<<8 | uint16(buf[2]))
	return 3 + sectionLength
}

// Reassembler accumulates packets for a single PID into complete PSI
// sections, per spec.md §4.3.
type Reassembler struct {
	buf        []byte
	continuity bool // false until the first unit-start has been seen
}

// NewReassembler returns an empty section Reassembler.
func NewReassembler() *Reassembler {
	return &Reassembler{buf: make([]byte, 0, 4096)}
}

// Discard drops any partial section, used on continuity loss.
func (r *Reassembler) Discard() {
	r.buf = r.buf[:0]
	r.continuity = false
}

// Feed appends a packet's payload (unitStart indicates whether this
// packet began a PUSI-marked payload, in which case payload[0] is the
// pointer_field) and returns every complete, CRC-valid section parsed
// from the accumulated buffer, in order. Sections that fail CRC are
// reported via onError and skipped, not returned.
func (r *Reassembler) Feed(unitStart bool, payload []byte, onError func(error)) []Section {
	if len(payload) == 0 {
		return nil
	}

	if unitStart {
		ptr := int(payload[0])
		if 1+ptr > len(payload) {
			r.Discard()
			return nil
		}
		var out []Section
		if r.continuity && ptr > 0 {
			// Bytes before the pointer_field target continue the
			// previous section; parse whatever that completes.
			r.buf = append(r.buf, payload[1:1+ptr]...)
			out = append(out, r.drain(onError)...)
		}
		// A new section begins exactly at the pointer_field target,
		// discarding any unparsed remainder of the previous one.
		r.buf = append(r.buf[:0], payload[1+ptr:]...)
		r.continuity = true
		out = append(out, r.drain(onError)...)
		return out
	}

	if !r.continuity {
		return nil
	}
	r.buf = append(r.buf, payload...)
	return r.drain(onError)
}

// drain parses as many complete sections as possible from the head
// of r.buf, compacting the buffer as it goes.
func (r *Reassembler) drain(onError func(error)) []Section {
	var out []Section
	for len(r.buf) > 0 {
		if r.buf[0] == 0xFF {
			r.buf = r.buf[1:]
			continue
		}
		n := sectionLen(r.buf)
		if n == 0 {
			break // need more bytes to know the length
		}
		if n > len(r.buf) {
			break // need more bytes
		}
		sec, err := parseSection(r.buf[:n])
		r.buf = r.buf[n:]
		if err != nil {
			if onError != nil {
				onError(err)
			}
			continue
		}
		out = append(out, sec)
	}
	return out
}
