/*
NAME
  caption.go - ARIB caption PES framing: Independent PES, DataGroup, data units.

DESCRIPTION
  Decodes an ARIB caption PES payload down through its Independent
  PES wrapper and DataGroup framing to either management data
  (language table, display mode) or a caption statement's sequence
  of tagged data units.

LICENSE
  Copyright (C) 2026 the isdbt authors. All Rights Reserved.
*/

// Package caption decodes the ARIB STD-B24 caption sub-protocol
// carried inside PES packets: the Independent PES framing, DataGroup
// management/statement bodies, and their data units, per spec.md §4.9.
package caption

import "github.com/pkg/errors"

// ErrMalformed is returned when a caption structure fails a length
// or framing check.
var ErrMalformed = errors.New("caption: malformed data")

// IndependentPes is the synchronized PES data framing wrapping a
// DataGroup: a fixed sync byte, a private_stream_id, and a PES_data_
// private_data_byte header of fixed length before the DataGroup.
type IndependentPes struct {
	DataGroup []byte
}

// ParseIndependentPES parses the Independent PES framing from a PES
// packet's data payload.
func ParseIndependentPES(data []byte) (IndependentPes, bool) {
	// synchronized_PES_data(): data_identifier(1) private_stream_id(1)
	// PES_data_packet_header_length(4 bits, in low nibble of 1 byte).
	if len(data) < 3 {
		return IndependentPes{}, false
	}
	headerLen := int(data[2] & 0x0F)
	start := 3 + headerLen
	if len(data) < start {
		return IndependentPes{}, false
	}
	return IndependentPes{DataGroup: data[start:]}, true
}

// DataGroup is one ARIB data_group: management (language list, TMD,
// display mode, rollup) when DataGroupID is 0x00 or 0x20, a caption
// statement (data units) otherwise.
type DataGroup struct {
	ID          uint8
	Version     uint8
	LinkNumber  uint8
	LastLinkNumber uint8
	Data        []byte // data_group_data_byte, CRC already stripped
}

// ReadDataGroup parses a DataGroup from b.
func ReadDataGroup(b []byte) (DataGroup, bool) {
	if len(b) < 6 {
		return DataGroup{}, false
	}
	// data_group_id(6 bits) data_group_version(2 bits) in b[0],
	// data_group_link_number(1) last_data_group_link_number(1),
	// data_group_size(2), then data_group_data_byte + CRC_16(2).
	id := b[0] >> 2
	version := b[0] & 0x03
	link := b[1]
	lastLink := b[2]
	size := int(uint16(b[3])<<8 | uint16(b[4]))
	if len(b) < 5+size+2 {
		return DataGroup{}, false
	}
	return DataGroup{ID: id, Version: version, LinkNumber: link, LastLinkNumber: lastLink, Data: b[5 : 5+size]}, true
}

// IsManagement reports whether this DataGroup carries management
// data rather than a caption statement.
func (d DataGroup) IsManagement() bool { return d.ID == 0x00 || d.ID == 0x20 }

// ManagementData is the decoded management DataGroup payload.
type ManagementData struct {
	TMD         uint8
	Languages   []LanguageInfo
	DisplayMode uint8 // not set by ReadManagementData; per-language modes are in Languages
}

// LanguageInfo is one entry of a ManagementData's language list.
type LanguageInfo struct {
	LanguageCode string
	DisplayMode  uint8
	RollupMode   uint8
}

// ReadManagementData decodes a management DataGroup's data bytes.
func ReadManagementData(b []byte) (ManagementData, bool) {
	if len(b) < 2 {
		return ManagementData{}, false
	}
	tmd := (b[0] & 0xC0) >> 6
	off := 1
	if tmd == 0b10 {
		off += 5 // offset_time, when TMD == 0b10
	}
	if len(b) <= off {
		return ManagementData{}, false
	}
	numLangs := int(b[off])
	off++
	var langs []LanguageInfo
	for i := 0; i < numLangs && len(b) >= off+5; i++ {
		displayMode := (b[off+1] & 0xFC) >> 2
		rollup := b[off+1] & 0x03
		lang := string(b[off+2 : off+5])
		langs = append(langs, LanguageInfo{LanguageCode: lang, DisplayMode: displayMode, RollupMode: rollup})
		off += 5
	}
	return ManagementData{TMD: tmd, Languages: langs}, true
}

// DataUnitTag identifies the kind of a caption data unit.
type DataUnitTag uint8

const (
	DataUnitStatementBody DataUnitTag = 0x20
	DataUnitDRCS          DataUnitTag = 0x30 // DRCS glyph data
	DataUnitBitmap        DataUnitTag = 0x35
	DataUnitGeometric     DataUnitTag = 0x36
	DataUnitColormap      DataUnitTag = 0x34
	DataUnitSynthesizedSound DataUnitTag = 0x38
)

// DataUnit is one caption_data_unit: an 8-unit code sequence or a
// DRCS/bitmap/geometric/colormap/sound payload, tagged by parameter.
type DataUnit struct {
	Tag  DataUnitTag
	Data []byte
}

// StatementData decodes a caption statement DataGroup's data bytes
// (TMD + optional offset_time + data_unit_loop) into its data units.
func StatementData(b []byte) ([]DataUnit, bool) {
	if len(b) < 2 {
		return nil, false
	}
	tmd := (b[0] & 0xC0) >> 6
	off := 1
	if tmd == 0b10 {
		off += 5
	}
	if len(b) < off+3 {
		return nil, false
	}
	dataUnitLoopLength := int(b[off])<<16 | int(b[off+1])<<8 | int(b[off+2])
	off += 3
	if len(b) < off+dataUnitLoopLength {
		return nil, false
	}
	loop := b[off : off+dataUnitLoopLength]

	var units []DataUnit
	for len(loop) >= 5 {
		// unit_separator(1) data_unit_parameter(1) data_unit_size(3).
		param := loop[1]
		size := int(loop[2])<<16 | int(loop[3])<<8 | int(loop[4])
		if len(loop) < 5+size {
			break
		}
		units = append(units, DataUnit{Tag: DataUnitTag(param), Data: loop[5 : 5+size]})
		loop = loop[5+size:]
	}
	return units, true
}

// Caption is the tagged union the Sorter delivers to its sink: either
// management data or a caption statement's data units.
type Caption struct {
	Management *ManagementData
	DataUnits  []DataUnit
}

// IsManagement reports whether this Caption carries management data.
func (c Caption) IsManagement() bool { return c.Management != nil }

// Decode parses a full caption PES payload into a Caption.
func Decode(pesData []byte) (Caption, bool) {
	ipes, ok := ParseIndependentPES(pesData)
	if !ok {
		return Caption{}, false
	}
	dg, ok := ReadDataGroup(ipes.DataGroup)
	if !ok {
		return Caption{}, false
	}
	if dg.IsManagement() {
		mgmt, ok := ReadManagementData(dg.Data)
		if !ok {
			return Caption{}, false
		}
		return Caption{Management: &mgmt}, true
	}
	units, ok := StatementData(dg.Data)
	if !ok {
		return Caption{}, false
	}
	return Caption{DataUnits: units}, true
}
