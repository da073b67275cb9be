/*
NAME
  dsmcc.go - DSM-CC DII/DDB data-carousel download reassembly.

DESCRIPTION
  Reads DSM-CC DownloadInfoIndication and DownloadDataBlock sections
  and reassembles a module's blocks into the complete object once
  every block has arrived, restarting the download if a DII version
  changes mid-transfer.

LICENSE
  Copyright (C) 2026 the isdbt authors. All Rights Reserved.
*/

// Package dsmcc reassembles DSM-CC download carousels: a DII
// announces each module's size and version, and successive DDB
// sections each carry one block of module data, per spec.md §4.9.
package dsmcc

// ModuleInfo is one module entry announced by a DII section.
type ModuleInfo struct {
	ModuleID      uint16
	ModuleSize    uint32
	ModuleVersion uint8
	BlockSize     uint16
}

// Dii is a parsed Download Info Indication section.
type Dii struct {
	DownloadID uint32
	BlockSize  uint16
	Modules    []ModuleInfo
}

// ReadDii parses a DII message from the MPEG section payload data
// (the section's syntax.table_id_extension carries transaction
// identifiers not modeled here; data begins at the DSM-CC message
// header's download_id field per the carousel profile used by ARIB).
func ReadDii(data []byte) (Dii, bool) {
	if len(data) < 12 {
		return Dii{}, false
	}
	downloadID := uint32(data[0])<<24 | uint32(data[1])<<16 | uint32(data[2])<<8 | uint32(data[3])
	blockSize := uint16(data[8])<<8 | uint16(data[9])
	numModules := int(uint16(data[10])<<8 | uint16(data[11]))
	rest := data[12:]

	var modules []ModuleInfo
	for i := 0; i < numModules && len(rest) >= 8; i++ {
		modID := uint16(rest[0])<<8 | uint16(rest[1])
		modSize := uint32(rest[2])<<24 | uint32(rest[3])<<16 | uint32(rest[4])<<8 | uint32(rest[5])
		modVersion := rest[6]
		infoLen := int(rest[7])
		if len(rest) < 8+infoLen {
			break
		}
		modules = append(modules, ModuleInfo{ModuleID: modID, ModuleSize: modSize, ModuleVersion: modVersion})
		rest = rest[8+infoLen:]
	}

	return Dii{DownloadID: downloadID, BlockSize: blockSize, Modules: modules}, true
}

// Ddb is a parsed Download Data Block section.
type Ddb struct {
	ModuleID      uint16
	ModuleVersion uint8
	BlockNumber   uint16
	BlockData     []byte
}

// ReadDdb parses a DDB message from the section payload data.
func ReadDdb(data []byte) (Ddb, bool) {
	if len(data) < 8 {
		return Ddb{}, false
	}
	modID := uint16(data[0])<<8 | uint16(data[1])
	modVersion := data[2]
	blockNumber := uint16(data[4])<<8 | uint16(data[5])
	blockDataLen := int(uint16(data[6])<<8 | uint16(data[7]))
	if len(data) < 8+blockDataLen {
		return Ddb{}, false
	}
	return Ddb{ModuleID: modID, ModuleVersion: modVersion, BlockNumber: blockNumber, BlockData: data[8 : 8+blockDataLen]}, true
}

// DownloadData accumulates a single module's blocks as DDBs arrive.
type DownloadData struct {
	downloadID uint32
	moduleID   uint16
	version    uint8
	blockSize  uint16
	buf        []byte
	received   []bool
	numBlocks  int
}

// NewDownloadData starts accumulating module info (announced by a
// DII) into a fresh buffer.
func NewDownloadData(downloadID uint32, info ModuleInfo, blockSize uint16) *DownloadData {
	numBlocks := int(info.ModuleSize) / int(blockSize)
	if int(info.ModuleSize)%int(blockSize) != 0 {
		numBlocks++
	}
	return &DownloadData{
		downloadID: downloadID,
		moduleID:   info.ModuleID,
		version:    info.ModuleVersion,
		blockSize:  blockSize,
		buf:        make([]byte, info.ModuleSize),
		received:   make([]bool, numBlocks),
		numBlocks:  numBlocks,
	}
}

// AddBlock incorporates one DDB block. needsRestart is true if the
// block's (download_id, module_version) doesn't match this
// accumulator — the caller must discard it and start a fresh one.
func (d *DownloadData) AddBlock(downloadID uint32, block Ddb) (needsRestart bool) {
	if downloadID != d.downloadID || block.ModuleVersion != d.version {
		return true
	}
	if int(block.BlockNumber) >= d.numBlocks {
		return false
	}
	off := int(block.BlockNumber) * int(d.blockSize)
	end := off + len(block.BlockData)
	if end > len(d.buf) {
		end = len(d.buf)
	}
	copy(d.buf[off:end], block.BlockData)
	d.received[block.BlockNumber] = true
	return false
}

// Complete reports whether every block has arrived, returning the
// fully assembled module data when true.
func (d *DownloadData) Complete() ([]byte, bool) {
	for _, got := range d.received {
		if !got {
			return nil, false
		}
	}
	return d.buf, true
}
