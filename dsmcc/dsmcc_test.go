package dsmcc

import (
	"bytes"
	"testing"
)

func TestReadDii(t *testing.T) {
	data := []byte{
		0x00, 0x00, 0x00, 0x01, // download_id = 1
		0x00, 0x00, 0x00, 0x00, // unmodeled header bytes
		0x00, 0x80, // block_size = 128
		0x00, 0x01, // number_of_modules = 1
		0x00, 0x01, // module_id = 1
		0x00, 0x00, 0x01, 0x2C, // module_size = 300
		0x01, // module_version = 1
		0x00, // module_info_length = 0
	}
	dii, ok := ReadDii(data)
	if !ok {
		t.Fatal("ok = false, want true")
	}
	if dii.DownloadID != 1 || dii.BlockSize != 128 {
		t.Errorf("DownloadID/BlockSize = %d/%d, want 1/128", dii.DownloadID, dii.BlockSize)
	}
	if len(dii.Modules) != 1 {
		t.Fatalf("len(Modules) = %d, want 1", len(dii.Modules))
	}
	m := dii.Modules[0]
	if m.ModuleID != 1 || m.ModuleSize != 300 || m.ModuleVersion != 1 {
		t.Errorf("module = %+v, want {1 300 1 0}", m)
	}
}

func TestReadDiiTooShort(t *testing.T) {
	if _, ok := ReadDii([]byte{0, 1, 2}); ok {
		t.Error("ok = true, want false for a 3-byte payload")
	}
}

func TestReadDdb(t *testing.T) {
	data := []byte{
		0x00, 0x01, // module_id = 1
		0x01,       // module_version = 1
		0x00,       // reserved
		0x00, 0x00, // block_number = 0
		0x00, 0x04, // block_data length = 4
		0xAA, 0xBB, 0xCC, 0xDD,
	}
	ddb, ok := ReadDdb(data)
	if !ok {
		t.Fatal("ok = false, want true")
	}
	if ddb.ModuleID != 1 || ddb.ModuleVersion != 1 || ddb.BlockNumber != 0 {
		t.Errorf("ddb = %+v, want ModuleID=1 ModuleVersion=1 BlockNumber=0", ddb)
	}
	if !bytes.Equal(ddb.BlockData, []byte{0xAA, 0xBB, 0xCC, 0xDD}) {
		t.Errorf("BlockData = %v, want [AA BB CC DD]", ddb.BlockData)
	}
}

func TestReadDdbTruncatedBlockData(t *testing.T) {
	data := []byte{0x00, 0x01, 0x01, 0x00, 0x00, 0x00, 0x00, 0x04, 0xAA} // claims 4, has 1
	if _, ok := ReadDdb(data); ok {
		t.Error("ok = true, want false when block_data is shorter than declared")
	}
}

func TestDownloadDataAccumulatesAcrossBlocks(t *testing.T) {
	info := ModuleInfo{ModuleID: 1, ModuleSize: 10, ModuleVersion: 1}
	dd := NewDownloadData(1, info, 4) // 3 blocks: 4, 4, 2

	if _, done := dd.Complete(); done {
		t.Fatal("Complete() = true before any blocks arrived")
	}

	blocks := []Ddb{
		{ModuleID: 1, ModuleVersion: 1, BlockNumber: 0, BlockData: []byte{0, 1, 2, 3}},
		{ModuleID: 1, ModuleVersion: 1, BlockNumber: 1, BlockData: []byte{4, 5, 6, 7}},
	}
	for _, b := range blocks {
		if restart := dd.AddBlock(1, b); restart {
			t.Fatalf("AddBlock(%d) needsRestart = true, want false", b.BlockNumber)
		}
	}
	if _, done := dd.Complete(); done {
		t.Fatal("Complete() = true before the final block arrived")
	}

	last := Ddb{ModuleID: 1, ModuleVersion: 1, BlockNumber: 2, BlockData: []byte{8, 9}}
	if restart := dd.AddBlock(1, last); restart {
		t.Fatal("AddBlock(final) needsRestart = true, want false")
	}

	got, done := dd.Complete()
	if !done {
		t.Fatal("Complete() = false after every block arrived")
	}
	want := []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	if !bytes.Equal(got, want) {
		t.Errorf("assembled data = %v, want %v", got, want)
	}
}

func TestDownloadDataRequestsRestartOnVersionMismatch(t *testing.T) {
	info := ModuleInfo{ModuleID: 1, ModuleSize: 4, ModuleVersion: 1}
	dd := NewDownloadData(1, info, 4)

	mismatched := Ddb{ModuleID: 1, ModuleVersion: 2, BlockNumber: 0, BlockData: []byte{1, 2, 3, 4}}
	if restart := dd.AddBlock(1, mismatched); !restart {
		t.Error("AddBlock with a different module_version: needsRestart = false, want true")
	}

	wrongDownload := Ddb{ModuleID: 1, ModuleVersion: 1, BlockNumber: 0, BlockData: []byte{1, 2, 3, 4}}
	if restart := dd.AddBlock(99, wrongDownload); !restart {
		t.Error("AddBlock with a different download_id: needsRestart = false, want true")
	}
}

func TestDownloadDataIgnoresOutOfRangeBlockNumber(t *testing.T) {
	info := ModuleInfo{ModuleID: 1, ModuleSize: 4, ModuleVersion: 1}
	dd := NewDownloadData(1, info, 4) // 1 block

	outOfRange := Ddb{ModuleID: 1, ModuleVersion: 1, BlockNumber: 5, BlockData: []byte{1, 2, 3, 4}}
	if restart := dd.AddBlock(1, outOfRange); restart {
		t.Error("AddBlock with out-of-range block_number: needsRestart = true, want false")
	}
	if _, done := dd.Complete(); done {
		t.Error("Complete() = true, want false: the one real block never arrived")
	}
}
