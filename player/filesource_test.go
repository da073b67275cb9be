package player

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ausocean/isdbt/ts"
)

func validTSPacket(cc byte) []byte {
	b := make([]byte, ts.PacketSize)
	b[0] = ts.SyncByte
	b[2] = 0x11
	b[3] = 0b01<<4 | cc&0x0F
	return b
}

func TestFileSourceReadsExistingPacketsThenWaitsForGrowth(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "capture.ts")
	if err := os.WriteFile(path, validTSPacket(0), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	fs, err := NewFileSource(path, WithPollInterval(50*time.Millisecond))
	if err != nil {
		t.Fatalf("NewFileSource: %v", err)
	}
	defer fs.Close()

	raw, err := fs.Next()
	if err != nil {
		t.Fatalf("Next() first packet error = %v", err)
	}
	if len(raw) != ts.PacketSize {
		t.Fatalf("Next() len = %d, want %d", len(raw), ts.PacketSize)
	}

	// Next() now blocks on EOF; append a second packet shortly after
	// and confirm Next() returns the appended packet.
	type result struct {
		raw []byte
		err error
	}
	resCh := make(chan result, 1)
	go func() {
		raw, err := fs.Next()
		resCh <- result{raw, err}
	}()

	time.Sleep(20 * time.Millisecond)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("OpenFile for append: %v", err)
	}
	if _, err := f.Write(validTSPacket(1)); err != nil {
		t.Fatalf("appending packet: %v", err)
	}
	f.Close()

	select {
	case res := <-resCh:
		if res.err != nil {
			t.Fatalf("Next() second packet error = %v", res.err)
		}
		if res.raw[3]&0x0F != 1 {
			t.Errorf("second packet cc = %d, want 1", res.raw[3]&0x0F)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Next() never returned the appended packet")
	}
}

func TestFileSourceCloseReleasesResources(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "capture.ts")
	if err := os.WriteFile(path, validTSPacket(0), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	fs, err := NewFileSource(path)
	if err != nil {
		t.Fatalf("NewFileSource: %v", err)
	}
	if err := fs.Close(); err != nil {
		t.Errorf("Close() = %v, want nil", err)
	}
}
