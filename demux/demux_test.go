package demux

import (
	"testing"

	"github.com/Comcast/gots"

	"github.com/ausocean/isdbt/pes"
	"github.com/ausocean/isdbt/pid"
	"github.com/ausocean/isdbt/psi"
	"github.com/ausocean/isdbt/ts"
)

// fakeFilter records every callback it receives and optionally
// mutates the dispatch table from within OnPSISection, exercising
// the take/restore sentinel path.
type fakeFilter struct {
	setupPID       pid.PID
	discontinued   int
	psiSections    []psi.Section
	pesPackets     []pes.Packet
	customCalls    int
	lastCCOK       bool
	mutateOnPSI    bool
	mutateTargetPID pid.PID
}

func (f *fakeFilter) OnSetup(t *Table) {
	t.SetAsPSI(f.setupPID, "seeded")
}

func (f *fakeFilter) OnDiscontinued(pkt ts.Packet) { f.discontinued++ }

func (f *fakeFilter) OnPSISection(ctx Context, sec psi.Section) {
	f.psiSections = append(f.psiSections, sec)
	if f.mutateOnPSI {
		ctx.Table.SetAsCustom(f.mutateTargetPID, "remapped")
	}
}

func (f *fakeFilter) OnPESPacket(ctx Context, p pes.Packet) {
	f.pesPackets = append(f.pesPackets, p)
}

func (f *fakeFilter) OnCustomPacket(ctx Context, ccOK bool) {
	f.customCalls++
	f.lastCCOK = ccOK
}

func makeTSPacket(p pid.PID, unitStart bool, cc byte, payload []byte) []byte {
	b := make([]byte, ts.PacketSize)
	b[0] = ts.SyncByte
	if unitStart {
		b[1] |= 0x40
	}
	b[1] |= byte(p>>8) & 0x1F
	b[2] = byte(p)
	b[3] = 0b01<<4 | cc&0x0F // payload only, no adaptation field
	copy(b[4:], payload)
	return b
}

func TestNewCallsOnSetup(t *testing.T) {
	f := &fakeFilter{setupPID: pid.New(0x20)}
	d := New(f, nil)
	if !d.Table().IsSet(f.setupPID) {
		t.Error("OnSetup did not seed the dispatch table")
	}
}

func TestFeedDropsMalformedPacket(t *testing.T) {
	f := &fakeFilter{setupPID: pid.New(0x20)}
	d := New(f, nil)
	d.Feed([]byte{0x00, 0x01, 0x02}) // too short, bad sync
	if len(f.psiSections) != 0 || f.customCalls != 0 {
		t.Error("malformed packet reached a dispatch callback")
	}
}

func TestFeedIgnoresUnsetPID(t *testing.T) {
	f := &fakeFilter{setupPID: pid.New(0x20)}
	d := New(f, nil)
	d.Feed(makeTSPacket(pid.New(0x21), true, 0, nil))
	if f.customCalls != 0 || len(f.psiSections) != 0 {
		t.Error("Feed dispatched a packet for a PID with no entry")
	}
}

func TestFeedDispatchesCustomPacketAndTracksContinuity(t *testing.T) {
	target := pid.New(0x30)
	f := &fakeFilter{setupPID: pid.New(0x20)}
	d := New(f, nil)
	d.Table().SetAsCustom(target, "pcr")

	d.Feed(makeTSPacket(target, false, 0, nil))
	if f.customCalls != 1 || !f.lastCCOK {
		t.Fatalf("first packet: customCalls=%d ccOK=%v, want 1 true", f.customCalls, f.lastCCOK)
	}

	d.Feed(makeTSPacket(target, false, 1, nil))
	if f.customCalls != 2 || !f.lastCCOK {
		t.Fatalf("second packet (cc+1): customCalls=%d ccOK=%v, want 2 true", f.customCalls, f.lastCCOK)
	}

	// Skip a continuity counter: should flag a discontinuity and
	// still dispatch (ccOK=false is passed through, not dropped).
	d.Feed(makeTSPacket(target, false, 5, nil))
	if f.discontinued != 1 {
		t.Errorf("discontinued = %d, want 1", f.discontinued)
	}
	if f.customCalls != 3 || f.lastCCOK {
		t.Errorf("third packet: customCalls=%d ccOK=%v, want 3 false", f.customCalls, f.lastCCOK)
	}
}

func TestFeedDispatchesPESPacket(t *testing.T) {
	target := pid.New(0x40)
	f := &fakeFilter{setupPID: pid.New(0x20)}
	d := New(f, nil)
	d.Table().SetAsPES(target, "video")

	// StreamIDPaddingStream (0xBE) has no additional PES header.
	payload := []byte{0x00, 0x00, 0x01, 0xBE, 0x00, 0x02, 0xAA, 0xBB}
	d.Feed(makeTSPacket(target, true, 0, payload))
	if len(f.pesPackets) != 1 {
		t.Fatalf("pesPackets = %d, want 1", len(f.pesPackets))
	}
	if len(f.pesPackets[0].Data) != 2 {
		t.Errorf("PES Data = %v, want 2 bytes", f.pesPackets[0].Data)
	}
}

func TestFeedDispatchesPSISectionAndAllowsMutationMidCallback(t *testing.T) {
	seeded := pid.New(0x20)
	remapTarget := pid.New(0x50)
	f := &fakeFilter{
		setupPID:        seeded,
		mutateOnPSI:     true,
		mutateTargetPID: remapTarget,
	}
	d := New(f, nil)

	raw := buildTestSection(t)
	payload := append([]byte{0x00}, raw...) // pointer_field = 0
	d.Feed(makeTSPacket(seeded, true, 0, payload))

	if len(f.psiSections) != 1 {
		t.Fatalf("psiSections = %d, want 1", len(f.psiSections))
	}
	if !d.Table().IsSet(remapTarget) {
		t.Error("mutation performed inside OnPSISection was not applied")
	}
	// The seeded PID's own entry must have survived the take/restore
	// round trip unharmed, since the callback mutated a different PID.
	if !d.Table().IsSet(seeded) {
		t.Error("seeded PID's entry was lost across take/restore")
	}
}

// buildTestSection returns one syntactically valid, CRC-correct PSI
// section with table_id 0x00 (PAT-like) and no meaningful payload.
func buildTestSection(t *testing.T) []byte {
	t.Helper()
	body := []byte{
		0x00, 0x01, // table_id_extension
		0x01,       // version=0, current_next=1
		0x00, 0x00, // section_number, last_section_number
		0xDE, 0xAD, // token payload
	}
	sectionLength := len(body) + 4 // + CRC
	buf := []byte{0x00, 0x80 | byte(sectionLength>>8)&0x0F, byte(sectionLength)}
	buf = append(buf, body...)
	crc := gots.ComputeCRC(buf)
	buf = append(buf, crc...)
	return buf
}
