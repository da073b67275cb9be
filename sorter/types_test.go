package sorter

import (
	"testing"
	"time"

	"github.com/ausocean/isdbt/pid"
	"github.com/ausocean/isdbt/ts"
)

func TestElapsedPCRForward(t *testing.T) {
	base := ts.PCR{Base: 0}
	cur := ts.PCR{Base: 90000} // one second of 90kHz ticks
	got := elapsedPCR(base, cur)
	if got != time.Second {
		t.Errorf("elapsedPCR = %v, want 1s", got)
	}
}

func TestElapsedPCRForwardAcrossWrap(t *testing.T) {
	const baseMax = uint64(1) << 33
	base := ts.PCR{Base: baseMax - 50000}
	cur := ts.PCR{Base: 50000} // wrapped forward by 100000 ticks total
	got := elapsedPCR(base, cur)
	want := time.Second + 111111111*time.Nanosecond
	if got != want {
		t.Errorf("elapsedPCR across wrap = %v, want %v", got, want)
	}
}

func TestElapsedPCRBackwardIsNegative(t *testing.T) {
	base := ts.PCR{Base: 90000}
	cur := ts.PCR{Base: 80000} // 10000 ticks behind
	got := elapsedPCR(base, cur)
	if got >= 0 {
		t.Errorf("elapsedPCR = %v, want a negative duration", got)
	}
}

func TestDisplayTimeUnsetUntilBothTOTAndPCR(t *testing.T) {
	var svc Service
	if _, ok := svc.DisplayTime(); ok {
		t.Error("DisplayTime() ok = true before any TOT/PCR observed")
	}
	base := ts.PCR{Base: 1000}
	svc.BasePcr = &base
	if _, ok := svc.DisplayTime(); ok {
		t.Error("DisplayTime() ok = true with only BasePcr set")
	}
	svc.BaseTime = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	if _, ok := svc.DisplayTime(); ok {
		t.Error("DisplayTime() ok = true with no live Pcr set")
	}
	cur := ts.PCR{Base: 1000 + 90000}
	svc.Pcr = &cur
	got, ok := svc.DisplayTime()
	if !ok {
		t.Fatal("DisplayTime() ok = false, want true once BaseTime/BasePcr/Pcr are all set")
	}
	want := svc.BaseTime.Add(time.Second)
	if !got.Equal(want) {
		t.Errorf("DisplayTime() = %v, want %v", got, want)
	}
}

func TestIsOneseg(t *testing.T) {
	svc := Service{PmtPID: pid.New(0x1FC8)}
	if !svc.IsOneseg() {
		t.Error("IsOneseg() = false for a one-seg PMT PID")
	}
	svc2 := Service{PmtPID: pid.New(0x0100)}
	if svc2.IsOneseg() {
		t.Error("IsOneseg() = true for an ordinary PMT PID")
	}
}

func tagPtr(v uint8) *uint8 { return &v }

func TestFindStreamMatchesTag(t *testing.T) {
	streams := []Stream{
		{PID: pid.New(0x100), ComponentTag: tagPtr(1)},
		{PID: pid.New(0x101), ComponentTag: tagPtr(2)},
	}
	got, ok := findStream(streams, tagPtr(2))
	if !ok || got.PID != pid.New(0x101) {
		t.Errorf("findStream(tag=2) = %+v, want PID 0x101", got)
	}
}

func TestFindStreamFallsBackToFirstWhenTagUnmatched(t *testing.T) {
	streams := []Stream{
		{PID: pid.New(0x100), ComponentTag: tagPtr(1)},
		{PID: pid.New(0x101), ComponentTag: tagPtr(2)},
	}
	got, ok := findStream(streams, tagPtr(9))
	if !ok || got.PID != pid.New(0x100) {
		t.Errorf("findStream(unmatched tag) = %+v, want the first stream (default ES)", got)
	}
}

func TestFindStreamFallsBackWithNilTag(t *testing.T) {
	streams := []Stream{{PID: pid.New(0x200)}}
	got, ok := findStream(streams, nil)
	if !ok || got.PID != pid.New(0x200) {
		t.Errorf("findStream(nil) = %+v, want the only stream", got)
	}
}

func TestFindStreamEmptyIsNotOK(t *testing.T) {
	if _, ok := findStream(nil, nil); ok {
		t.Error("findStream(nil streams) ok = true, want false")
	}
}

func TestServiceMapReorderCreatesAndDrops(t *testing.T) {
	m := NewServiceMap()
	var created []ServiceID
	newFn := func(id ServiceID) *Service {
		created = append(created, id)
		return &Service{ID: id}
	}

	removed := m.reorder([]ServiceID{3, 1}, newFn)
	if len(removed) != 0 {
		t.Fatalf("first reorder removed = %v, want none", removed)
	}
	if len(created) != 2 {
		t.Fatalf("created = %v, want two new services", created)
	}
	services := m.Services()
	if len(services) != 2 || services[0].ID != 3 || services[1].ID != 1 {
		t.Fatalf("Services() order = %v, want [3 1]", servicesIDs(services))
	}

	// Re-run with an overlapping set: 1 survives (existing pointer
	// reused), 3 is dropped, 2 is newly created.
	existing, _ := m.Get(1)
	removed = m.reorder([]ServiceID{1, 2}, newFn)
	if len(removed) != 1 || removed[0].ID != 3 {
		t.Fatalf("second reorder removed = %v, want [service 3]", removed)
	}
	got, ok := m.Get(1)
	if !ok || got != existing {
		t.Error("existing service 1 was replaced rather than reused across reorder")
	}
}

func servicesIDs(svcs []*Service) []ServiceID {
	ids := make([]ServiceID, len(svcs))
	for i, s := range svcs {
		ids[i] = s.ID
	}
	return ids
}
