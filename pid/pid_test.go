package pid

import "testing"

func TestNewPanicsAboveMax(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected New(0x2000) to panic")
		}
	}()
	New(0x2000)
}

func TestRead(t *testing.T) {
	cases := []struct {
		name string
		b    []byte
		want PID
	}{
		{"masks sync/transport-error/priority bits", []byte{0x20, 0x00}, PID(0x0000)},
		{"keeps low 13 bits", []byte{0xFF, 0xFF}, Max},
		{"typical PAT-like value", []byte{0x20, 0x00}, PID(0)},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := Read(c.b); got != c.want {
				t.Errorf("Read(%v) = %v, want %v", c.b, got, c.want)
			}
		})
	}
}

func TestIsOnesegPMT(t *testing.T) {
	cases := []struct {
		p    PID
		want bool
	}{
		{PID(0x1FC8), true},
		{PID(0x1FCF), true},
		{PID(0x1FC7), false},
		{PID(0x1FD0), false},
		{PAT, false},
	}
	for _, c := range cases {
		if got := c.p.IsOnesegPMT(); got != c.want {
			t.Errorf("%v.IsOnesegPMT() = %v, want %v", c.p, got, c.want)
		}
	}
}

func TestTableGetSetDefault(t *testing.T) {
	tbl := NewTable[int]()
	if got := tbl.Get(PAT); got != 0 {
		t.Errorf("zero-value Get(PAT) = %d, want 0", got)
	}
	tbl.Set(PAT, 42)
	if got := tbl.Get(PAT); got != 42 {
		t.Errorf("Get(PAT) after Set = %d, want 42", got)
	}
	tbl.Set(Max, 7)
	if got := tbl.Get(Max); got != 7 {
		t.Errorf("Get(Max) = %d, want 7", got)
	}
}

func TestTableEach(t *testing.T) {
	tbl := NewTable[string]()
	tbl.Set(PAT, "pat")
	tbl.Set(SDT, "sdt")

	seen := map[PID]string{}
	tbl.Each(func(p PID, v string) {
		if v == "" {
			return
		}
		seen[p] = v
	})
	if seen[PAT] != "pat" || seen[SDT] != "sdt" || len(seen) != 2 {
		t.Errorf("Each visited = %v, want {PAT:pat, SDT:sdt}", seen)
	}
}
