package sorter

import (
	"testing"
	"time"

	"github.com/ausocean/isdbt/pid"
	"github.com/ausocean/isdbt/psi"
)

func TestSortByComponentTagOrdersAscendingTaglessFirst(t *testing.T) {
	streams := []Stream{
		{PID: pid.New(0x103), ComponentTag: tagPtr(3)},
		{PID: pid.New(0x101), ComponentTag: nil},
		{PID: pid.New(0x102), ComponentTag: tagPtr(1)},
	}
	sortByComponentTag(streams)

	if streams[0].PID != pid.New(0x101) {
		t.Errorf("streams[0] = %v, want the tagless stream first", streams[0].PID)
	}
	if streams[1].PID != pid.New(0x102) || streams[2].PID != pid.New(0x103) {
		t.Errorf("sorted order = %v, want [0x101 0x102 0x103]", streamPIDs(streams))
	}
}

func streamPIDs(streams []Stream) []pid.PID {
	out := make([]pid.PID, len(streams))
	for i, s := range streams {
		out[i] = s.PID
	}
	return out
}

func TestLess(t *testing.T) {
	a := Stream{ComponentTag: nil}
	b := Stream{ComponentTag: tagPtr(1)}
	if !less(a, b) {
		t.Error("less(tagless, tagged) = false, want true")
	}
	if less(b, a) {
		t.Error("less(tagged, tagless) = true, want false")
	}
	c := Stream{ComponentTag: tagPtr(5)}
	if less(c, b) {
		t.Error("less(5, 1) = true, want false")
	}
	if !less(b, c) {
		t.Error("less(1, 5) = false, want true")
	}
}

func TestBcdDuration(t *testing.T) {
	got := bcdDuration([3]byte{0x01, 0x23, 0x45}) // 01:23:45
	want := 1*time.Hour + 23*time.Minute + 45*time.Second
	if got != want {
		t.Errorf("bcdDuration = %v, want %v", got, want)
	}
}

// buildExtendedEventDescriptor assembles a valid descriptor payload
// for DecodeExtendedEventDescriptor without hand counting offsets:
// every length prefix is computed from the slice being appended.
func buildExtendedEventDescriptor(lang string, items [][2]string, text string) psi.Descriptor {
	var itemsBytes []byte
	for _, it := range items {
		desc, item := it[0], it[1]
		itemsBytes = append(itemsBytes, byte(len(desc)))
		itemsBytes = append(itemsBytes, desc...)
		itemsBytes = append(itemsBytes, byte(len(item)))
		itemsBytes = append(itemsBytes, item...)
	}
	data := []byte{0x00} // descriptor_number/last_descriptor_number = 0/0
	data = append(data, lang...)
	data = append(data, byte(len(itemsBytes)))
	data = append(data, itemsBytes...)
	data = append(data, byte(len(text)))
	data = append(data, text...)
	return psi.Descriptor{Tag: psi.TagExtendedEventDescriptor, Data: data}
}

func TestMergeExtendedItemsConcatenatesContinuations(t *testing.T) {
	d := buildExtendedEventDescriptor("jpn", [][2]string{
		{"Title", "Episode One"},
		{"", ": Part Two"}, // empty description continues the previous item
	}, "full synopsis")

	info := &EventInfo{}
	mergeExtendedItems(info, []psi.Descriptor{d})

	if len(info.ExtendedItems) != 1 {
		t.Fatalf("len(ExtendedItems) = %d, want 1 (continuation merged)", len(info.ExtendedItems))
	}
	item := info.ExtendedItems[0]
	if item.Description != "Title" || item.Item != "Episode One: Part Two" {
		t.Errorf("item = %+v, want {Title, \"Episode One: Part Two\"}", item)
	}
}

func TestMergeExtendedItemsAcrossMultipleDescriptors(t *testing.T) {
	d1 := buildExtendedEventDescriptor("jpn", [][2]string{{"A", "first"}}, "")
	d2 := buildExtendedEventDescriptor("jpn", [][2]string{{"B", "second"}}, "")

	info := &EventInfo{}
	mergeExtendedItems(info, []psi.Descriptor{d1, d2})

	if len(info.ExtendedItems) != 2 {
		t.Fatalf("len(ExtendedItems) = %d, want 2", len(info.ExtendedItems))
	}
	if info.ExtendedItems[0].Description != "A" || info.ExtendedItems[1].Description != "B" {
		t.Errorf("items = %+v, want descriptions A then B", info.ExtendedItems)
	}
}
