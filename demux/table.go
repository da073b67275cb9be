/*
NAME
  table.go - the per-PID dispatch table, with take/restore mutation safety.

DESCRIPTION
  Tracks what each of the 8192 PIDs is currently dispatched as (PSI,
  PES, a custom callback, or unset), and lets a Filter callback
  mutate its own or another PID's entry mid-dispatch via a
  take-then-restore-on-return pattern, so the table is never observed
  half-updated by the dispatcher doing the mutating.

LICENSE
  Copyright (C) 2026 the isdbt authors. All Rights Reserved.
*/

// Package demux orchestrates packet reading, section/PES reassembly,
// and dispatch to a user-supplied Filter, tolerating filters that
// mutate the dispatch table from within a callback (spec.md §4.5).
package demux

import (
	"github.com/ausocean/isdbt/pes"
	"github.com/ausocean/isdbt/pid"
	"github.com/ausocean/isdbt/psi"
)

// kind identifies what a Table slot dispatches as.
type kind int

const (
	kindNone kind = iota
	kindPsi
	kindPes
	kindCustom
	kindSentinel // "in processing": stashed during a callback
)

// entry is one Table slot.
type entry struct {
	kind kind
	tag  any
	psi  *psi.Reassembler
	pes  *pes.Reassembler
}

// Table is the PID-indexed dispatch table. Exactly one dispatch
// entry may exist per PID at a time; SetAs* replaces any prior entry.
type Table struct {
	slots *pid.Table[entry]
}

// NewTable returns an empty Table.
func NewTable() *Table {
	return &Table{slots: pid.NewTable[entry]()}
}

// SetAsPSI configures p to reassemble PSI sections, tagged with tag.
func (t *Table) SetAsPSI(p pid.PID, tag any) {
	t.slots.Set(p, entry{kind: kindPsi, tag: tag, psi: psi.NewReassembler()})
}

// SetAsPES configures p to reassemble PES packets, tagged with tag.
func (t *Table) SetAsPES(p pid.PID, tag any) {
	t.slots.Set(p, entry{kind: kindPes, tag: tag, pes: pes.NewReassembler()})
}

// SetAsCustom configures p to deliver raw packets untouched, tagged
// with tag (used for PCR-bearing PIDs the Sorter reads directly).
func (t *Table) SetAsCustom(p pid.PID, tag any) {
	t.slots.Set(p, entry{kind: kindCustom, tag: tag})
}

// Unset clears any dispatch entry on p.
func (t *Table) Unset(p pid.PID) {
	t.slots.Set(p, entry{})
}

// IsSet reports whether p currently has a non-sentinel dispatch entry.
func (t *Table) IsSet(p pid.PID) bool {
	e := t.slots.Get(p)
	return e.kind != kindNone && e.kind != kindSentinel
}

// take removes and returns the entry at p, replacing it with a
// sentinel so a callback may freely mutate any PID including p.
func (t *Table) take(p pid.PID) (entry, bool) {
	e := t.slots.Get(p)
	if e.kind == kindNone {
		return entry{}, false
	}
	t.slots.Set(p, entry{kind: kindSentinel})
	return e, true
}

// restore puts e back into p's slot only if the slot still holds the
// sentinel placed by take — i.e. the callback did not itself replace
// this PID's entry.
func (t *Table) restore(p pid.PID, e entry) {
	if t.slots.Get(p).kind == kindSentinel {
		t.slots.Set(p, e)
	}
}
