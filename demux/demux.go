package demux

import (
	"github.com/ausocean/utils/logging"

	"github.com/ausocean/isdbt/pes"
	"github.com/ausocean/isdbt/pid"
	"github.com/ausocean/isdbt/psi"
	"github.com/ausocean/isdbt/ts"
)

// Context is passed to every Filter callback that fires while
// dispatching a single packet.
type Context struct {
	Packet ts.Packet
	Tag    any
	Table  *Table
}

// Filter is the polymorphic dispatch target. on_setup runs once;
// the remaining callbacks fire per packet per spec.md §4.5-4.6.
type Filter interface {
	OnSetup(t *Table)
	OnDiscontinued(pkt ts.Packet)
	OnPSISection(ctx Context, sec psi.Section)
	OnPESPacket(ctx Context, p pes.Packet)
	OnCustomPacket(ctx Context, ccOK bool)
}

// Demux orchestrates the packet reader output into a dispatch table
// driving a Filter: a single-threaded, non-blocking, non-allocating
// (on the steady-state path) pipeline per spec.md §5.
type Demux struct {
	table *Table
	filter Filter
	log   logging.Logger

	cc     [pid.Max + 1]byte
	ccSeen [pid.Max + 1]bool
}

// New returns a Demux wired to filter, which is given the chance to
// configure the initial dispatch table via OnSetup.
func New(filter Filter, log logging.Logger) *Demux {
	d := &Demux{table: NewTable(), filter: filter, log: log}
	filter.OnSetup(d.table)
	return d
}

// Table returns the live dispatch table, for callers that need to
// inspect or seed it outside of a Filter callback (e.g. tests).
func (d *Demux) Table() *Table { return d.table }

// Feed processes one 188-byte packet. Malformed packets are dropped
// silently; I/O is the reader's concern, not Feed's — Feed itself
// never returns an error, matching spec.md §7's "packet malformed:
// drop silently; never propagated".
func (d *Demux) Feed(raw []byte) {
	if !ts.IsNormal(raw) {
		return
	}
	pkt := ts.View(raw)
	p := pkt.PID()
	cc := pkt.ContinuityCounter()

	ccOK := true
	if af, ok := pkt.AdaptationField(); ok && af.DiscontinuityIndicator() {
		// An announced discontinuity legitimately resets CC tracking;
		// it is not itself a continuity error.
	} else if d.ccSeen[p] {
		expected := (d.cc[p] + 1) & 0x0F
		if expected != cc {
			ccOK = false
			d.filter.OnDiscontinued(pkt)
		}
	}
	d.cc[p] = cc
	d.ccSeen[p] = true

	e, ok := d.table.take(p)
	if !ok {
		return
	}
	if !ccOK {
		switch e.kind {
		case kindPsi:
			e.psi.Discard()
		case kindPes:
			// PES has no explicit discard; a fresh Feed call with the
			// next unit-start reinitializes its mode naturally.
		}
	}

	ctx := Context{Packet: pkt, Tag: e.tag, Table: d.table}

	switch e.kind {
	case kindPsi:
		sections := e.psi.Feed(pkt.UnitStart(), pkt.Payload(), func(err error) {
			if d.log != nil {
				d.log.Debug("psi section dropped", "pid", p, "error", err.Error())
			}
		})
		for _, sec := range sections {
			d.filter.OnPSISection(ctx, sec)
		}
	case kindPes:
		payload := pkt.Payload()
		if len(payload) > 0 || pkt.UnitStart() {
			if pesPkt, ok := e.pes.Feed(pkt.UnitStart(), payload); ok {
				d.filter.OnPESPacket(ctx, pesPkt)
			}
		}
	case kindCustom:
		d.filter.OnCustomPacket(ctx, ccOK)
	}

	d.table.restore(p, e)
}
