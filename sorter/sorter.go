package sorter

import (
	"github.com/ausocean/utils/logging"

	"github.com/ausocean/isdbt/demux"
	"github.com/ausocean/isdbt/pes"
	"github.com/ausocean/isdbt/pid"
	"github.com/ausocean/isdbt/psi"
	"github.com/ausocean/isdbt/ts"
)

// tag is the Sorter's private PID-dispatch tag, opaque to everyone
// but the Sorter's own Filter methods.
type tag int

const (
	tagPat tag = iota
	tagPmt
	tagSdt
	tagEit
	tagTot
	tagPcr
	tagVideo
	tagAudio
	tagCaption
)

// Sorter implements demux.Filter, maintaining the ServiceMap and
// driving selection/rewire logic per spec.md §4.8.
type Sorter struct {
	shooter Shooter
	repo    *psi.Repository
	services *ServiceMap
	log     logging.Logger

	selectedService  ServiceID
	hasSelection     bool
	selectedVideoTag *uint8
	selectedAudioTag *uint8

	lastVideoPID  pid.PID
	lastVideoType psi.StreamType
	lastAudioPID  pid.PID
	lastAudioType psi.StreamType
}

// New returns a Sorter delivering catalog and media events to shooter.
func New(shooter Shooter, log logging.Logger) *Sorter {
	return &Sorter{
		shooter:  shooter,
		repo:     psi.NewRepository(),
		services: NewServiceMap(),
		log:      log,
	}
}

var _ demux.Filter = (*Sorter)(nil)

func (s *Sorter) OnSetup(t *demux.Table) {
	t.SetAsPSI(pid.PAT, tagPat)
	t.SetAsPSI(pid.SDT, tagSdt)
	t.SetAsPSI(pid.HEIT, tagEit)
	t.SetAsPSI(pid.TOT, tagTot)
}

func (s *Sorter) OnDiscontinued(pkt ts.Packet) {
	// Continuity is handled at the Demux layer; the Sorter has no
	// additional state to reconcile on a bare discontinuity.
}

func (s *Sorter) OnPSISection(ctx demux.Context, sec psi.Section) {
	if !s.repo.Accept(sec) {
		return
	}
	t, _ := ctx.Tag.(tag)
	switch t {
	case tagPat:
		s.onPat(ctx, sec)
	case tagPmt:
		s.onPmt(ctx, sec)
	case tagSdt:
		s.onSdt(sec)
	case tagEit:
		s.onEit(sec)
	case tagTot:
		s.onTot(sec)
	}
}

func (s *Sorter) OnPESPacket(ctx demux.Context, p pes.Packet) {
	t, _ := ctx.Tag.(tag)
	switch t {
	case tagVideo:
		s.onESPacket(p, true)
	case tagAudio:
		s.onESPacket(p, false)
	case tagCaption:
		s.onCaptionPacket(ctx, p.Data)
	}
}

func (s *Sorter) OnCustomPacket(ctx demux.Context, ccOK bool) {
	t, _ := ctx.Tag.(tag)
	if t != tagPcr {
		return
	}
	af, ok := ctx.Packet.AdaptationField()
	if !ok {
		return
	}
	pcr, ok := af.PCR()
	if !ok {
		return
	}
	p := ctx.Packet.PID()
	for _, svc := range s.services.Services() {
		if svc.PcrPID == p {
			c := pcr
			svc.Pcr = &c
		}
	}
}

func (s *Sorter) onESPacket(p pes.Packet, video bool) {
	if p.Header.Option == nil {
		return
	}
	timing := PacketTiming{PTS: p.Header.Option.PTS, DTS: p.Header.Option.DTS}
	if video {
		s.shooter.OnVideoPacket(timing, p.Data)
	} else {
		s.shooter.OnAudioPacket(timing, p.Data)
	}
}
