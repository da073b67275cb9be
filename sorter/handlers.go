package sorter

import (
	"time"

	"github.com/ausocean/isdbt/caption"
	"github.com/ausocean/isdbt/demux"
	"github.com/ausocean/isdbt/pid"
	"github.com/ausocean/isdbt/psi"
)

func (s *Sorter) onPat(ctx demux.Context, sec psi.Section) {
	pat, ok := psi.ReadPat(sec)
	if !ok {
		return
	}

	wanted := make([]ServiceID, len(pat.Programs))
	for i, prog := range pat.Programs {
		wanted[i] = ServiceID(prog.ProgramNumber)
	}

	removed := s.services.reorder(wanted, func(id ServiceID) *Service {
		return &Service{ID: id, PcrPID: pid.Null}
	})

	for _, prog := range pat.Programs {
		svc, _ := s.services.Get(ServiceID(prog.ProgramNumber))
		svc.PmtPID = prog.ProgramMapPID
		ctx.Table.SetAsPSI(prog.ProgramMapPID, tagPmt)
	}

	for _, svc := range removed {
		s.unwireService(ctx.Table, svc)
	}

	s.shooter.OnServicesUpdated(s.services)

	if _, ok := s.services.Get(s.selectedService); s.hasSelection && !ok {
		s.hasSelection = false
		s.shooter.OnStreamChanged(ChangedService)
	}
}

// unwireService removes every table entry a departing Service owned.
func (s *Sorter) unwireService(t *demux.Table, svc *Service) {
	t.Unset(svc.PmtPID)
	if svc.PcrPID != pid.Null {
		t.Unset(svc.PcrPID)
	}
	for _, st := range svc.VideoStreams {
		t.Unset(st.PID)
	}
	for _, st := range svc.AudioStreams {
		t.Unset(st.PID)
	}
	for _, st := range svc.CaptionStreams {
		t.Unset(st.PID)
	}
}

func (s *Sorter) onPmt(ctx demux.Context, sec psi.Section) {
	pmt, ok := psi.ReadPmt(sec)
	if !ok {
		return
	}
	svc, ok := s.services.Get(ServiceID(pmt.ProgramNumber))
	if !ok {
		return
	}

	if svc.PcrPID != pmt.PcrPID {
		if svc.PcrPID != pid.Null {
			ctx.Table.Unset(svc.PcrPID)
		}
		if pmt.PcrPID != pid.Null {
			ctx.Table.SetAsCustom(pmt.PcrPID, tag(tagPcr))
		}
		svc.PcrPID = pmt.PcrPID
	}

	lost := make(map[pid.PID]bool)
	for _, st := range svc.VideoStreams {
		lost[st.PID] = true
	}
	for _, st := range svc.AudioStreams {
		lost[st.PID] = true
	}
	for _, st := range svc.CaptionStreams {
		lost[st.PID] = true
	}

	svc.VideoStreams = nil
	svc.AudioStreams = nil
	svc.CaptionStreams = nil

	for _, pmtStream := range pmt.Streams {
		var componentTag *uint8
		if d, ok := pmtStream.Descriptors.Get(psi.TagStreamIdentifierDescriptor); ok {
			if sid, ok := psi.DecodeStreamIdentifierDescriptor(d); ok {
				ct := sid.ComponentTag
				componentTag = &ct
			}
		}
		var videoFormat *uint8
		if d, ok := pmtStream.Descriptors.Get(psi.TagVideoDecodeControlDescriptor); ok {
			if vd, ok := psi.DecodeVideoDecodeControlDescriptor(d); ok {
				vf := vd.VideoEncodeFormat
				videoFormat = &vf
			}
		}

		st := Stream{PID: pmtStream.ElementaryPID, StreamType: pmtStream.StreamType, ComponentTag: componentTag, VideoEncodeFormat: videoFormat}
		delete(lost, pmtStream.ElementaryPID)

		switch {
		case pmtStream.StreamType.IsVideo():
			svc.VideoStreams = append(svc.VideoStreams, st)
			if !ctx.Table.IsSet(pmtStream.ElementaryPID) {
				ctx.Table.SetAsPES(pmtStream.ElementaryPID, tag(tagVideo))
			}
		case pmtStream.StreamType.IsAudio():
			svc.AudioStreams = append(svc.AudioStreams, st)
			if !ctx.Table.IsSet(pmtStream.ElementaryPID) {
				ctx.Table.SetAsPES(pmtStream.ElementaryPID, tag(tagAudio))
			}
		case pmtStream.StreamType == psi.StreamTypeCaption && componentTag != nil:
			svc.CaptionStreams = append(svc.CaptionStreams, st)
			if !ctx.Table.IsSet(pmtStream.ElementaryPID) {
				ctx.Table.SetAsPES(pmtStream.ElementaryPID, tag(tagCaption))
			}
		default:
			continue
		}
	}

	sortByComponentTag(svc.VideoStreams)
	sortByComponentTag(svc.AudioStreams)
	sortByComponentTag(svc.CaptionStreams)
	svc.PmtFilled = true

	for p := range lost {
		ctx.Table.Unset(p)
	}

	s.shooter.OnStreamsUpdated(svc)
	s.updateSelection(svc)
}

// sortByComponentTag sorts streams by component_tag ascending, with
// tagless streams sorting first, stable on ties.
func sortByComponentTag(streams []Stream) {
	for i := 1; i < len(streams); i++ {
		for j := i; j > 0; j-- {
			a, b := streams[j-1], streams[j]
			if !less(b, a) {
				break
			}
			streams[j-1], streams[j] = streams[j], streams[j-1]
		}
	}
}

func less(a, b Stream) bool {
	if a.ComponentTag == nil {
		return b.ComponentTag != nil
	}
	if b.ComponentTag == nil {
		return false
	}
	return *a.ComponentTag < *b.ComponentTag
}

func (s *Sorter) onSdt(sec psi.Section) {
	if sec.TableID != psi.TableIDSdtActual {
		return
	}
	sdt, ok := psi.ReadSdt(sec)
	if !ok {
		return
	}
	for _, sdtSvc := range sdt.Services {
		svc, ok := s.services.Get(ServiceID(sdtSvc.ServiceID))
		if !ok {
			continue
		}
		d, ok := sdtSvc.Descriptors.Get(psi.TagServiceDescriptor)
		if !ok {
			continue
		}
		sd, ok := psi.DecodeServiceDescriptor(d)
		if !ok {
			continue
		}
		svc.ProviderName = sd.ServiceProviderName
		svc.ServiceName = sd.ServiceName
	}
}

func (s *Sorter) onEit(sec psi.Section) {
	if sec.TableID != psi.TableIDEitActualPF || sec.Syntax == nil {
		return
	}
	isPresent := sec.Syntax.SectionNumber == 0
	isFollowing := sec.Syntax.SectionNumber == 1
	if !isPresent && !isFollowing {
		return
	}

	eit, ok := psi.ReadEit(sec)
	if !ok {
		return
	}
	svc, ok := s.services.Get(ServiceID(eit.ServiceID))
	if !ok || len(eit.Events) == 0 {
		return
	}
	ev := eit.Events[0]

	info := &EventInfo{EventID: EventID(ev.EventID)}
	if start, ok := pid.TimeFromMJDBCD(ev.StartTime); ok {
		info.StartTime = start
	}
	info.Duration = bcdDuration(ev.Duration)

	if d, ok := ev.Descriptors.Get(psi.TagShortEventDescriptor); ok {
		if se, ok := psi.DecodeShortEventDescriptor(d); ok {
			info.Name = se.EventName
			info.Text = se.Text
		}
	}
	mergeExtendedItems(info, ev.Descriptors.GetAll(psi.TagExtendedEventDescriptor))

	if isPresent {
		svc.PresentEvent = info
	} else {
		svc.FollowingEvent = info
	}
	s.shooter.OnEventUpdated(svc, isPresent)
}

// mergeExtendedItems decodes every ExtendedEventDescriptor attached
// to an event and concatenates consecutive items whose description
// is empty into the previous item's text, per the ARIB continuation
// convention.
func mergeExtendedItems(info *EventInfo, descs []psi.Descriptor) {
	var items []ExtendedEventItem
	for _, d := range descs {
		eed, ok := psi.DecodeExtendedEventDescriptor(d)
		if !ok {
			continue
		}
		for _, item := range eed.Items {
			if item.Description == "" && len(items) > 0 {
				items[len(items)-1].Item += item.Item
				continue
			}
			items = append(items, item)
		}
	}
	info.ExtendedItems = items
}

// bcdDuration decodes a 3-byte packed-BCD HH:MM:SS duration field.
func bcdDuration(b [3]byte) time.Duration {
	h := int(b[0]>>4)*10 + int(b[0]&0x0F)
	m := int(b[1]>>4)*10 + int(b[1]&0x0F)
	sec := int(b[2]>>4)*10 + int(b[2]&0x0F)
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(sec)*time.Second
}

func (s *Sorter) onTot(sec psi.Section) {
	tot, ok := psi.ReadTot(sec)
	if !ok {
		return
	}
	current, ok := pid.TimeFromMJDBCD(tot.DateTime)
	if !ok {
		return
	}
	// Snapshot base_pcr = last_pcr for every known service; the
	// displayable wall-clock time is then current_time + (last_pcr -
	// base_pcr) converted from 27MHz to real time, per spec.md §4.8.
	for _, svc := range s.services.Services() {
		svc.BaseTime = current
		svc.BasePcr = svc.Pcr
	}
}

func (s *Sorter) onCaptionPacket(ctx demux.Context, data []byte) {
	c, ok := caption.Decode(data)
	if !ok {
		return
	}
	s.shooter.OnCaption(ctx.Packet.PID(), c)
}
