package player

import (
	"github.com/ausocean/utils/logging"

	"github.com/ausocean/isdbt/caption"
	"github.com/ausocean/isdbt/pid"
	"github.com/ausocean/isdbt/sorter"
)

// Event is an application-facing message delivered by EventLoop: a
// catalog/media event packaged for the application's main thread, per
// spec.md §5's "event-loop handle... delivers them to the main
// thread for application-policy handling".
type Event struct {
	Kind    EventKind
	Service *sorter.Service
	Changed sorter.ChangedMask
	IsPresent bool
	Caption *caption.Caption
	Err     error
}

// EventKind tags an Event's payload.
type EventKind int

const (
	EventServicesUpdated EventKind = iota
	EventStreamsUpdated
	EventEventUpdated
	EventServiceChanged
	EventStreamChanged
	EventCaption
	EventSuperimpose
	EventEndOfStream
	EventStreamError
)

// EventLoop is a cross-thread, clone-safe handle: Post is called from
// the reader thread (inside Shooter callbacks); the application
// drains Events from its own thread.
type EventLoop struct {
	ch chan Event
}

// NewEventLoop returns an EventLoop with the given buffered capacity.
func NewEventLoop(capacity int) *EventLoop {
	return &EventLoop{ch: make(chan Event, capacity)}
}

// Events returns the channel the application drains.
func (e *EventLoop) Events() <-chan Event { return e.ch }

func (e *EventLoop) post(ev Event) {
	select {
	case e.ch <- ev:
	default:
		// Application is falling behind; drop rather than block the
		// reader thread, which must never stall on renderer state.
	}
}

// Shooter bridges sorter.Shooter callbacks (firing on the reader
// thread) into the Player's bounded sample queues and an EventLoop
// for everything else.
type Shooter struct {
	player *Player
	loop   *EventLoop
	log    logging.Logger
}

// NewShooter returns a Shooter delivering media samples into player
// and catalog/caption events into loop. player may be nil if it is
// not yet constructed, provided SetPlayer is called before any
// samples are fed through the Sorter.
func NewShooter(player *Player, loop *EventLoop, log logging.Logger) *Shooter {
	return &Shooter{player: player, loop: loop, log: log}
}

// SetPlayer attaches the Player samples are pushed into, for callers
// that must construct the Shooter before the Player exists (the
// Player's constructor takes the Sorter, which takes the Shooter).
func (s *Shooter) SetPlayer(player *Player) { s.player = player }

var _ sorter.Shooter = (*Shooter)(nil)

func (s *Shooter) OnServicesUpdated(services *sorter.ServiceMap) {
	s.loop.post(Event{Kind: EventServicesUpdated})
}

func (s *Shooter) OnStreamsUpdated(svc *sorter.Service) {
	s.loop.post(Event{Kind: EventStreamsUpdated, Service: svc})
}

func (s *Shooter) OnEventUpdated(svc *sorter.Service, isPresent bool) {
	s.loop.post(Event{Kind: EventEventUpdated, Service: svc, IsPresent: isPresent})
}

func (s *Shooter) OnServiceChanged(svc *sorter.Service) {
	s.loop.post(Event{Kind: EventServiceChanged, Service: svc})
}

func (s *Shooter) OnStreamChanged(changed sorter.ChangedMask) {
	s.loop.post(Event{Kind: EventStreamChanged, Changed: changed})
}

func (s *Shooter) OnVideoPacket(t sorter.PacketTiming, payload []byte) {
	s.player.pushVideo(Sample{PTS: t.PTS, DTS: t.DTS, Payload: payload})
}

func (s *Shooter) OnAudioPacket(t sorter.PacketTiming, payload []byte) {
	s.player.pushAudio(Sample{PTS: t.PTS, DTS: t.DTS, Payload: payload})
}

func (s *Shooter) OnCaption(p pid.PID, c caption.Caption) {
	s.loop.post(Event{Kind: EventCaption, Caption: &c})
}

func (s *Shooter) OnSuperimpose(c caption.Caption) {
	s.loop.post(Event{Kind: EventSuperimpose, Caption: &c})
}

func (s *Shooter) OnEndOfStream() {
	s.loop.post(Event{Kind: EventEndOfStream})
}

func (s *Shooter) OnStreamError(err error) {
	if s.log != nil {
		s.log.Error("player: stream error", "error", err.Error())
	}
	s.loop.post(Event{Kind: EventStreamError, Err: err})
}

// NeedsES reports whether either sample queue has room, per spec.md
// §6's Sorter sink surface.
func (s *Shooter) NeedsES() bool {
	return s.player.NeedsVideoData() || s.player.NeedsAudioData()
}
