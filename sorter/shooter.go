package sorter

import (
	"github.com/ausocean/isdbt/caption"
	"github.com/ausocean/isdbt/pid"
)

// ChangedMask is the bit-field passed to OnStreamChanged describing
// what changed in the current selection.
type ChangedMask uint8

const (
	ChangedService   ChangedMask = 1 << iota // selected service_id changed
	ChangedVideoPID                          // selected video stream's PID changed
	ChangedVideoType                         // selected video stream's codec changed
	ChangedAudioPID                          // selected audio stream's PID changed
	ChangedAudioType                         // selected audio stream's codec changed
)

// NeedsSessionRebuild reports whether m requires the media session to
// be recreated rather than merely re-tagged, per spec.md §4.8: "the
// pipeline re-creates the media session only when any of
// video_type|video_pid|audio_type is true".
func (m ChangedMask) NeedsSessionRebuild() bool {
	return m&(ChangedVideoType|ChangedVideoPID|ChangedAudioType) != 0
}

// Shooter is the player-facing sink surface (spec.md §6): it receives
// catalog updates and the selected elementary-stream payloads.
type Shooter interface {
	OnServicesUpdated(services *ServiceMap)
	OnStreamsUpdated(svc *Service)
	OnEventUpdated(svc *Service, isPresent bool)
	OnServiceChanged(svc *Service)
	OnStreamChanged(changed ChangedMask)
	OnVideoPacket(ptsDts PacketTiming, payload []byte)
	OnAudioPacket(ptsDts PacketTiming, payload []byte)
	OnCaption(p pid.PID, c caption.Caption)
	OnSuperimpose(c caption.Caption)
	OnEndOfStream()
	OnStreamError(err error)
	NeedsES() bool
}

// PacketTiming carries the optional PTS/DTS pair of a video/audio PES packet.
type PacketTiming struct {
	PTS *uint64
	DTS *uint64
}
