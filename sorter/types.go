/*
NAME
  types.go - service/stream/event catalog types managed by the Sorter.

DESCRIPTION
  Defines Service, Stream, and EventInfo, the catalog records the
  Sorter maintains per program, and ServiceMap, the PAT-ordered
  collection of them that onPat/onPmt keep in sync with the stream.

LICENSE
  Copyright (C) 2026 the isdbt authors. All Rights Reserved.
*/

// Package sorter tracks services, elementary streams, event
// information, and PCR timing, selects one video + one audio stream
// per service, and re-wires the demux dispatch table in reaction to
// PAT/PMT/EIT changes, per spec.md §4.8.
package sorter

import (
	"time"

	"github.com/ausocean/isdbt/pid"
	"github.com/ausocean/isdbt/psi"
	"github.com/ausocean/isdbt/ts"
)

// ServiceID, NetworkID, TransportStreamID, EventID are non-zero
// 16-bit identifiers (zero is never a legal value on the wire for
// any of them).
type ServiceID uint16
type NetworkID uint16
type TransportStreamID uint16
type EventID uint16

// Stream is one elementary stream belonging to a Service.
type Stream struct {
	PID               pid.PID
	StreamType        psi.StreamType
	ComponentTag      *uint8
	VideoEncodeFormat *uint8
}

// ExtendedEventItem is one (item_description, item) pair, re-exported
// from psi for callers that only import sorter.
type ExtendedEventItem = psi.ExtendedEventItem

// EventInfo describes one EIT event (present or following).
type EventInfo struct {
	EventID       EventID
	StartTime     time.Time
	Duration      time.Duration
	Name          string
	Text          string
	ExtendedItems []ExtendedEventItem
}

// Service is one entry of the ServiceMap: everything the Sorter knows
// about a single broadcast service.
type Service struct {
	ID             ServiceID
	PmtPID         pid.PID
	PcrPID         pid.PID
	Pcr            *ts.PCR
	PmtFilled      bool
	VideoStreams   []Stream
	AudioStreams   []Stream
	CaptionStreams []Stream
	ProviderName   string
	ServiceName    string
	PresentEvent   *EventInfo
	FollowingEvent *EventInfo

	// BaseTime/BasePcr anchor a TOT instant to the PCR value observed
	// at that moment, letting DisplayTime derive a live wall clock
	// from ongoing PCR updates between TOT sections.
	BaseTime time.Time
	BasePcr  *ts.PCR
}

// DisplayTime returns the current displayable wall-clock time:
// BaseTime plus the elapsed duration between BasePcr and Pcr, per
// spec.md §4.8. ok is false until both a TOT and a PCR have been seen.
func (s *Service) DisplayTime() (time.Time, bool) {
	if s.BasePcr == nil || s.Pcr == nil || s.BaseTime.IsZero() {
		return time.Time{}, false
	}
	delta := elapsedPCR(*s.BasePcr, *s.Pcr)
	return s.BaseTime.Add(delta), true
}

// elapsedPCR computes the signed elapsed duration from base to cur,
// treating the 27MHz counter modulo 2^33*300 and taking the small
// signed delta, per spec.md's PCR wraparound handling.
func elapsedPCR(base, cur ts.PCR) time.Duration {
	const modulus = uint64(1) << 33 * 300
	delta := int64((cur.Full() - base.Full() + modulus) % modulus)
	if delta > int64(modulus/2) {
		delta -= int64(modulus)
	}
	secs := delta / 27_000_000
	nanos := (delta % 27_000_000) * 1000 / 27
	return time.Duration(secs)*time.Second + time.Duration(nanos)*time.Nanosecond
}

// IsOneseg reports whether this service is a one-seg (partial
// reception, mobile) service, identified by its PMT PID range.
func (s *Service) IsOneseg() bool { return s.PmtPID.IsOnesegPMT() }

// findStream returns the stream matching tag, or streams[0] as the
// "default ES" if tag is nil or unmatched, or ok == false if streams
// is empty.
func findStream(streams []Stream, tag *uint8) (Stream, bool) {
	if tag != nil {
		for _, s := range streams {
			if s.ComponentTag != nil && *s.ComponentTag == *tag {
				return s, true
			}
		}
	}
	if len(streams) == 0 {
		return Stream{}, false
	}
	return streams[0], true
}

// FindVideoStream returns the video stream matching tag, falling back
// to the first (default) video stream.
func (s *Service) FindVideoStream(tag *uint8) (Stream, bool) { return findStream(s.VideoStreams, tag) }

// FindAudioStream returns the audio stream matching tag, falling back
// to the first (default) audio stream.
func (s *Service) FindAudioStream(tag *uint8) (Stream, bool) { return findStream(s.AudioStreams, tag) }

// ServiceMap is an insertion-ordered map of ServiceID to Service,
// order matching the most recently observed PAT exactly.
type ServiceMap struct {
	order []ServiceID
	byID  map[ServiceID]*Service
}

// NewServiceMap returns an empty ServiceMap.
func NewServiceMap() *ServiceMap {
	return &ServiceMap{byID: make(map[ServiceID]*Service)}
}

// Services returns every Service in PAT order.
func (m *ServiceMap) Services() []*Service {
	out := make([]*Service, len(m.order))
	for i, id := range m.order {
		out[i] = m.byID[id]
	}
	return out
}

// Get returns the Service with the given id, if present.
func (m *ServiceMap) Get(id ServiceID) (*Service, bool) {
	s, ok := m.byID[id]
	return s, ok
}

// reorder rebuilds the map's order and membership to match wanted,
// in order, creating any Service not already present via newFn and
// returning the Services that were dropped (no longer in wanted).
func (m *ServiceMap) reorder(wanted []ServiceID, newFn func(ServiceID) *Service) []*Service {
	newByID := make(map[ServiceID]*Service, len(wanted))
	newOrder := make([]ServiceID, len(wanted))
	for i, id := range wanted {
		if existing, ok := m.byID[id]; ok {
			newByID[id] = existing
		} else {
			newByID[id] = newFn(id)
		}
		newOrder[i] = id
	}

	var removed []*Service
	for id, svc := range m.byID {
		if _, ok := newByID[id]; !ok {
			removed = append(removed, svc)
		}
	}

	m.byID = newByID
	m.order = newOrder
	return removed
}
