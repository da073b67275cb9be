/*
NAME
  player.go - threading glue binding the demux/sorter core to a media session.

DESCRIPTION
  Owns the reader goroutine that pulls packets from a Source and
  feeds them to a Demux, and the bounded per-stream sample queues a
  media-session thread drains from, so the reader never blocks on
  renderer state.

LICENSE
  Copyright (C) 2026 the isdbt authors. All Rights Reserved.
*/

// Package player hosts the reader thread and the bounded per-stream
// sample queues that bridge the single-threaded demux/sorter core to
// an asynchronous media-session thread, per spec.md §5.
package player

import (
	"io"
	"sync"
	"time"

	"github.com/ausocean/utils/logging"
	"github.com/pkg/errors"

	"github.com/ausocean/isdbt/demux"
	"github.com/ausocean/isdbt/sorter"
)

// Sample is one timed elementary-stream payload queued for a renderer.
type Sample struct {
	PTS     *uint64
	DTS     *uint64
	Payload []byte
}

// sampleQueueDepth is the soft per-stream pending-sample limit, per
// spec.md §5 ("bounded sample queue... soft limit ~2 pending
// samples").
const sampleQueueDepth = 2

// sampleQueue is a bounded, single-producer single-consumer queue.
type sampleQueue struct {
	mu    sync.Mutex
	items []Sample
}

func (q *sampleQueue) needsData() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) < sampleQueueDepth
}

func (q *sampleQueue) push(s Sample) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) >= sampleQueueDepth {
		return false
	}
	q.items = append(q.items, s)
	return true
}

func (q *sampleQueue) pop() (Sample, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return Sample{}, false
	}
	s := q.items[0]
	q.items = q.items[1:]
	return s, true
}

// Source yields successive Transport Stream packets.
type Source interface {
	Next() ([]byte, error)
}

// Player owns the TS-reader thread: it loops Source.Next ->
// Demux.Feed on its own goroutine, never touching renderer state
// directly, per spec.md §5's threading model.
type Player struct {
	src    Source
	demux  *demux.Demux
	sorter *sorter.Sorter
	log    logging.Logger
	metrics *Metrics

	videoQueue sampleQueue
	audioQueue sampleQueue

	shutdown chan struct{}
	done     chan struct{}
	once     sync.Once
}

// Option configures a Player at construction time.
type Option func(*Player) error

// WithLogger sets the Player's logger.
func WithLogger(log logging.Logger) Option {
	return func(p *Player) error { p.log = log; return nil }
}

// WithMetrics attaches a Metrics instrumentation sink.
func WithMetrics(m *Metrics) Option {
	return func(p *Player) error { p.metrics = m; return nil }
}

// New returns a Player reading packets from src and dispatching them
// through dx, which should be wired to a sorter.Sorter as its Filter.
func New(src Source, dx *demux.Demux, srt *sorter.Sorter, opts ...Option) (*Player, error) {
	p := &Player{
		src: src, demux: dx, sorter: srt,
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, errors.Wrap(err, "player: applying option")
		}
	}
	return p, nil
}

// Run drives the reader loop until Close is called or the source is
// exhausted or fails. It blocks the calling goroutine; callers
// typically invoke it via `go p.Run()`.
func (p *Player) Run() error {
	defer close(p.done)
	for {
		select {
		case <-p.shutdown:
			return nil
		default:
		}

		raw, err := p.src.Next()
		if err != nil {
			if err == errEOS || err == io.EOF {
				return nil
			}
			if p.log != nil {
				p.log.Error("player: reader failed", "error", err.Error())
			}
			return errors.Wrap(err, "player: reading packet")
		}
		if p.metrics != nil {
			p.metrics.PacketsTotal.Inc()
		}
		p.demux.Feed(raw)
	}
}

// errEOS is a sentinel a Source can't itself express via io.EOF in
// every embedding (e.g. FileSource distinguishes "caught up, wait for
// more" from "truly done"); Sources that never terminate simply never
// return it.
var errEOS = errors.New("player: end of stream")

// Close requests the reader loop stop, waiting up to 5s for it to
// exit before returning, per spec.md §5's shutdown policy.
func (p *Player) Close() error {
	p.once.Do(func() { close(p.shutdown) })
	select {
	case <-p.done:
		return nil
	case <-time.After(5 * time.Second):
		return errors.New("player: close timed out after 5s")
	}
}

// NeedsVideoData and NeedsAudioData report whether the video or audio
// sample queue has room. Run does not consult them; a sample pushed
// into a full queue is dropped.
func (p *Player) NeedsVideoData() bool { return p.videoQueue.needsData() }
func (p *Player) NeedsAudioData() bool { return p.audioQueue.needsData() }

// PopVideoSample/PopAudioSample are called from the media-session
// thread to drain queued samples.
func (p *Player) PopVideoSample() (Sample, bool) { return p.videoQueue.pop() }
func (p *Player) PopAudioSample() (Sample, bool) { return p.audioQueue.pop() }

// pushVideo/pushAudio are called from the Shooter implementation
// bridging sorter callbacks (reader thread) into the bounded queues.
func (p *Player) pushVideo(s Sample) { p.videoQueue.push(s) }
func (p *Player) pushAudio(s Sample) { p.audioQueue.push(s) }
