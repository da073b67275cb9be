package sorter

// SelectService changes which service's streams are delivered to the
// Shooter. videoTag/audioTag select a component_tag within the new
// service; nil means "default" (the first stream in sorted order).
func (s *Sorter) SelectService(id ServiceID, videoTag, audioTag *uint8) {
	s.selectedService = id
	s.hasSelection = true
	s.selectedVideoTag = videoTag
	s.selectedAudioTag = audioTag

	svc, ok := s.services.Get(id)
	if !ok {
		return
	}
	s.shooter.OnServiceChanged(svc)
	s.recomputeSelection(svc, ChangedService)
}

// updateSelection re-evaluates the currently selected service after
// its PMT changed, emitting OnStreamChanged with exactly the bits
// that actually changed, per spec.md §4.8.
func (s *Sorter) updateSelection(svc *Service) {
	if !s.hasSelection {
		// Nothing selected yet: auto-select the first service to gain
		// a filled PMT, matching a player's natural startup behavior.
		s.selectedService = svc.ID
		s.hasSelection = true
		s.shooter.OnServiceChanged(svc)
		s.recomputeSelection(svc, ChangedService)
		return
	}
	if svc.ID != s.selectedService {
		return
	}
	s.recomputeSelection(svc, 0)
}

func (s *Sorter) recomputeSelection(svc *Service, base ChangedMask) {
	mask := base

	video, hasVideo := svc.FindVideoStream(s.selectedVideoTag)
	if hasVideo {
		if video.PID != s.lastVideoPID {
			mask |= ChangedVideoPID
		}
		if video.StreamType != s.lastVideoType {
			mask |= ChangedVideoType
		}
		s.lastVideoPID = video.PID
		s.lastVideoType = video.StreamType
	}

	audio, hasAudio := svc.FindAudioStream(s.selectedAudioTag)
	if hasAudio {
		if audio.PID != s.lastAudioPID {
			mask |= ChangedAudioPID
		}
		if audio.StreamType != s.lastAudioType {
			mask |= ChangedAudioType
		}
		s.lastAudioPID = audio.PID
		s.lastAudioType = audio.StreamType
	}

	if mask != 0 {
		s.shooter.OnStreamChanged(mask)
	}
}
