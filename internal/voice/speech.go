package voice

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/markdave123-py/botdesk/internal/core"
)

// Audio is synthesized speech for one assistant message.
type Audio struct {
	MessageID   string
	ContentType string
	Data        []byte
}

type sessionAudio struct {
	clips   map[string]Audio
	expires time.Time
}

// SpeechService synthesizes assistant replies once per message and keeps
// the audio while the session stays active. Sessions idle for longer than
// ttl are dropped; ttl <= 0 keeps them until Forget.
type SpeechService struct {
	synth core.SpeechSynthesizer
	ttl   time.Duration
	now   func() time.Time

	mu    sync.Mutex
	cache map[string]*sessionAudio
}

func NewSpeechService(synth core.SpeechSynthesizer, ttl time.Duration) *SpeechService {
	return &SpeechService{
		synth: synth,
		ttl:   ttl,
		now:   time.Now,
		cache: make(map[string]*sessionAudio),
	}
}

func (s *SpeechService) Synthesize(ctx context.Context, sessionID, messageID, text string) (Audio, error) {
	if a, ok := s.cached(sessionID, messageID); ok {
		return a, nil
	}
	if s.synth == nil {
		return Audio{}, fmt.Errorf("speech synthesis: %w", core.ErrConfiguration)
	}
	if strings.TrimSpace(text) == "" {
		return Audio{}, fmt.Errorf("nothing to speak: %w", core.ErrValidation)
	}

	data, contentType, err := s.synth.Synthesize(ctx, text)
	if err != nil {
		return Audio{}, err
	}
	a := Audio{MessageID: messageID, ContentType: contentType, Data: data}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()
	e := s.cache[sessionID]
	if e == nil {
		e = &sessionAudio{clips: make(map[string]Audio)}
		s.cache[sessionID] = e
	}
	e.clips[messageID] = a
	e.expires = s.now().Add(s.ttl)
	return a, nil
}

// cached returns a stored clip and slides the session's expiry.
func (s *SpeechService) cached(sessionID, messageID string) (Audio, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.cache[sessionID]
	if !ok {
		return Audio{}, false
	}
	if s.expired(e.expires) {
		delete(s.cache, sessionID)
		return Audio{}, false
	}
	a, ok := e.clips[messageID]
	if ok {
		e.expires = s.now().Add(s.ttl)
	}
	return a, ok
}

// Forget drops the session's audio, e.g. when the chat is reset.
func (s *SpeechService) Forget(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cache, sessionID)
}

// Sessions reports how many sessions hold audio.
func (s *SpeechService) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cache)
}

func (s *SpeechService) expired(at time.Time) bool {
	return s.ttl > 0 && s.now().After(at)
}

func (s *SpeechService) sweepLocked() {
	for id, e := range s.cache {
		if s.expired(e.expires) {
			delete(s.cache, id)
		}
	}
}

type playing struct {
	messageID string
	expires   time.Time
}

// Player tracks which clip is playing in each session. At most one plays.
// Entries idle for longer than ttl are dropped.
type Player struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	playing map[string]playing
}

func NewPlayer(ttl time.Duration) *Player {
	return &Player{ttl: ttl, now: time.Now, playing: make(map[string]playing)}
}

// Play marks messageID as playing and returns the clip that must be paused,
// or "" when nothing else was playing.
func (p *Player) Play(sessionID, messageID string) (pause string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sweepLocked()
	prev := p.playing[sessionID].messageID
	p.playing[sessionID] = playing{messageID: messageID, expires: p.now().Add(p.ttl)}
	if prev == messageID {
		return ""
	}
	return prev
}

// Done clears the playing clip if it is still messageID.
func (p *Player) Done(sessionID, messageID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.playing[sessionID].messageID == messageID {
		delete(p.playing, sessionID)
	}
}

func (p *Player) Playing(sessionID string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.playing[sessionID]
	if !ok || (p.ttl > 0 && p.now().After(e.expires)) {
		return ""
	}
	return e.messageID
}

func (p *Player) Forget(sessionID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.playing, sessionID)
}

func (p *Player) sweepLocked() {
	if p.ttl <= 0 {
		return
	}
	now := p.now()
	for id, e := range p.playing {
		if now.After(e.expires) {
			delete(p.playing, id)
		}
	}
}
