// Package voice turns recorded speech into chat input and chat replies into
// audio.
package voice

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/markdave123-py/botdesk/internal/core"
)

var (
	ErrEmptyRecording = fmt.Errorf("recording is empty: %w", core.ErrValidation)
	ErrNoSpeech       = fmt.Errorf("no speech detected: %w", core.ErrValidation)
	ErrRecordingLimit = fmt.Errorf("recording too large: %w", core.ErrValidation)
	errNoRecording    = errors.New("recording not found")
)

// MaxRecordingBytes matches the upload limit of hosted transcription APIs.
const MaxRecordingBytes = 25 << 20

type recording struct {
	sessionID   string
	contentType string
	startedAt   time.Time
	lastChunkAt time.Time
	chunks      int
	buf         bytes.Buffer
}

// Clip is a finished recording.
type Clip struct {
	ID          string
	SessionID   string
	ContentType string
	Audio       []byte
	Chunks      int
	Duration    time.Duration
}

// Recorder collects audio chunks that arrive while the user is speaking.
type Recorder struct {
	mu     sync.Mutex
	active map[string]*recording
	maxAge time.Duration
	now    func() time.Time
	newID  func() string
}

// NewRecorder discards recordings that are not stopped within maxAge.
func NewRecorder(maxAge time.Duration) *Recorder {
	return &Recorder{
		active: make(map[string]*recording),
		maxAge: maxAge,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

func (r *Recorder) Start(sessionID, contentType string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.expireLocked()

	if contentType == "" {
		contentType = "audio/webm"
	}
	id := r.newID()
	now := r.now()
	r.active[id] = &recording{sessionID: sessionID, contentType: contentType, startedAt: now, lastChunkAt: now}
	return id
}

func (r *Recorder) Append(id string, chunk []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.active[id]
	if !ok {
		return fmt.Errorf("%w: %s: %w", errNoRecording, id, core.ErrNotFound)
	}
	if rec.buf.Len()+len(chunk) > MaxRecordingBytes {
		delete(r.active, id)
		return ErrRecordingLimit
	}
	if len(chunk) > 0 {
		rec.buf.Write(chunk)
		rec.chunks++
		rec.lastChunkAt = r.now()
	}
	return nil
}

// Stop ends the recording and returns everything appended to it.
func (r *Recorder) Stop(id string) (Clip, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.active[id]
	if !ok {
		return Clip{}, fmt.Errorf("%w: %s: %w", errNoRecording, id, core.ErrNotFound)
	}
	delete(r.active, id)
	if rec.buf.Len() == 0 {
		return Clip{}, ErrEmptyRecording
	}
	return Clip{
		ID:          id,
		SessionID:   rec.sessionID,
		ContentType: rec.contentType,
		Audio:       rec.buf.Bytes(),
		Chunks:      rec.chunks,
		Duration:    rec.lastChunkAt.Sub(rec.startedAt),
	}, nil
}

// SessionOf reports which session started the recording.
func (r *Recorder) SessionOf(id string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.active[id]
	if !ok {
		return "", false
	}
	return rec.sessionID, true
}

func (r *Recorder) expireLocked() {
	if r.maxAge <= 0 {
		return
	}
	cutoff := r.now().Add(-r.maxAge)
	for id, rec := range r.active {
		if rec.lastChunkAt.Before(cutoff) {
			delete(r.active, id)
		}
	}
}
