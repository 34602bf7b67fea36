package conversation

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/markdave123-py/botdesk/internal/core"
	"github.com/markdave123-py/botdesk/internal/logger"
)

// Service loads state, runs a turn and saves the result.
type Service struct {
	handler *TurnHandler
	store   StateStore

	mu      sync.Mutex
	onReset []func(chatbotID, sessionID string)
}

func NewService(handler *TurnHandler, store StateStore) *Service {
	return &Service{handler: handler, store: store}
}

// OnReset registers fn to run after a session is discarded.
func (s *Service) OnReset(fn func(chatbotID, sessionID string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onReset = append(s.onReset, fn)
}

// Send handles one message. An empty sessionID starts a new session; an
// unknown one is adopted as-is so the client keeps its id.
func (s *Service) Send(ctx context.Context, conv *ConversationContext, sessionID, text string) (State, Result, error) {
	chatbotID := conv.chatbotID()
	st := NewState(chatbotID)
	if sessionID != "" {
		loaded, ok, err := s.store.Load(ctx, chatbotID, sessionID)
		if err != nil {
			logger.FromContext(ctx).WithError(err).Warn("conversation state unavailable, starting fresh")
		}
		if ok {
			st = loaded
		} else {
			st.SessionID = sessionID
		}
	}

	next, res, err := s.handler.HandleTurn(ctx, conv, st, text)
	if err != nil {
		return st, res, err
	}
	if err := s.store.Save(ctx, next); err != nil {
		logger.FromContext(ctx).WithError(err).Warn("conversation state not saved")
	}
	return next, res, nil
}

// State returns the stored state for a session.
func (s *Service) State(ctx context.Context, chatbotID, sessionID string) (State, error) {
	st, ok, err := s.store.Load(ctx, chatbotID, sessionID)
	if err != nil {
		return State{}, err
	}
	if !ok {
		return State{}, fmt.Errorf("session %s: %w", sessionID, core.ErrNotFound)
	}
	return st, nil
}

// Reset discards the session and returns a fresh state with a new id.
func (s *Service) Reset(ctx context.Context, chatbotID, sessionID string) (State, error) {
	if sessionID != "" {
		if err := s.store.Delete(ctx, chatbotID, sessionID); err != nil {
			return State{}, err
		}
		s.mu.Lock()
		hooks := append([]func(string, string){}, s.onReset...)
		s.mu.Unlock()
		for _, fn := range hooks {
			fn(chatbotID, sessionID)
		}
	}
	return NewState(chatbotID).Reset(uuid.NewString), nil
}
