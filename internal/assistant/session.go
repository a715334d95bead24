// Package assistant runs one conversational turn: search, ground, stream,
// split.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"unicode/utf8"

	"github.com/suPer8Hu/estate-chat/internal/ai"
	"github.com/suPer8Hu/estate-chat/internal/platform/logger"
	"github.com/suPer8Hu/estate-chat/internal/property"
)

var (
	ErrNotConfigured  = errors.New("assistant is not configured")
	ErrTurnInProgress = errors.New("a turn is already in progress for this session")
)

// Searcher is the listing lookup a turn grounds itself on.
type Searcher interface {
	Search(ctx context.Context, text string, limit, offset int) ([]property.Property, error)
}

type Kind string

const (
	KindSearch     Kind = "search"
	KindGeneration Kind = "generation"
)

// TurnError is a recoverable per-turn failure. Message is safe to show to the
// user; Partial holds whatever answer text streamed before the failure.
type TurnError struct {
	Kind    Kind
	Message string
	Partial string
	Err     error
}

func (e *TurnError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Kind, e.Err)
}

func (e *TurnError) Unwrap() error { return e.Err }

type Result struct {
	Answer      string              `json:"answer"`
	Properties  []property.Property `json:"properties,omitempty"`
	Suggestions []string            `json:"suggestions"`
	// rune counts, used for budget accounting
	InputLength  int `json:"input_length"`
	OutputLength int `json:"output_length"`
}

type Session struct {
	search   Searcher
	provider ai.StreamProvider
	matches  int
	log      *logger.Logger

	mu       sync.Mutex
	inFlight map[string]struct{}
}

type Option func(*Session)

func WithMatches(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.matches = n
		}
	}
}

func WithLogger(l *logger.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.log = l
		}
	}
}

// New builds the shared session service. It fails when no streaming provider
// or searcher is available; callers treat that as fatal.
func New(search Searcher, provider ai.Provider, opts ...Option) (*Session, error) {
	if search == nil || provider == nil {
		return nil, ErrNotConfigured
	}
	sp, ok := provider.(ai.StreamProvider)
	if !ok {
		return nil, fmt.Errorf("%w: provider does not support streaming", ErrNotConfigured)
	}
	s := &Session{
		search:   search,
		provider: sp,
		matches:  MaxContextProperties,
		log:      logger.Nop(),
		inFlight: make(map[string]struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

func (s *Session) acquire(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[sessionID]; busy {
		return false
	}
	s.inFlight[sessionID] = struct{}{}
	return true
}

func (s *Session) release(sessionID string) {
	s.mu.Lock()
	delete(s.inFlight, sessionID)
	s.mu.Unlock()
}

// ProcessTurn answers text within sessionID. onToken sees every streamed
// chunk in order before ProcessTurn returns. On a generation failure the
// returned Result carries the partial answer alongside a *TurnError.
func (s *Session) ProcessTurn(ctx context.Context, sessionID, text string, onToken func(string)) (*Result, error) {
	if !s.acquire(sessionID) {
		return nil, ErrTurnInProgress
	}
	defer s.release(sessionID)

	res := &Result{InputLength: utf8.RuneCountInString(text)}

	props, err := s.search.Search(ctx, text, s.matches, 0)
	if err != nil {
		s.log.Warn("turn search failed", "session_id", sessionID, "err", err)
		return nil, &TurnError{
			Kind:    KindSearch,
			Message: "We couldn't search listings right now. Please try again.",
			Err:     err,
		}
	}
	if len(props) > 0 {
		res.Properties = props
	}

	msgs := []ai.Message{
		{Role: ai.RoleSystem, Content: SystemInstruction},
		{Role: ai.RoleUser, Content: userPrompt(GroundingContext(props), text)},
	}
	chunks, errs := s.provider.StreamChat(ctx, msgs)
	full, streamErr := ai.Fold(ctx, chunks, errs, onToken)

	res.Answer, res.Suggestions = SplitSuggestions(full)
	res.OutputLength = utf8.RuneCountInString(res.Answer)

	if streamErr != nil {
		s.log.Warn("turn generation failed", "session_id", sessionID, "partial_len", res.OutputLength, "err", streamErr)
		return res, &TurnError{
			Kind:    KindGeneration,
			Message: "The assistant stopped before finishing its answer. Please try again.",
			Partial: res.Answer,
			Err:     streamErr,
		}
	}
	return res, nil
}
