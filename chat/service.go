// Package chat implements the conversational relay use cases: single chat
// turns, history retrieval, session deletion and batch comment analysis.
package chat

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/adimpact/chatbot/domain"
	"github.com/adimpact/chatbot/ratelimit"
	"github.com/adimpact/chatbot/store"
)

// systemPrompt frames every conversation sent to the LLM provider.
const systemPrompt = `You are AdImpact's intelligent assistant. You help users understand social media sentiment analysis,
interpret comment data, and provide actionable insights based on analyzed comments.

Guidelines:
- Be helpful, concise, and provide specific examples when relevant
- Format responses in clear, readable paragraphs or bullet points
- Avoid harmful, biased, or inappropriate content
- Focus on objective analysis and insights
- Maintain professional language and tone`

// Validation limits, counted in runes so non-ASCII input is measured the
// same way callers see it.
const (
	maxMessageChars    = 5000
	maxSessionIDChars  = 500
	maxQueryChars      = 1000
	maxComments        = 100
	maxCommentChars    = 5000
	sampleSize         = 5
	samplePreviewChars = 100
)

// Completer issues a single chat completion against the LLM provider.
type Completer interface {
	ChatCompletion(ctx context.Context, systemPrompt string, turns []domain.Turn) (string, error)
}

// Service orchestrates chat turns across the rate limiter, the session store
// and the outbound gateway.
type Service struct {
	store   *store.Store
	limiter *ratelimit.Limiter
	llm     Completer
	ttl     time.Duration

	// turnLocks serializes whole chat turns per session id so concurrent
	// calls against the same session never interleave their turns.
	turnMu    sync.Mutex
	turnLocks map[string]*turnLock
}

type turnLock struct {
	mu   sync.Mutex
	refs int
}

// New creates a chat service. A non-positive ttl falls back to the store
// default.
func New(st *store.Store, limiter *ratelimit.Limiter, llm Completer, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = store.DefaultTTL
	}
	return &Service{
		store:     st,
		limiter:   limiter,
		llm:       llm,
		ttl:       ttl,
		turnLocks: make(map[string]*turnLock),
	}
}

// lockSession acquires the per-session turn lock and returns its release
// function. Entries are reference counted so the map shrinks once the last
// holder releases.
func (s *Service) lockSession(id string) func() {
	s.turnMu.Lock()
	l, ok := s.turnLocks[id]
	if !ok {
		l = &turnLock{}
		s.turnLocks[id] = l
	}
	l.refs++
	s.turnMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.turnMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.turnLocks, id)
		}
		s.turnMu.Unlock()
	}
}

// Chat relays one user message to the LLM provider within the session's
// conversation context. Rejected and failed calls never fabricate an
// assistant turn; on outbound failure the user's turn stays recorded.
func (s *Service) Chat(ctx context.Context, clientID, message, sessionID string) (*domain.ChatResult, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, fmt.Errorf("%w: message cannot be empty", domain.ErrInvalidInput)
	}
	if utf8.RuneCountInString(message) > maxMessageChars {
		return nil, fmt.Errorf("%w: message exceeds %d characters", domain.ErrInvalidInput, maxMessageChars)
	}
	if utf8.RuneCountInString(sessionID) > maxSessionIDChars {
		return nil, fmt.Errorf("%w: session_id exceeds %d characters", domain.ErrInvalidInput, maxSessionIDChars)
	}

	// Admission precedes all other work so rejected calls have zero side
	// effects on session state.
	if !s.limiter.Allow(clientID) {
		return nil, fmt.Errorf("%w: max %d messages per minute", domain.ErrRateLimitExceeded, s.limiter.PerMinute())
	}

	if removed := s.store.SweepExpired(s.ttl); removed > 0 {
		log.Printf("session sweep removed %d expired sessions", removed)
	}

	sessionID, created := s.store.GetOrCreate(sessionID)
	if created {
		log.Printf("created session %.20s for client %s", sessionID, clientID)
	}

	unlock := s.lockSession(sessionID)
	defer unlock()

	if err := s.store.AppendTurn(sessionID, domain.RoleUser, message); err != nil {
		return nil, err
	}

	turns, ok := s.store.History(sessionID)
	if !ok {
		// The session was deleted between the user-append and this read.
		return nil, domain.ErrSessionNotFound
	}
	text, err := s.llm.ChatCompletion(ctx, systemPrompt, turns)
	if err != nil {
		log.Printf("ERROR: LLM request failed for session %.20s: %v", sessionID, err)
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstream, err)
	}

	if err := s.store.AppendTurn(sessionID, domain.RoleAssistant, text); err != nil {
		return nil, err
	}

	return &domain.ChatResult{
		Status:    "success",
		Response:  text,
		SessionID: sessionID,
	}, nil
}

// History returns the conversation history for a session.
func (s *Service) History(sessionID string) (*domain.HistoryResult, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session_id is required", domain.ErrInvalidInput)
	}
	turns, ok := s.store.History(sessionID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return &domain.HistoryResult{
		SessionID:    sessionID,
		Messages:     turns,
		MessageCount: len(turns),
	}, nil
}

// DeleteSession removes a session. It reports whether a session existed.
func (s *Service) DeleteSession(sessionID string) (bool, error) {
	if sessionID == "" {
		return false, fmt.Errorf("%w: session_id is required", domain.ErrInvalidInput)
	}
	return s.store.Delete(sessionID), nil
}

// Stats returns a summary of the session store.
func (s *Service) Stats() *domain.StoreStats {
	return s.store.Stats()
}

// AnalyzeComments builds a synthetic analysis prompt from the comments and
// optional query, then delegates to Chat. Failures from the delegated call
// come back as an error-shaped AnalysisResult carrying the comment count, so
// batch callers always receive a uniform shape.
func (s *Service) AnalyzeComments(ctx context.Context, clientID string, comments []string, query, sessionID string) (*domain.AnalysisResult, error) {
	if len(comments) == 0 {
		return nil, fmt.Errorf("%w: at least one comment is required", domain.ErrInvalidInput)
	}
	if len(comments) > maxComments {
		return nil, fmt.Errorf("%w: maximum %d comments allowed per request", domain.ErrInvalidInput, maxComments)
	}

	valid := make([]string, 0, len(comments))
	for _, comment := range comments {
		comment = strings.TrimSpace(comment)
		if comment != "" && utf8.RuneCountInString(comment) <= maxCommentChars {
			valid = append(valid, comment)
		}
	}
	if len(valid) == 0 {
		return nil, domain.ErrNoValidComments
	}
	if utf8.RuneCountInString(query) > maxQueryChars {
		return nil, fmt.Errorf("%w: query exceeds %d characters", domain.ErrInvalidInput, maxQueryChars)
	}

	sampleCount := len(valid)
	if sampleCount > sampleSize {
		sampleCount = sampleSize
	}

	result, err := s.Chat(ctx, clientID, buildAnalysisPrompt(valid, query), sessionID)
	if err != nil {
		log.Printf("ERROR: comment analysis failed: %v", err)
		return &domain.AnalysisResult{
			Status:       "error",
			Message:      err.Error(),
			CommentCount: len(comments),
		}, nil
	}

	return &domain.AnalysisResult{
		Status:       result.Status,
		Response:     result.Response,
		SessionID:    result.SessionID,
		CommentCount: len(valid),
		SampleCount:  sampleCount,
	}, nil
}

// buildAnalysisPrompt embeds the comment count, a short sample of the first
// comments and the optional user question into one chat message.
func buildAnalysisPrompt(comments []string, query string) string {
	sample := comments
	if len(sample) > sampleSize {
		sample = sample[:sampleSize]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "I have %d comments to analyze.\n\nSample comments:\n", len(comments))
	for _, comment := range sample {
		if utf8.RuneCountInString(comment) > samplePreviewChars {
			comment = string([]rune(comment)[:samplePreviewChars])
		}
		fmt.Fprintf(&b, "  • %s\n", comment)
	}
	if len(comments) > sampleSize {
		fmt.Fprintf(&b, "\n(Plus %d more comments)\n", len(comments)-sampleSize)
	}
	if query != "" {
		fmt.Fprintf(&b, "\nUser question: %s\n", query)
	}
	b.WriteString("\nPlease provide sentiment analysis insights.")
	return b.String()
}
