package chat

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/eino/schema"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/zhouzirui/zai-studio/backend/internal/model/chat"
	"github.com/zhouzirui/zai-studio/backend/internal/model/persona"
	"github.com/zhouzirui/zai-studio/backend/pkg/logger"
	"github.com/zhouzirui/zai-studio/backend/pkg/telemetry"
)

const subscriberBuffer = 64

// Responder produces assistant replies. *ai.Service satisfies it.
type Responder interface {
	StreamingEnabled() bool
	GenerateResponse(ctx context.Context, system string, history []chat.Turn, query string) (*schema.Message, error)
	StreamResponse(ctx context.Context, system string, history []chat.Turn, query string) (*schema.StreamReader[*schema.Message], error)
}

// Session owns one transcript and serializes the messages sent to it.
type Session struct {
	id        string
	persona   persona.Persona
	createdAt time.Time
	responder Responder
	logger    *zap.Logger

	mu     sync.Mutex
	turns  []chat.Turn
	busy   bool
	closed bool
	subs   map[<-chan chat.Event]chan chat.Event
}

// NewSession creates a session seeded with the persona's opening line.
func NewSession(id string, p persona.Persona, responder Responder, log *zap.Logger) *Session {
	s := &Session{
		id:        id,
		persona:   p,
		createdAt: time.Now().UTC(),
		responder: responder,
		logger:    logger.OrNop(log).Named("chat").With(zap.String("session", id)),
		turns:     make([]chat.Turn, 0, 16),
		subs:      make(map[<-chan chat.Event]chan chat.Event),
	}
	if p.OpeningLine != "" {
		s.turns = append(s.turns, chat.Turn{Role: chat.RoleAssistant, Text: p.OpeningLine, Synthetic: true})
	}
	return s
}

func (s *Session) ID() string { return s.id }

func (s *Session) Persona() persona.Persona { return s.persona }

// Transcript returns a copy of the turns in display order.
func (s *Session) Transcript() []chat.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]chat.Turn(nil), s.turns...)
}

// Info snapshots the session for the API.
func (s *Session) Info() chat.SessionInfo {
	return chat.SessionInfo{
		ID:         s.id,
		PersonaID:  s.persona.ID,
		CreatedAt:  s.createdAt,
		Transcript: s.Transcript(),
	}
}

// Busy reports whether a reply is being produced.
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// Subscribe returns a channel receiving an event for every appended or updated
// turn. Events are dropped for subscribers whose buffer is full.
func (s *Session) Subscribe() <-chan chat.Event {
	ch := make(chan chat.Event, subscriberBuffer)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		close(ch)
		return ch
	}
	s.subs[ch] = ch
	return ch
}

// Unsubscribe closes a channel returned by Subscribe.
func (s *Session) Unsubscribe(ch <-chan chat.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sub, ok := s.subs[ch]; ok {
		delete(s.subs, ch)
		close(sub)
	}
}

// Close ends all subscriptions and rejects further sends.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for key, sub := range s.subs {
		delete(s.subs, key)
		close(sub)
	}
}

// Send appends the user's message and the assistant reply to the transcript.
// onSnapshot, when non-nil, receives the full accumulated reply after every
// non-empty chunk. On failure the reply is replaced by, or followed by,
// FailureMessage and a *StreamError is returned.
func (s *Session) Send(ctx context.Context, text string, onSnapshot func(string)) (chat.Turn, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return chat.Turn{}, ErrEmptyMessage
	}

	s.mu.Lock()
	switch {
	case s.closed:
		s.mu.Unlock()
		return chat.Turn{}, ErrSessionClosed
	case s.busy:
		s.mu.Unlock()
		return chat.Turn{}, ErrSessionBusy
	}
	s.busy = true
	history := append([]chat.Turn(nil), s.turns...)
	s.appendLocked(chat.Turn{Role: chat.RoleUser, Text: text})
	idx := s.appendLocked(chat.Turn{Role: chat.RoleAssistant})
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.busy = false
		s.mu.Unlock()
	}()

	ctx, span := telemetry.Start(ctx, "zai/chat", "chat.send",
		attribute.String("session.id", s.id),
		attribute.String("persona.id", s.persona.ID),
		attribute.Bool("stream", s.responder.StreamingEnabled()),
	)

	var err error
	if s.responder.StreamingEnabled() {
		err = s.stream(ctx, idx, history, text, onSnapshot)
	} else {
		err = s.generate(ctx, idx, history, text, onSnapshot)
	}
	if err == nil && s.turnText(idx) == "" {
		err = errEmptyReply
	}
	telemetry.End(span, err)

	if err != nil {
		s.logger.Warn("reply failed", zap.Error(err))
		return s.fail(idx, err)
	}

	s.mu.Lock()
	final := s.turns[idx]
	s.mu.Unlock()
	s.logger.Debug("reply completed", zap.Int("length", len(final.Text)))
	return final, nil
}

func (s *Session) stream(ctx context.Context, idx int, history []chat.Turn, text string, onSnapshot func(string)) error {
	stream, err := s.responder.StreamResponse(ctx, s.persona.SystemInstruction, history, text)
	if err != nil {
		return err
	}
	defer stream.Close()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if chunk == nil || chunk.Content == "" {
			continue
		}
		s.extend(idx, chunk.Content, onSnapshot)
	}
}

func (s *Session) generate(ctx context.Context, idx int, history []chat.Turn, text string, onSnapshot func(string)) error {
	msg, err := s.responder.GenerateResponse(ctx, s.persona.SystemInstruction, history, text)
	if err != nil {
		return err
	}
	if msg != nil && msg.Content != "" {
		s.extend(idx, msg.Content, onSnapshot)
	}
	return nil
}

// extend concatenates delta onto the reply and publishes the new snapshot.
func (s *Session) extend(idx int, delta string, onSnapshot func(string)) {
	s.mu.Lock()
	s.turns[idx].Text += delta
	full := s.turns[idx].Text
	s.publishLocked(idx)
	s.mu.Unlock()

	if onSnapshot != nil {
		onSnapshot(full)
	}
}

func (s *Session) fail(idx int, cause error) (chat.Turn, error) {
	failure := chat.Turn{Role: chat.RoleAssistant, Text: FailureMessage, Synthetic: true}

	s.mu.Lock()
	partial := s.turns[idx].Text
	if partial == "" {
		s.turns[idx] = failure
		s.publishLocked(idx)
	} else {
		s.appendLocked(failure)
	}
	s.mu.Unlock()

	return failure, &StreamError{Partial: partial, Err: cause}
}

func (s *Session) turnText(idx int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.turns[idx].Text
}

func (s *Session) appendLocked(turn chat.Turn) int {
	s.turns = append(s.turns, turn)
	idx := len(s.turns) - 1
	s.publishLocked(idx)
	return idx
}

func (s *Session) publishLocked(idx int) {
	if len(s.subs) == 0 {
		return
	}
	evt := chat.Event{SessionID: s.id, Index: idx, Turn: s.turns[idx]}
	for _, sub := range s.subs {
		select {
		case sub <- evt:
		default:
		}
	}
}
