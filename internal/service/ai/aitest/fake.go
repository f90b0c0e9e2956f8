// Package aitest provides scripted eino chat models for tests.
package aitest

import (
	"context"
	"errors"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// ErrScripted is the default failure returned by scripted models.
var ErrScripted = errors.New("aitest: scripted failure")

// ChatModel replays a fixed script. Chunks are streamed in order; when
// FailAfter >= 0 the stream fails after that many chunks. StartErr fails the
// call before any chunk is produced.
type ChatModel struct {
	Chunks    []string
	FailAfter int
	StartErr  error
	// Block, when non-nil, is received from before the call returns.
	Block chan struct{}

	mu     sync.Mutex
	inputs [][]*schema.Message
}

// NewChatModel returns a model that streams chunks and succeeds.
func NewChatModel(chunks ...string) *ChatModel {
	return &ChatModel{Chunks: chunks, FailAfter: -1}
}

// Calls returns the message lists passed to Generate/Stream.
func (m *ChatModel) Calls() [][]*schema.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]*schema.Message, len(m.inputs))
	copy(out, m.inputs)
	return out
}

func (m *ChatModel) record(input []*schema.Message) {
	m.mu.Lock()
	m.inputs = append(m.inputs, input)
	m.mu.Unlock()
}

func (m *ChatModel) wait(ctx context.Context) error {
	if m.Block == nil {
		return nil
	}
	select {
	case <-m.Block:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *ChatModel) Generate(ctx context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	m.record(input)
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	if m.StartErr != nil {
		return nil, m.StartErr
	}
	if m.FailAfter >= 0 {
		return nil, ErrScripted
	}
	var text string
	for _, c := range m.Chunks {
		text += c
	}
	return schema.AssistantMessage(text, nil), nil
}

func (m *ChatModel) Stream(ctx context.Context, input []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	m.record(input)
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	if m.StartErr != nil {
		return nil, m.StartErr
	}

	if m.FailAfter < 0 {
		msgs := make([]*schema.Message, 0, len(m.Chunks))
		for _, c := range m.Chunks {
			msgs = append(msgs, schema.AssistantMessage(c, nil))
		}
		return schema.StreamReaderFromArray(msgs), nil
	}

	sr, sw := schema.Pipe[*schema.Message](len(m.Chunks) + 1)
	go func() {
		defer sw.Close()
		for i, c := range m.Chunks {
			if i == m.FailAfter {
				break
			}
			sw.Send(schema.AssistantMessage(c, nil), nil)
		}
		sw.Send(nil, ErrScripted)
	}()
	return sr, nil
}

func (m *ChatModel) BindTools([]*schema.ToolInfo) error { return nil }

var _ model.ChatModel = (*ChatModel)(nil)
