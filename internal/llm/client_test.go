package llm

import (
	"context"
	"errors"
	"testing"

	lldomain "github.com/lexlapax/go-llms/pkg/llm/domain"
	schemadomain "github.com/lexlapax/go-llms/pkg/schema/domain"
)

// fakeProvider records the messages it saw and answers with a canned
// reply.
type fakeProvider struct {
	reply string
	err   error

	gotMessages []lldomain.Message
}

func (f *fakeProvider) Generate(context.Context, string, ...lldomain.Option) (string, error) {
	return f.reply, f.err
}

func (f *fakeProvider) GenerateMessage(_ context.Context, messages []lldomain.Message, _ ...lldomain.Option) (lldomain.Response, error) {
	f.gotMessages = messages
	if f.err != nil {
		return lldomain.Response{}, f.err
	}
	return lldomain.Response{Content: f.reply}, nil
}

func (f *fakeProvider) GenerateWithSchema(context.Context, string, *schemadomain.Schema, ...lldomain.Option) (interface{}, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeProvider) Stream(context.Context, string, ...lldomain.Option) (lldomain.ResponseStream, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeProvider) StreamMessage(context.Context, []lldomain.Message, ...lldomain.Option) (lldomain.ResponseStream, error) {
	return nil, errors.New("not implemented")
}

// fakeFactory returns the same provider for every call and records which
// model was requested.
type fakeFactory struct {
	provider *fakeProvider

	gotKey    string
	gotModels []string
}

func (f *fakeFactory) build(apiKey, model string) lldomain.Provider {
	f.gotKey = apiKey
	f.gotModels = append(f.gotModels, model)
	return f.provider
}

func newTestClient(f *fakeFactory) *Client {
	return NewClient(ClientConfig{
		Factory:           f.build,
		RequestsPerMinute: 60000,
	})
}

func TestClientComplete(t *testing.T) {
	factory := &fakeFactory{provider: &fakeProvider{reply: "  the notes  "}}
	c := newTestClient(factory)

	msgs := []lldomain.Message{lldomain.NewTextMessage(lldomain.RoleUser, "hello")}
	got, err := c.Complete(context.Background(), "key-1", msgs)
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got != "the notes" {
		t.Errorf("Complete() = %q, want trimmed reply", got)
	}
	if factory.gotKey != "key-1" {
		t.Errorf("factory got key %q, want %q", factory.gotKey, "key-1")
	}
	if len(factory.gotModels) != 1 || factory.gotModels[0] != DefaultModels().Notes {
		t.Errorf("Complete() used models %v, want the notes model", factory.gotModels)
	}
	if len(factory.provider.gotMessages) != 1 {
		t.Errorf("provider saw %d messages, want 1", len(factory.provider.gotMessages))
	}
}

func TestClientCompleteQuizUsesQuizModel(t *testing.T) {
	factory := &fakeFactory{provider: &fakeProvider{reply: "[]"}}
	c := newTestClient(factory)

	msgs := []lldomain.Message{lldomain.NewTextMessage(lldomain.RoleUser, "quiz me")}
	if _, err := c.CompleteQuiz(context.Background(), "key-1", msgs); err != nil {
		t.Fatalf("CompleteQuiz() error = %v", err)
	}
	if len(factory.gotModels) != 1 || factory.gotModels[0] != DefaultModels().Quiz {
		t.Errorf("CompleteQuiz() used models %v, want the quiz model", factory.gotModels)
	}
}

func TestClientCompleteErrors(t *testing.T) {
	genErr := errors.New("quota exceeded")
	msgs := []lldomain.Message{lldomain.NewTextMessage(lldomain.RoleUser, "hello")}

	tests := []struct {
		name     string
		provider *fakeProvider
		apiKey   string
		messages []lldomain.Message
	}{
		{
			name:     "empty API key",
			provider: &fakeProvider{reply: "x"},
			apiKey:   "",
			messages: msgs,
		},
		{
			name:     "no messages",
			provider: &fakeProvider{reply: "x"},
			apiKey:   "key-1",
			messages: nil,
		},
		{
			name:     "provider error",
			provider: &fakeProvider{err: genErr},
			apiKey:   "key-1",
			messages: msgs,
		},
		{
			name:     "blank reply",
			provider: &fakeProvider{reply: "   "},
			apiKey:   "key-1",
			messages: msgs,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(&fakeFactory{provider: tt.provider})
			if _, err := c.Complete(context.Background(), tt.apiKey, tt.messages); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestClientModelOverride(t *testing.T) {
	factory := &fakeFactory{provider: &fakeProvider{reply: "ok"}}
	c := NewClient(ClientConfig{
		Factory:           factory.build,
		Models:            Models{Notes: "model-a", Quiz: "model-b"},
		RequestsPerMinute: 60000,
	})

	msgs := []lldomain.Message{lldomain.NewTextMessage(lldomain.RoleUser, "hi")}
	_, _ = c.Complete(context.Background(), "k", msgs)
	_, _ = c.CompleteQuiz(context.Background(), "k", msgs)

	want := []string{"model-a", "model-b"}
	if len(factory.gotModels) != 2 || factory.gotModels[0] != want[0] || factory.gotModels[1] != want[1] {
		t.Errorf("models used = %v, want %v", factory.gotModels, want)
	}
}
