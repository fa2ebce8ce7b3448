package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type scriptedProvider struct {
	name    string
	errs    []error
	reply   string
	calls   int
	lastMsg []Message
	block   bool
}

func (p *scriptedProvider) Name() string  { return p.name }
func (p *scriptedProvider) Model() string { return p.name + "-model" }

func (p *scriptedProvider) Complete(ctx context.Context, messages []Message) (string, error) {
	p.calls++
	p.lastMsg = messages
	if p.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if p.calls <= len(p.errs) {
		return "", p.errs[p.calls-1]
	}
	return p.reply, nil
}

var errUpstream = errors.New("upstream 503")

func fastConfig() ManagerConfig {
	return ManagerConfig{FallbackEnabled: true, RetryAttempts: 3, RetryDelay: time.Millisecond}
}

func TestManagerRetriesThenSucceeds(t *testing.T) {
	p := &scriptedProvider{name: "a", errs: []error{errUpstream, errUpstream}, reply: "neurology"}
	m := NewManager([]Provider{p}, fastConfig(), zap.NewNop())

	msgs := []Message{{Role: RoleUser, Content: "hi"}}
	out, err := m.Complete(context.Background(), msgs)
	require.NoError(t, err)
	assert.Equal(t, "neurology", out)
	assert.Equal(t, 3, p.calls)
	assert.Equal(t, msgs, p.lastMsg)
}

func TestManagerFallsBack(t *testing.T) {
	a := &scriptedProvider{name: "a", errs: []error{errUpstream, errUpstream, errUpstream}}
	b := &scriptedProvider{name: "b", reply: "cardiology"}
	m := NewManager([]Provider{a, b}, fastConfig(), zap.NewNop())

	out, err := m.Complete(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "cardiology", out)
	assert.Equal(t, 3, a.calls)
	assert.Equal(t, 1, b.calls)
}

func TestManagerWithoutFallbackStopsAtFirstProvider(t *testing.T) {
	cfg := fastConfig()
	cfg.FallbackEnabled = false
	cfg.RetryAttempts = 1
	a := &scriptedProvider{name: "a", errs: []error{errUpstream}}
	b := &scriptedProvider{name: "b", reply: "unused"}
	m := NewManager([]Provider{a, b}, cfg, zap.NewNop())

	_, err := m.Complete(context.Background(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAllProvidersFailed)
	assert.ErrorIs(t, err, errUpstream)

	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "a", pe.Provider)
	assert.Equal(t, 0, b.calls)
}

func TestManagerAttemptTimeout(t *testing.T) {
	cfg := fastConfig()
	cfg.RetryAttempts = 2
	cfg.Timeout = 5 * time.Millisecond
	p := &scriptedProvider{name: "slow", block: true}
	m := NewManager([]Provider{p}, cfg, zap.NewNop())

	_, err := m.Complete(context.Background(), nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 2, p.calls)
}

func TestManagerNoProviders(t *testing.T) {
	m := NewManager(nil, fastConfig(), zap.NewNop())
	_, err := m.Complete(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoProviders)
}

func TestBackoffDoubles(t *testing.T) {
	m := NewManager(nil, ManagerConfig{RetryDelay: 100 * time.Millisecond}, zap.NewNop())
	assert.Equal(t, 100*time.Millisecond, m.backoff(1))
	assert.Equal(t, 200*time.Millisecond, m.backoff(2))
	assert.Equal(t, 400*time.Millisecond, m.backoff(3))
}

func TestNewProviderUnknown(t *testing.T) {
	_, err := NewProvider(context.Background(), ProviderConfig{Name: "llama"})
	assert.ErrorIs(t, err, ErrUnknownProvider)

	_, err = NewProvider(context.Background(), ProviderConfig{Name: "openai"})
	assert.Error(t, err)
}

func TestToGeminiContents(t *testing.T) {
	contents, system := toGeminiContents([]Message{
		{Role: RoleSystem, Content: "be brief"},
		{Role: RoleUser, Content: "headache"},
		{Role: RoleAssistant, Content: "since when?"},
	})
	require.NotNil(t, system)
	assert.Equal(t, "be brief", system.Parts[0].Text)
	require.Len(t, contents, 2)
	assert.Equal(t, "user", contents[0].Role)
	assert.Equal(t, "model", contents[1].Role)
}
