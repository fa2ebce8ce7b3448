package http

import (
	"context"
	"fmt"
	"sync"
	"time"

	"docseek/internal/db"
	"docseek/internal/llm"
	"docseek/pkg"
)

// memStore is an in-memory db.Store.
type memStore struct {
	mu       sync.Mutex
	threads  map[string]*pkg.Thread
	messages []pkg.Message
	recs     []pkg.RecommendationRecord
	nextID   int64
	pingErr  error
}

func newMemStore() *memStore {
	return &memStore{threads: make(map[string]*pkg.Thread)}
}

func (s *memStore) CreateThread(_ context.Context, messageCap int) (*pkg.Thread, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	t := &pkg.Thread{ID: fmt.Sprintf("thread-%d", s.nextID), MessageCap: messageCap, CreatedAt: time.Now()}
	s.threads[t.ID] = t
	cp := *t
	return &cp, nil
}

func (s *memStore) GetThread(_ context.Context, id string) (*pkg.Thread, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.threads[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *memStore) UpdateThreadTitle(_ context.Context, id, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.threads[id]
	if !ok {
		return db.ErrNotFound
	}
	t.Title = title
	return nil
}

func (s *memStore) AppendMessage(_ context.Context, threadID string, role pkg.MessageRole, content string) (*pkg.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	m := pkg.Message{ID: s.nextID, ThreadID: threadID, Role: role, Content: content, CreatedAt: time.Now()}
	s.messages = append(s.messages, m)
	return &m, nil
}

func (s *memStore) CountPatientMessages(_ context.Context, threadID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, m := range s.messages {
		if m.ThreadID == threadID && m.Role == pkg.RolePatient {
			n++
		}
	}
	return n, nil
}

func (s *memStore) RecentMessages(_ context.Context, threadID string, limit int) ([]pkg.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []pkg.Message
	for _, m := range s.messages {
		if m.ThreadID == threadID {
			out = append(out, m)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (s *memStore) SaveRecommendation(_ context.Context, rec *pkg.RecommendationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	rec.ID = s.nextID
	rec.CreatedAt = time.Now()
	s.recs = append(s.recs, *rec)
	return nil
}

func (s *memStore) ListRecommendations(_ context.Context, threadID string) ([]pkg.RecommendationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []pkg.RecommendationRecord
	for _, r := range s.recs {
		if r.ThreadID == threadID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *memStore) Ping(context.Context) error { return s.pingErr }
func (s *memStore) Close() error               { return nil }

// fakeLLM replies in order, repeating the last reply.
type fakeLLM struct {
	mu      sync.Mutex
	replies []string
	err     error
	calls   int
}

func (f *fakeLLM) Complete(context.Context, []llm.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	if len(f.replies) == 0 {
		return "", nil
	}
	reply := f.replies[0]
	if len(f.replies) > 1 {
		f.replies = f.replies[1:]
	}
	return reply, nil
}

type fakeNotifier struct {
	mu       sync.Mutex
	notified []string
	events   chan string
}

func (n *fakeNotifier) Notify(_ context.Context, threadID string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notified = append(n.notified, threadID)
	return nil
}

func (n *fakeNotifier) Listen(context.Context) (<-chan string, error) {
	return n.events, nil
}
