package memory

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Store keeps every live conversation in process, keyed by conversation id.
type Store struct {
	seed []Message

	mu    sync.Mutex
	convs map[string]*slot
}

type slot struct {
	conv *Conversation
	turn chan struct{} // capacity 1; held for the length of one interaction
}

// Summary describes a stored conversation without copying its transcript.
type Summary struct {
	ID        string    `json:"id"`
	Messages  int       `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewStore returns a store whose new conversations start with seed.
func NewStore(seed ...Message) *Store {
	return &Store{seed: seed, convs: make(map[string]*slot)}
}

func (s *Store) slot(id string) *slot {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl, ok := s.convs[id]
	if !ok {
		sl = &slot{conv: NewConversation(id, s.seed...), turn: make(chan struct{}, 1)}
		s.convs[id] = sl
	}
	return sl
}

// Acquire returns the conversation for id, creating it when absent, and
// blocks until no other interaction holds it. The caller must call release
// exactly once. Acquire gives up when ctx is done.
func (s *Store) Acquire(ctx context.Context, id string) (*Conversation, func(), error) {
	sl := s.slot(id)
	select {
	case sl.turn <- struct{}{}:
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	}
	var once sync.Once
	release := func() { once.Do(func() { <-sl.turn }) }
	return sl.conv, release, nil
}

// Get returns the conversation for id without taking the interaction lock.
func (s *Store) Get(id string) (*Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl, ok := s.convs[id]
	if !ok {
		return nil, false
	}
	return sl.conv, true
}

// Delete forgets a conversation. An interaction already holding it finishes
// against the detached transcript.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.convs[id]; !ok {
		return false
	}
	delete(s.convs, id)
	return true
}

// List returns summaries ordered by most recent activity.
func (s *Store) List() []Summary {
	s.mu.Lock()
	convs := make([]*Conversation, 0, len(s.convs))
	for _, sl := range s.convs {
		convs = append(convs, sl.conv)
	}
	s.mu.Unlock()

	out := make([]Summary, 0, len(convs))
	for _, c := range convs {
		out = append(out, Summary{
			ID:        c.ID(),
			Messages:  c.Len(),
			CreatedAt: c.CreatedAt(),
			UpdatedAt: c.UpdatedAt(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out
}
