package testutil

import (
	"bytes"
	"context"
	"io"
	"sort"
	"sync"

	"github.com/contentdeck/apiserver/internal/services"
	"github.com/contentdeck/apiserver/internal/storage"
)

// ObjectStore keeps objects in memory.
type ObjectStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	// Err, when set, is returned by Put and Get.
	Err error
}

func NewObjectStore() *ObjectStore {
	return &ObjectStore{objects: map[string][]byte{}}
}

func (s *ObjectStore) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	if s.Err != nil {
		return s.Err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	return nil
}

func (s *ObjectStore) Get(_ context.Context, key string) (io.ReadCloser, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Keys lists stored keys in order.
func (s *ObjectStore) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// EventRecorder captures published events.
type EventRecorder struct {
	mu     sync.Mutex
	events []services.Event
}

func (r *EventRecorder) Publish(_ context.Context, event services.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// Types returns the recorded event types in publish order.
func (r *EventRecorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

// Events returns a copy of the recorded events.
func (r *EventRecorder) Events() []services.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]services.Event(nil), r.events...)
}
