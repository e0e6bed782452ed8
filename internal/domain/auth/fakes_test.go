package auth

import (
	"context"
	"errors"
	"sync"
)

var errStorageDown = errors.New("storage down")

// fakeKV is an in-memory KeyValueStore that can be told to fail.
type fakeKV struct {
	mu      sync.Mutex
	items   map[string]string
	failGet bool
	failSet bool
	failDel bool
}

func newFakeKV() *fakeKV {
	return &fakeKV{items: map[string]string{}}
}

func (f *fakeKV) GetItems(_ context.Context, keys ...string) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failGet {
		return nil, errStorageDown
	}
	out := map[string]string{}
	for _, k := range keys {
		if v, ok := f.items[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func (f *fakeKV) SetItems(_ context.Context, items map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSet {
		return errStorageDown
	}
	for k, v := range items {
		f.items[k] = v
	}
	return nil
}

func (f *fakeKV) RemoveItems(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDel {
		return errStorageDown
	}
	for _, k := range keys {
		delete(f.items, k)
	}
	return nil
}

func (f *fakeKV) snapshot() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]string, len(f.items))
	for k, v := range f.items {
		out[k] = v
	}
	return out
}

// fakeProvider hands out one fakeKV per client.
type fakeProvider struct {
	mu      sync.Mutex
	spaces  map[string]*fakeKV
	pingErr error
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{spaces: map[string]*fakeKV{}}
}

func (p *fakeProvider) Namespace(clientID string) KeyValueStore {
	return p.kv(clientID)
}

func (p *fakeProvider) kv(clientID string) *fakeKV {
	p.mu.Lock()
	defer p.mu.Unlock()
	kv, ok := p.spaces[clientID]
	if !ok {
		kv = newFakeKV()
		p.spaces[clientID] = kv
	}
	return kv
}

func (p *fakeProvider) Ping(context.Context) error {
	return p.pingErr
}

type recordingNavigator struct {
	paths []string
}

func (n *recordingNavigator) Navigate(path string) {
	n.paths = append(n.paths, path)
}

type publishedEvent struct {
	clientID string
	session  Session
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) Publish(clientID string, s Session) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{clientID, s})
}

// fakeVerifier counts calls and can block until released.
type fakeVerifier struct {
	mu      sync.Mutex
	calls   int
	ok      bool
	err     error
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (f *fakeVerifier) Verify(ctx context.Context, _, _ string) (bool, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.started != nil {
		f.once.Do(func() { close(f.started) })
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
	return f.ok, f.err
}

func (f *fakeVerifier) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
