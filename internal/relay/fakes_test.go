package relay

import (
	"context"
	"fmt"
	"sort"

	"github.com/ppiankov/postrelay/internal/post"
)

type memStore struct {
	posts  map[string]post.Post
	puts   []post.Post
	getErr error
	putErr error
}

func newMemStore(seed ...post.Post) *memStore {
	st := &memStore{posts: make(map[string]post.Post)}
	for _, p := range seed {
		st.posts[p.ID] = p.Clone()
	}
	return st
}

func (m *memStore) Get(_ context.Context, id string) (*post.Post, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	p, ok := m.posts[id]
	if !ok {
		return nil, nil
	}
	c := p.Clone()
	return &c, nil
}

func (m *memStore) Put(_ context.Context, p post.Post) error {
	if m.putErr != nil {
		return m.putErr
	}
	m.puts = append(m.puts, p.Clone())
	m.posts[p.ID] = p.Clone()
	return nil
}

func (m *memStore) Scan(_ context.Context) ([]post.Post, error) {
	var out []post.Post
	for _, p := range m.posts {
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) Delete(_ context.Context, id string) error {
	delete(m.posts, id)
	return nil
}

func (m *memStore) Close() error { return nil }

type call struct {
	Op        string
	MessageID string
	Arg       string
}

type fakeNotifier struct {
	calls   []call
	next    int
	sendErr error
	editErr error
}

func (f *fakeNotifier) newID() string {
	f.next++
	return fmt.Sprintf("m%d", f.next)
}

func (f *fakeNotifier) SendText(_ context.Context, text string) (string, error) {
	f.calls = append(f.calls, call{Op: "send_text", Arg: text})
	if f.sendErr != nil {
		return "", f.sendErr
	}
	return f.newID(), nil
}

func (f *fakeNotifier) EditText(_ context.Context, messageID, text string) error {
	f.calls = append(f.calls, call{Op: "edit_text", MessageID: messageID, Arg: text})
	return f.editErr
}

func (f *fakeNotifier) SendImage(_ context.Context, url string) (string, error) {
	f.calls = append(f.calls, call{Op: "send_image", Arg: url})
	if f.sendErr != nil {
		return "", f.sendErr
	}
	return f.newID(), nil
}

func (f *fakeNotifier) EditImage(_ context.Context, messageID, url string) error {
	f.calls = append(f.calls, call{Op: "edit_image", MessageID: messageID, Arg: url})
	return f.editErr
}

type fakeSource struct {
	name  string
	posts []post.Post
	err   error
}

func (s fakeSource) Name() string { return s.name }

func (s fakeSource) Fetch(_ context.Context) ([]post.Post, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([]post.Post, len(s.posts))
	for i, p := range s.posts {
		out[i] = p.Clone()
	}
	return out, nil
}
