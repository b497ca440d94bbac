package offline

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"
)

// Entry is a stored response, kept verbatim.
type Entry struct {
	URL      string
	Status   int
	Header   http.Header
	Body     []byte
	StoredAt time.Time
}

// Response rebuilds an *http.Response for req from the stored entry.
func (e Entry) Response(req *http.Request) *http.Response {
	return &http.Response{
		Status:        http.StatusText(e.Status),
		StatusCode:    e.Status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        e.Header.Clone(),
		Body:          io.NopCloser(bytes.NewReader(e.Body)),
		ContentLength: int64(len(e.Body)),
		Request:       req,
	}
}

// Storage is a set of named buckets of URL -> response. It mirrors the
// browser's Cache Storage: buckets are created on first use and only
// removed by name.
type Storage interface {
	Keys(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, bucket string) error
	// Match looks url up across every bucket.
	Match(ctx context.Context, url string) (Entry, bool, error)
	Put(ctx context.Context, bucket string, entry Entry) error
	// PutAll stores every entry or none of them.
	PutAll(ctx context.Context, bucket string, entries []Entry) error
}

// MemoryStorage keeps buckets in process memory.
type MemoryStorage struct {
	mu      sync.RWMutex
	buckets map[string]map[string]Entry
	order   []string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{buckets: make(map[string]map[string]Entry)}
}

func (m *MemoryStorage) Keys(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.order...), nil
}

func (m *MemoryStorage) Delete(_ context.Context, bucket string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.buckets[bucket]; !ok {
		return nil
	}
	delete(m.buckets, bucket)
	for i, name := range m.order {
		if name == bucket {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

// Match searches buckets in creation order.
func (m *MemoryStorage) Match(_ context.Context, url string) (Entry, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, name := range m.order {
		if e, ok := m.buckets[name][url]; ok {
			return copyEntry(e), true, nil
		}
	}
	return Entry{}, false, nil
}

func (m *MemoryStorage) Put(_ context.Context, bucket string, entry Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bucketLocked(bucket)[entry.URL] = copyEntry(entry)
	return nil
}

func (m *MemoryStorage) PutAll(_ context.Context, bucket string, entries []Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := m.bucketLocked(bucket)
	for _, e := range entries {
		b[e.URL] = copyEntry(e)
	}
	return nil
}

func (m *MemoryStorage) bucketLocked(name string) map[string]Entry {
	b, ok := m.buckets[name]
	if !ok {
		b = make(map[string]Entry)
		m.buckets[name] = b
		m.order = append(m.order, name)
	}
	return b
}

// Entries lists the URLs stored in bucket, sorted.
func (m *MemoryStorage) Entries(bucket string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	urls := make([]string, 0, len(m.buckets[bucket]))
	for u := range m.buckets[bucket] {
		urls = append(urls, u)
	}
	sort.Strings(urls)
	return urls
}

func copyEntry(e Entry) Entry {
	out := e
	out.Header = e.Header.Clone()
	out.Body = append([]byte(nil), e.Body...)
	return out
}
