package objectstore

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryStore is an in-memory Store for tests and local runs.
// Folders are implied by "/" in object paths.
type MemoryStore struct {
	mu      sync.Mutex
	objects map[string]memObject
}

type memObject struct {
	contentType string
	data        []byte
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{objects: map[string]memObject{}} }

func (m *MemoryStore) Put(ctx context.Context, path, contentType string, data []byte, upsert bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	path = strings.Trim(path, "/")
	if _, ok := m.objects[path]; ok && !upsert {
		return &StorageError{Op: "put", Status: 409, Message: "the resource already exists"}
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	m.objects[path] = memObject{contentType: contentType, data: cp}
	return nil
}

func (m *MemoryStore) Move(ctx context.Context, from, to string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	from, to = strings.Trim(from, "/"), strings.Trim(to, "/")
	o, ok := m.objects[from]
	if !ok {
		return &StorageError{Op: "move", Status: 404, Message: "object not found", Err: ErrNotFound}
	}
	if _, exists := m.objects[to]; exists {
		return &StorageError{Op: "move", Status: 409, Message: "the resource already exists"}
	}
	delete(m.objects, from)
	m.objects[to] = o
	return nil
}

func (m *MemoryStore) List(ctx context.Context, prefix string) ([]Object, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix = strings.Trim(prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	folders := map[string]bool{}
	out := []Object{}
	for path, o := range m.objects {
		if !strings.HasPrefix(path, prefix) {
			continue
		}
		rest := strings.TrimPrefix(path, prefix)
		if i := strings.Index(rest, "/"); i >= 0 {
			folders[rest[:i]] = true
			continue
		}
		out = append(out, Object{Name: rest, Size: int64(len(o.data))})
	}
	for f := range folders {
		out = append(out, Object{Name: f, IsFolder: true})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemoryStore) Delete(ctx context.Context, paths ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range paths {
		delete(m.objects, strings.Trim(p, "/"))
	}
	return nil
}

func (m *MemoryStore) PublicURL(path string) string {
	return "memory://" + strings.Trim(path, "/")
}

// Get returns a stored object. Test helper.
func (m *MemoryStore) Get(path string) (data []byte, contentType string, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.objects[strings.Trim(path, "/")]
	return o.data, o.contentType, ok
}
