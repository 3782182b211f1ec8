package blob

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// MemoryStore - хранилище в памяти для тестирования (экспортируемое для
// использования в других пакетах).
type MemoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte

	// ExistsErr позволяет сымитировать недоступность хранилища.
	ExistsErr error
}

// NewMemoryStore создаёт пустое хранилище в памяти.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte)}
}

// PutBytes кладёт объект напрямую, имитируя загрузку клиента по
// временной ссылке.
func (m *MemoryStore) PutBytes(name string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[name] = data
}

// Delete удаляет объект, имитируя истёкшую или потерянную загрузку.
func (m *MemoryStore) Delete(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, name)
}

func (m *MemoryStore) Exists(ctx context.Context, name string) (bool, error) {
	if m.ExistsErr != nil {
		return false, m.ExistsErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[name]
	return ok, nil
}

func (m *MemoryStore) PresignUpload(ctx context.Context, name, contentType string, ttl time.Duration) (string, error) {
	return fmt.Sprintf("https://blob.test/%s?op=put&ttl=%d", name, int(ttl.Seconds())), nil
}

func (m *MemoryStore) PresignDownload(ctx context.Context, name string, ttl time.Duration) (string, error) {
	return fmt.Sprintf("https://blob.test/%s?op=get&ttl=%d", name, int(ttl.Seconds())), nil
}

func (m *MemoryStore) Put(ctx context.Context, name, contentType string, body io.Reader) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.PutBytes(name, data)
	return nil
}
