package storage

import (
	"bytes"
	"context"
	"io"
	"sync"
)

// Memory is an in-process ObjectStore with the same no-overwrite rule as
// MinioStore. Used in tests and local runs without object storage.
type Memory struct {
	mu      sync.Mutex
	BaseURL string
	Objects map[string][]byte
}

func NewMemory(baseURL string) *Memory {
	return &Memory{BaseURL: baseURL, Objects: map[string][]byte{}}
}

func (m *Memory) Put(ctx context.Context, key string, r io.Reader, _ int64, _ string) (string, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Objects[key]; ok {
		return "", ErrObjectExists
	}
	m.Objects[key] = buf.Bytes()
	return PublicURL(m.BaseURL, key), nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Objects, key)
	return nil
}
