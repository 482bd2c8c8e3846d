package tokenstore

import (
	"context"
	"sync"

	"github.com/chinkauchenna2021/bankauth/internal/util"
)

// MemoryBackend is a thread-safe in-memory Backend. The session is lost
// when the process exits. Suitable for tests and ephemeral sessions.
type MemoryBackend struct {
	mu     sync.Mutex
	blob   []byte
	exists bool
}

var _ Backend = (*MemoryBackend)(nil)

// NewMemoryBackend creates an empty in-memory Backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

func (b *MemoryBackend) Load(ctx context.Context) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.exists {
		return nil, ErrNoSession
	}
	return util.CopyBytes(b.blob), nil
}

func (b *MemoryBackend) Save(ctx context.Context, blob []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.blob = util.CopyBytes(blob)
	b.exists = true
	return nil
}

func (b *MemoryBackend) Delete(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.blob = nil
	b.exists = false
	return nil
}
