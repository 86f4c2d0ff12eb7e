package jsonbackend

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/FranksOps/seedcorpus/internal/storage"
)

// ensure jsonBackend implements storage.Backend
var _ storage.Backend = (*jsonBackend)(nil)

// maxRecordBytes bounds one NDJSON line; page bodies are stored inline.
const maxRecordBytes = 64 << 20

type jsonBackend struct {
	mu   sync.Mutex
	file *os.File
}

// New opens an NDJSON corpus store at filePath, one page per line.
func New(filePath string) (storage.Backend, error) {
	f, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("open ndjson store: %w", err)
	}
	return &jsonBackend{file: f}, nil
}

func (b *jsonBackend) Save(ctx context.Context, p *storage.Page) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode page %s: %w", p.ID, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write page %s: %w", p.ID, err)
	}
	return nil
}

func (b *jsonBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.Page, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind ndjson store: %w", err)
	}

	scanner := bufio.NewScanner(b.file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxRecordBytes)

	// no index: read everything, filter in memory, then order and window
	var matched []*storage.Page
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var p storage.Page
		if err := json.Unmarshal(line, &p); err != nil {
			return nil, fmt.Errorf("decode page: %w", err)
		}
		if filter.Match(&p) {
			matched = append(matched, &p)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan ndjson store: %w", err)
	}

	return filter.Window(matched), nil
}

func (b *jsonBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.file.Close()
}
