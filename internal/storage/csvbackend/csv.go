package csvbackend

import (
	"context"
	"encoding/base64"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/FranksOps/seedcorpus/internal/storage"
)

// ensure csvBackend implements storage.Backend
var _ storage.Backend = (*csvBackend)(nil)

type csvBackend struct {
	mu   sync.Mutex
	file *os.File
}

// headers defines the CSV column order
var headers = []string{
	"id",
	"run_id",
	"query",
	"url",
	"rank",
	"status_code",
	"content_type",
	"headers_json",
	"body_base64",
	"text",
	"duration_ms",
	"accepted",
	"reason",
	"created_at",
	"error",
}

// New opens filePath for appending, writing the header row to a new file.
func New(filePath string) (storage.Backend, error) {
	f, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("open csv store: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat csv store: %w", err)
	}

	if info.Size() == 0 {
		w := csv.NewWriter(f)
		if err := w.Write(headers); err != nil {
			f.Close()
			return nil, fmt.Errorf("write csv header: %w", err)
		}
		w.Flush()
		if err := w.Error(); err != nil {
			f.Close()
			return nil, fmt.Errorf("write csv header: %w", err)
		}
	}

	return &csvBackend{file: f}, nil
}

func (b *csvBackend) Save(ctx context.Context, p *storage.Page) error {
	headersJSON, err := json.Marshal(p.Headers)
	if err != nil {
		return fmt.Errorf("encode headers: %w", err)
	}

	record := []string{
		p.ID,
		p.RunID,
		p.Query,
		p.URL,
		strconv.Itoa(p.Rank),
		strconv.Itoa(p.StatusCode),
		p.ContentType,
		string(headersJSON),
		base64.StdEncoding.EncodeToString(p.Body),
		p.Text,
		strconv.FormatInt(p.Duration.Milliseconds(), 10),
		strconv.FormatBool(p.Accepted),
		p.Reason,
		p.CreatedAt.UTC().Format(time.RFC3339Nano),
		p.Error,
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	w := csv.NewWriter(b.file)
	if err := w.Write(record); err != nil {
		return fmt.Errorf("write page %s: %w", p.ID, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write page %s: %w", p.ID, err)
	}

	return nil
}

func (b *csvBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.Page, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// O_APPEND writes ignore the offset, so reading from the start is safe
	if _, err := b.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind csv store: %w", err)
	}

	r := csv.NewReader(b.file)
	r.FieldsPerRecord = -1

	if _, err := r.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return []*storage.Page{}, nil
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	var matched []*storage.Page
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}
		if len(record) != len(headers) {
			continue // skip malformed rows
		}

		p := decode(record)
		if filter.Match(p) {
			matched = append(matched, p)
		}
	}

	return filter.Window(matched), nil
}

// decode is lenient: unparsable cells fall back to zero values.
func decode(record []string) *storage.Page {
	rank, _ := strconv.Atoi(record[4])
	status, _ := strconv.Atoi(record[5])
	var hdrs map[string][]string
	if err := json.Unmarshal([]byte(record[7]), &hdrs); err != nil {
		hdrs = map[string][]string{}
	}
	body, _ := base64.StdEncoding.DecodeString(record[8])
	durationMs, _ := strconv.ParseInt(record[10], 10, 64)
	accepted, _ := strconv.ParseBool(record[11])
	createdAt, _ := time.Parse(time.RFC3339Nano, record[13])

	return &storage.Page{
		ID:          record[0],
		RunID:       record[1],
		Query:       record[2],
		URL:         record[3],
		Rank:        rank,
		StatusCode:  status,
		ContentType: record[6],
		Headers:     hdrs,
		Body:        body,
		Text:        record[9],
		Duration:    time.Duration(durationMs) * time.Millisecond,
		Accepted:    accepted,
		Reason:      record[12],
		CreatedAt:   createdAt,
		Error:       record[14],
	}
}

func (b *csvBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.file.Close()
}
