package retry

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// DLQEntry - данные, которые не удалось обработать
type DLQEntry struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Attempts    int       `json:"attempts"`
	LastError   string    `json:"last_error"`
	FailureType string    `json:"failure_type"`
	Data        any       `json:"data,omitempty"`
}

// DLQ - файловая очередь недоставленных данных
type DLQ struct {
	mu      sync.RWMutex
	config  DLQConfig
	entries []DLQEntry
	counter int
}

// NewDLQ создает очередь и подгружает существующий файл
func NewDLQ(config DLQConfig) (*DLQ, error) {
	d := &DLQ{config: config}

	if _, err := os.Stat(config.FilePath); err == nil {
		if err := d.load(); err != nil {
			return nil, fmt.Errorf("failed to load DLQ: %w", err)
		}
	}
	return d, nil
}

// Add добавляет запись и сохраняет файл. Старые записи вытесняются по MaxSize.
func (d *DLQ) Add(entry DLQEntry) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.counter++
	entry.ID = fmt.Sprintf("dlq-%d-%d", time.Now().Unix(), d.counter)
	d.entries = append(d.entries, entry)

	if d.config.MaxSize > 0 && len(d.entries) > d.config.MaxSize {
		d.entries = d.entries[len(d.entries)-d.config.MaxSize:]
	}

	_ = d.saveLocked()
}

// Entries возвращает копию записей
func (d *DLQ) Entries() []DLQEntry {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]DLQEntry, len(d.entries))
	copy(out, d.entries)
	return out
}

// Size возвращает количество записей
func (d *DLQ) Size() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.entries)
}

// CleanupOld удаляет записи старше Retention и возвращает их количество
func (d *DLQ) CleanupOld() int {
	if d.config.Retention == 0 {
		return 0
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	cutoff := time.Now().Add(-d.config.Retention)
	kept := d.entries[:0]
	removed := 0
	for _, e := range d.entries {
		if e.Timestamp.After(cutoff) {
			kept = append(kept, e)
		} else {
			removed++
		}
	}
	d.entries = kept

	if removed > 0 {
		_ = d.saveLocked()
	}
	return removed
}

// Save сохраняет очередь в файл
func (d *DLQ) Save() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.saveLocked()
}

func (d *DLQ) saveLocked() error {
	data, err := json.MarshalIndent(d.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal DLQ: %w", err)
	}
	if err := os.WriteFile(d.config.FilePath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write DLQ file: %w", err)
	}
	return nil
}

func (d *DLQ) load() error {
	data, err := os.ReadFile(d.config.FilePath)
	if err != nil {
		return fmt.Errorf("failed to read DLQ file: %w", err)
	}
	var entries []DLQEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("failed to unmarshal DLQ: %w", err)
	}
	d.entries = entries
	return nil
}
