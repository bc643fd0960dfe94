package audit

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/gzip"
)

// FileAppender пишет записи в файл строками JSON (или текстом) с ротацией по размеру
type FileAppender struct {
	mu          sync.Mutex
	file        *os.File
	config      FileAppenderConfig
	maxBytes    int64
	currentSize int64
}

// FileAppenderConfig - секция audit.file
type FileAppenderConfig struct {
	Path       string `yaml:"path"`
	MaxSizeMB  int64  `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	Compress   bool   `yaml:"compress"` // сжимать ротированные файлы gzip
	Text       bool   `yaml:"text"`     // строки Entry.String вместо JSON
	Level      Level  `yaml:"-"`

	// maxBytes переопределяет MaxSizeMB в тестах
	maxBytes int64
}

// NewFileAppender открывает (или создает) файл журнала
func NewFileAppender(config FileAppenderConfig) (*FileAppender, error) {
	if config.Path == "" {
		return nil, fmt.Errorf("audit file path is required")
	}
	if err := os.MkdirAll(filepath.Dir(config.Path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.OpenFile(config.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit file: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	if config.MaxSizeMB == 0 {
		config.MaxSizeMB = 100
	}
	if config.MaxBackups == 0 {
		config.MaxBackups = 5
	}
	maxBytes := config.MaxSizeMB * 1024 * 1024
	if config.maxBytes > 0 {
		maxBytes = config.maxBytes
	}

	return &FileAppender{
		file:        file,
		config:      config,
		maxBytes:    maxBytes,
		currentSize: info.Size(),
	}, nil
}

// Append - дописать запись
func (fa *FileAppender) Append(_ context.Context, entry *Entry) error {
	fa.mu.Lock()
	defer fa.mu.Unlock()

	filtered := entry.FilterByLevel(fa.config.Level)

	var data []byte
	if fa.config.Text {
		data = []byte(filtered.String() + "\n")
	} else {
		var err error
		data, err = filtered.ToJSON()
		if err != nil {
			return fmt.Errorf("failed to marshal entry: %w", err)
		}
		data = append(data, '\n')
	}

	if fa.currentSize > 0 && fa.currentSize+int64(len(data)) > fa.maxBytes {
		if err := fa.rotate(); err != nil {
			return fmt.Errorf("failed to rotate file: %w", err)
		}
	}

	n, err := fa.file.Write(data)
	if err != nil {
		return fmt.Errorf("failed to write entry: %w", err)
	}
	fa.currentSize += int64(n)
	return nil
}

func (fa *FileAppender) backupPath(i int) string {
	p := fmt.Sprintf("%s.%d", fa.config.Path, i)
	if fa.config.Compress {
		p += ".gz"
	}
	return p
}

// rotate: path -> path.1[.gz], path.N -> path.N+1, старше MaxBackups удаляются
func (fa *FileAppender) rotate() error {
	if err := fa.file.Close(); err != nil {
		return err
	}

	os.Remove(fa.backupPath(fa.config.MaxBackups))
	for i := fa.config.MaxBackups - 1; i > 0; i-- {
		if _, err := os.Stat(fa.backupPath(i)); err == nil {
			os.Rename(fa.backupPath(i), fa.backupPath(i+1))
		}
	}

	if fa.config.Compress {
		if err := gzipFile(fa.config.Path, fa.backupPath(1)); err != nil {
			return err
		}
		if err := os.Remove(fa.config.Path); err != nil {
			return err
		}
	} else if err := os.Rename(fa.config.Path, fa.backupPath(1)); err != nil {
		return err
	}

	file, err := os.OpenFile(fa.config.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	fa.file = file
	fa.currentSize = 0
	return nil
}

func gzipFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	zw := gzip.NewWriter(out)
	if _, err := io.Copy(zw, in); err != nil {
		return err
	}
	return zw.Close()
}

// Flush - fsync файла
func (fa *FileAppender) Flush() error {
	fa.mu.Lock()
	defer fa.mu.Unlock()
	return fa.file.Sync()
}

// Close - закрыть файл
func (fa *FileAppender) Close() error {
	fa.mu.Lock()
	defer fa.mu.Unlock()
	return fa.file.Close()
}

// CurrentSize - размер текущего файла
func (fa *FileAppender) CurrentSize() int64 {
	fa.mu.Lock()
	defer fa.mu.Unlock()
	return fa.currentSize
}
