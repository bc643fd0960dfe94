package loader

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// CSVOptions - параметры разбора CSV
type CSVOptions struct {
	Delimiter   rune
	Encoding    string
	Compression string
}

func csvOptions(src SourceConfig) CSVOptions {
	opts := CSVOptions{Delimiter: ',', Encoding: src.Encoding, Compression: src.Compression}
	if src.Delimiter != "" {
		opts.Delimiter = []rune(src.Delimiter)[0]
	}
	return opts
}

// csvSource читает опрос из локального CSV файла
type csvSource struct {
	path string
	opts CSVOptions
}

func (s *csvSource) Describe() string {
	return "csv:" + s.path
}

func (s *csvSource) Read(_ context.Context) (*Raw, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ReadCSV(f, s.opts)
}

// ReadCSV разбирает CSV: снимает сжатие (gzip/zstd по сигнатуре или явно),
// перекодирует в UTF-8, отбрасывает BOM. Первая запись - заголовок; все
// записи должны иметь ширину заголовка.
func ReadCSV(r io.Reader, opts CSVOptions) (*Raw, error) {
	plain, closeFn, err := decompress(r, opts.Compression)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	text, err := decode(plain, opts.Encoding)
	if err != nil {
		return nil, err
	}

	cr := csv.NewReader(text)
	if opts.Delimiter != 0 {
		cr.Comma = opts.Delimiter
	}
	cr.FieldsPerRecord = 0
	cr.ReuseRecord = false

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("file is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	raw := &Raw{Header: header}
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}
		raw.Records = append(raw.Records, rec)
	}
	return raw, nil
}

// decompress возвращает распакованный поток
func decompress(r io.Reader, mode string) (io.Reader, func(), error) {
	br := bufio.NewReader(r)
	noop := func() {}

	mode = strings.ToLower(mode)
	if mode == "" || mode == "auto" {
		head, _ := br.Peek(4)
		switch {
		case bytes.HasPrefix(head, gzipMagic):
			mode = "gzip"
		case bytes.HasPrefix(head, zstdMagic):
			mode = "zstd"
		default:
			mode = "none"
		}
	}

	switch mode {
	case "none":
		return br, noop, nil
	case "gzip":
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, noop, fmt.Errorf("gzip: %w", err)
		}
		return zr, func() { zr.Close() }, nil
	case "zstd":
		zr, err := zstd.NewReader(br)
		if err != nil {
			return nil, noop, fmt.Errorf("zstd: %w", err)
		}
		return zr, zr.Close, nil
	}
	return nil, noop, fmt.Errorf("unknown compression %q", mode)
}

// decode перекодирует поток в UTF-8. BOM (UTF-8/UTF-16) имеет приоритет над
// объявленной кодировкой.
func decode(r io.Reader, label string) (io.Reader, error) {
	if label == "" {
		label = "utf-8"
	}
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("unknown encoding %q: %w", label, err)
	}
	return transform.NewReader(r, unicode.BOMOverride(enc.NewDecoder())), nil
}
