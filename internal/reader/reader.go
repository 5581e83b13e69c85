package reader

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/joseph-ayodele/docstruct/constants"
)

var (
	ErrUnsupported = errors.New("unsupported document type")
	ErrInvalidText = errors.New("document text is not valid UTF-8")
	ErrUnreadable  = errors.New("document could not be parsed")
)

type Config struct {
	CacheSize int // documents kept in the content-hash cache; <= 0 disables it
	MaxPages  int // 0 = no limit
}

// Document is the reader's output: one ordered text blob with page markers.
type Document struct {
	Name       string
	Text       string
	Pages      int
	SourceType string // constants.PDF | constants.TEXT
	Hash       string // hex SHA-256 of the input bytes
	Duration   time.Duration
	Warnings   []string
}

type Reader struct {
	cfg    Config
	cache  *cache
	logger *slog.Logger
}

func NewReader(cfg Config, logger *slog.Logger) (*Reader, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Reader{cfg: cfg, logger: logger}
	if cfg.CacheSize > 0 {
		c, err := newCache(cfg.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("reader cache: %w", err)
		}
		r.cache = c
	}
	return r, nil
}

// Read turns raw document bytes into text. The type is picked from the name's
// extension, falling back to the PDF magic number.
func (r *Reader) Read(ctx context.Context, name string, data []byte) (Document, error) {
	start := time.Now()
	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	format := detectFormat(name, data)
	if format == "" {
		r.logger.Error("reader.read.unsupported", "name", name, "extension", constants.NormalizeExt(filepath.Ext(name)))
		return Document{}, fmt.Errorf("%w: %q (supported: %s)", ErrUnsupported, name, strings.Join(constants.SupportedExtensions(), ", "))
	}

	// The same bytes may decode differently per format.
	key := format + ":" + hash
	if doc, ok := r.cache.get(key); ok {
		r.logger.Debug("reader.cache.hit", "name", name, "format", format, "hash", hash)
		doc.Name = name
		return doc, nil
	}
	r.logger.Debug("reader.read.start", "name", name, "format", format, "bytes", len(data))

	var (
		doc Document
		err error
	)
	if format == constants.PDF {
		doc, err = r.readPDF(ctx, data)
	} else {
		doc, err = readText(data)
	}
	if err != nil {
		r.logger.Error("reader.read.error", "name", name, "format", format, "error", err)
		return Document{}, err
	}

	doc.Name = name
	doc.SourceType = format
	doc.Hash = hash
	doc.Text = strings.TrimSpace(doc.Text)
	doc.Duration = time.Since(start)
	r.cache.add(key, doc)

	r.logger.Info("reader.read.ok",
		"name", name,
		"format", format,
		"pages", doc.Pages,
		"text_len", len(doc.Text),
		"warnings", len(doc.Warnings),
		"elapsed_ms", doc.Duration.Milliseconds(),
	)
	return doc, nil
}

func detectFormat(name string, data []byte) string {
	if f := constants.MapExtToFormat(filepath.Ext(name)); f != "" {
		return f
	}
	if bytes.HasPrefix(data, []byte("%PDF-")) {
		return constants.PDF
	}
	return ""
}

func readText(data []byte) (Document, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(data) {
		return Document{}, ErrInvalidText
	}
	return Document{Text: string(data), Pages: 1}, nil
}

// Preview returns the first n runes of text, with "..." appended when the
// text was cut.
func Preview(text string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	i := 0
	for pos := range text {
		if i == n {
			return text[:pos] + "..."
		}
		i++
	}
	return text
}
