package importer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

// Registry holds the known formats in match priority order.
type Registry struct {
	formats []Format
	byName  map[string]Format
}

// FileInfo describes a CSV file waiting in the inbox.
type FileInfo struct {
	Name string
	Path string
	Size int64
}

// NewRegistry creates an empty format registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Format)}
}

// Register appends a format at the lowest priority. Panics on duplicate name.
func (r *Registry) Register(f Format) {
	key := strings.ToLower(f.Name())
	if _, ok := r.byName[key]; ok {
		panic("duplicate import format: " + key)
	}
	r.byName[key] = f
	r.formats = append(r.formats, f)
}

// Get returns the format with name, or nil.
func (r *Registry) Get(name string) Format {
	return r.byName[strings.ToLower(name)]
}

// Formats returns the registered formats in priority order.
func (r *Registry) Formats() []Format {
	return append([]Format(nil), r.formats...)
}

// Names returns the registered format names in priority order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.formats))
	for _, f := range r.Formats() {
		names = append(names, f.Name())
	}
	return names
}

// Detect returns the first format whose header is a prefix of header.
// header must already be normalized.
func (r *Registry) Detect(header []string) Format {
	for _, f := range r.formats {
		if hasPrefix(header, f.Header()) {
			return f
		}
	}
	return nil
}

// DefaultRegistry returns a registry with all built-in formats.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(DepositFormat{})
	r.Register(ChargeCardFormat{})
	r.Register(CreditDebitFormat{})
	return r
}

// NormalizeHeader lowercases every cell, collapses inner whitespace and
// strips a byte-order mark from the first cell.
func NormalizeHeader(row []string) []string {
	out := make([]string, len(row))
	for i, c := range row {
		if i == 0 {
			c = strings.TrimPrefix(c, "\ufeff")
			c = strings.TrimPrefix(c, "\u00ef\u00bb\u00bf")
		}
		out[i] = strings.ToLower(strings.Join(strings.FieldsFunc(c, unicode.IsSpace), " "))
	}
	return out
}

func hasPrefix(header, sig []string) bool {
	if len(header) < len(sig) {
		return false
	}
	for i := range sig {
		if header[i] != sig[i] {
			return false
		}
	}
	return true
}

// processedDir is the inbox subdirectory for imported CSVs.
const processedDir = "processed"

// Scan returns CSV files waiting in inbox.
func Scan(inbox string) ([]FileInfo, error) {
	entries, err := os.ReadDir(inbox)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading import dir: %w", err)
	}

	var files []FileInfo
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !strings.HasSuffix(strings.ToLower(e.Name()), ".csv") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		files = append(files, FileInfo{
			Name: e.Name(),
			Path: filepath.Join(inbox, e.Name()),
			Size: info.Size(),
		})
	}
	return files, nil
}

// MarkProcessed moves a file from inbox/ to inbox/processed/.
func MarkProcessed(inbox, fileName string) error {
	src := filepath.Join(inbox, fileName)
	dstDir := filepath.Join(inbox, processedDir)

	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return fmt.Errorf("creating processed dir: %w", err)
	}

	dst := filepath.Join(dstDir, fileName)
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("moving %s to processed: %w", fileName, err)
	}
	return nil
}
