package importer

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cleared-dev/spendlens/internal/id"
	"github.com/cleared-dev/spendlens/internal/model"
)

// DefaultCurrency is stamped on rows when Options.Currency is empty.
const DefaultCurrency = "CAD"

// Options identify who owns the rows being previewed.
type Options struct {
	UserID         string
	InstitutionID  string
	SourceFileName string
	Currency       string
	Format         string    // empty means detect from the header
	Now            time.Time // zero means time.Now
}

// Preview is the result of normalizing one CSV export.
type Preview struct {
	Format       string
	Transactions []model.Transaction
	Count        int
	DateFrom     string
	DateTo       string
}

// Preview parses CSV text and converts every data row with the matching
// format. It is all-or-nothing: any error means no transactions.
func (r *Registry) Preview(rd io.Reader, opts Options) (*Preview, error) {
	rows, err := ParseRows(rd)
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, &ValidationError{Reason: "no transaction rows"}
	}

	header := NormalizeHeader(rows[0])
	format, err := r.choose(header, opts.Format)
	if err != nil {
		return nil, err
	}

	now := opts.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	currency := opts.Currency
	if currency == "" {
		currency = DefaultCurrency
	}

	p := &Preview{Format: format.Name()}
	for i, row := range rows[1:] {
		d, ok, err := format.Build(row)
		if err != nil {
			var pe *ParseError
			if errors.As(err, &pe) {
				pe.Row = i + 2
				return nil, pe
			}
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		if !ok {
			continue
		}

		p.Transactions = append(p.Transactions, model.Transaction{
			ID:             id.New(id.PrefixTransaction),
			UserID:         opts.UserID,
			InstitutionID:  opts.InstitutionID,
			PostedAt:       d.PostedAt,
			DescriptionRaw: d.Description,
			AmountCents:    d.AmountCents,
			Currency:       currency,
			Direction:      d.Direction,
			CategoryPath:   model.UncategorizedPath,
			Source:         &model.Source{Type: model.SourceTypeCSV, FileName: opts.SourceFileName},
			CreatedAt:      now,
			UpdatedAt:      now,
		})
		if p.DateFrom == "" || d.PostedAt < p.DateFrom {
			p.DateFrom = d.PostedAt
		}
		if d.PostedAt > p.DateTo {
			p.DateTo = d.PostedAt
		}
	}

	p.Count = len(p.Transactions)
	if p.Count == 0 {
		return nil, &ValidationError{Reason: "no importable transactions"}
	}
	return p, nil
}

// choose returns the named format when name is set, else the detected one.
// Either way the header must carry the format's signature.
func (r *Registry) choose(header []string, name string) (Format, error) {
	if name == "" {
		if f := r.Detect(header); f != nil {
			return f, nil
		}
		var accepted [][]string
		for _, f := range r.Formats() {
			accepted = append(accepted, f.Header())
		}
		return nil, &ValidationError{Reason: "unrecognized CSV header", Header: header, Accepted: accepted}
	}

	f := r.Get(name)
	if f == nil {
		return nil, &ValidationError{Reason: fmt.Sprintf("unknown import format %q; known formats: %s", name, strings.Join(r.Names(), ", "))}
	}
	if !hasPrefix(header, f.Header()) {
		return nil, &ValidationError{Reason: "header does not match format " + f.Name(), Header: header, Accepted: [][]string{f.Header()}}
	}
	return f, nil
}

// PreviewFile opens path and previews it, defaulting the source file name
// to the path's base name.
func (r *Registry) PreviewFile(path string, opts Options) (*Preview, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	if opts.SourceFileName == "" {
		opts.SourceFileName = filepath.Base(path)
	}
	return r.Preview(f, opts)
}
