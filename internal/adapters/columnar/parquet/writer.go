// Package parquet writes pageview rows to parquet files, one row group per batch,
// and reads them back
package parquet

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"pageviews/internal/core/pageview"
	perr "pageviews/internal/platform/errors"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	pq "github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
)

// Column names of the output schema
const (
	ColDomainCode = "domain_code"
	ColPageTitle  = "page_title"
	ColViews      = "views"
	ColLanguage   = "language"
	ColDomain     = "domain"
	ColMobile     = "mobile"
)

// Schema is the fixed output schema; only domain is nullable
var Schema = arrow.NewSchema([]arrow.Field{
	{Name: ColDomainCode, Type: arrow.BinaryTypes.String},
	{Name: ColPageTitle, Type: arrow.BinaryTypes.String},
	{Name: ColViews, Type: arrow.PrimitiveTypes.Uint32},
	{Name: ColLanguage, Type: arrow.BinaryTypes.String},
	{Name: ColDomain, Type: arrow.BinaryTypes.String, Nullable: true},
	{Name: ColMobile, Type: arrow.FixedWidthTypes.Boolean},
}, nil)

// low cardinality columns get dictionary pages
var dictColumns = []string{ColDomainCode, ColLanguage, ColDomain}

// Options configures a Writer
type Options struct {
	// Compression is zstd (default), snappy or none
	Compression string `validate:"omitempty,oneof=zstd snappy none"`
}

func codec(name string) compress.Compression {
	switch strings.ToLower(name) {
	case "none", "uncompressed":
		return compress.Codecs.Uncompressed
	case "snappy":
		return compress.Codecs.Snappy
	default:
		return compress.Codecs.Zstd
	}
}

// Writer streams batches into a parquet file
// Output goes to <path>.part and is renamed into place by Close
type Writer struct {
	path   string
	tmp    string
	fw     *pqarrow.FileWriter
	mem    memory.Allocator
	rows   int64
	groups int
	done   bool
}

// Create opens <path>.part and writes the parquet header
func Create(path string, opt Options) (*Writer, error) {
	if path == "" {
		return nil, perr.WithField(perr.InvalidArgf("parquet: empty output path"), "output_path")
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeWrite, "parquet: create dir %s", dir)
		}
	}
	tmp := path + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeWrite, "parquet: create %s", tmp)
	}

	props := []pq.WriterProperty{
		pq.WithCompression(codec(opt.Compression)),
		pq.WithDictionaryDefault(false),
		pq.WithCreatedBy("pageviews"),
	}
	for _, c := range dictColumns {
		props = append(props, pq.WithDictionaryFor(c, true))
	}
	fw, err := pqarrow.NewFileWriter(Schema, f,
		pq.NewWriterProperties(props...),
		pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema()),
	)
	if err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return nil, perr.Wrapf(err, perr.ErrorCodeWrite, "parquet: open writer %s", tmp)
	}
	return &Writer{path: path, tmp: tmp, fw: fw, mem: memory.DefaultAllocator}, nil
}

// WriteBatch writes rows as one row group; empty batches are ignored
func (w *Writer) WriteBatch(_ context.Context, rows []pageview.Row) error {
	if w.done {
		return perr.New(perr.ErrorCodeWrite, "parquet: write after close")
	}
	if len(rows) == 0 {
		return nil
	}
	rec := w.record(rows)
	defer rec.Release()

	if err := w.fw.Write(rec); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeWrite, "parquet: write row group %d", w.groups)
	}
	w.rows += int64(len(rows))
	w.groups++
	return nil
}

// record builds one arrow record batch from rows
func (w *Writer) record(rows []pageview.Row) arrow.Record {
	b := array.NewRecordBuilder(w.mem, Schema)
	defer b.Release()
	b.Reserve(len(rows))

	codes := b.Field(0).(*array.StringBuilder)
	titles := b.Field(1).(*array.StringBuilder)
	views := b.Field(2).(*array.Uint32Builder)
	langs := b.Field(3).(*array.StringBuilder)
	domains := b.Field(4).(*array.StringBuilder)
	mobile := b.Field(5).(*array.BooleanBuilder)

	for _, r := range rows {
		codes.Append(r.DomainCode)
		titles.Append(r.PageTitle)
		views.Append(r.Views)
		langs.Append(r.Language)
		if r.HasDomain() {
			domains.Append(r.Domain)
		} else {
			domains.AppendNull()
		}
		mobile.Append(r.Mobile)
	}
	return b.NewRecord()
}

// Close writes the footer and renames the file into place
func (w *Writer) Close(_ context.Context) error {
	if w.done {
		return nil
	}
	w.done = true
	// closes the underlying file as well
	if err := w.fw.Close(); err != nil {
		_ = os.Remove(w.tmp)
		return perr.Wrapf(err, perr.ErrorCodeWrite, "parquet: finalize %s", w.tmp)
	}
	if err := os.Rename(w.tmp, w.path); err != nil {
		_ = os.Remove(w.tmp)
		return perr.Wrapf(err, perr.ErrorCodeWrite, "parquet: rename %s", w.tmp)
	}
	return nil
}

// Abort drops the partial output; no-op after Close
func (w *Writer) Abort() {
	if w.done {
		return
	}
	w.done = true
	_ = w.fw.Close()
	_ = os.Remove(w.tmp)
}

// Stats returns rows and row groups written so far
func (w *Writer) Stats() (rows int64, groups int) { return w.rows, w.groups }

// Path returns the final output path
func (w *Writer) Path() string { return w.path }
