package parquet

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"

	"pageviews/internal/core/pageview"
	perr "pageviews/internal/platform/errors"
	pstrings "pageviews/internal/platform/strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	goparquet "github.com/parquet-go/parquet-go"
)

const readBatchSize = 8192

// Record is one stored row as laid out in Schema; Domain is nil for null
type Record struct {
	DomainCode string
	PageTitle  string
	Views      uint32
	Language   string
	Domain     *string
	Mobile     bool
}

// Row converts a record back to a pageview row
func (r Record) Row() pageview.Row {
	return pageview.Row{
		DomainCode: r.DomainCode,
		PageTitle:  r.PageTitle,
		Views:      r.Views,
		Language:   r.Language,
		Domain:     pstrings.Deref(r.Domain),
		Mobile:     r.Mobile,
	}
}

// Info summarizes a parquet file
type Info struct {
	Rows          int64
	RowGroups     int
	RowGroupSizes []int64
	Columns       []string
	CreatedBy     string
}

func openFile(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, perr.Wrapf(err, perr.ErrorCodeNotFound, "parquet: open %s", path)
		}
		return nil, perr.Wrapf(err, perr.ErrorCodeUnknown, "parquet: open %s", path)
	}
	return f, nil
}

// Inspect reads the footer of path
func Inspect(path string) (Info, error) {
	f, err := openFile(path)
	if err != nil {
		return Info{}, err
	}
	defer func() { _ = f.Close() }()

	stat, err := f.Stat()
	if err != nil {
		return Info{}, perr.Wrapf(err, perr.ErrorCodeUnknown, "parquet: stat %s", path)
	}
	pf, err := goparquet.OpenFile(f, stat.Size(), goparquet.SkipPageIndex(true))
	if err != nil {
		return Info{}, perr.Wrapf(err, perr.ErrorCodeDecode, "parquet: read footer %s", path)
	}

	info := Info{
		Rows:      pf.NumRows(),
		RowGroups: len(pf.RowGroups()),
		CreatedBy: pf.Metadata().CreatedBy,
	}
	for _, rg := range pf.RowGroups() {
		info.RowGroupSizes = append(info.RowGroupSizes, rg.NumRows())
	}
	for _, col := range pf.Schema().Columns() {
		if len(col) > 0 {
			info.Columns = append(info.Columns, col[len(col)-1])
		}
	}
	return info, nil
}

// ScanRecords calls fn for every stored record of path in file order;
// fn returning false stops early
func ScanRecords(ctx context.Context, path string, fn func(Record) bool) error {
	f, err := openFile(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	pr, err := file.NewParquetReader(f)
	if err != nil {
		return perr.Wrapf(err, perr.ErrorCodeDecode, "parquet: read footer %s", path)
	}
	defer func() { _ = pr.Close() }()

	fr, err := pqarrow.NewFileReader(pr, pqarrow.ArrowReadProperties{BatchSize: readBatchSize}, memory.DefaultAllocator)
	if err != nil {
		return perr.Wrapf(err, perr.ErrorCodeDecode, "parquet: arrow schema %s", path)
	}
	rr, err := fr.GetRecordReader(ctx, nil, nil)
	if err != nil {
		return perr.Wrapf(err, perr.ErrorCodeDecode, "parquet: record reader %s", path)
	}
	defer rr.Release()

	for rr.Next() {
		rec := rr.Record()
		cols, err := columnsOf(rec)
		if err != nil {
			return perr.WithOp(err, path)
		}
		for i := 0; i < int(rec.NumRows()); i++ {
			if !fn(cols.record(i)) {
				return nil
			}
		}
	}
	if err := rr.Err(); err != nil && !errors.Is(err, io.EOF) {
		if ce := perr.FromContext(err); perr.IsCode(ce, perr.ErrorCodeCanceled) {
			return ce
		}
		return perr.Wrapf(err, perr.ErrorCodeDecode, "parquet: read rows %s", path)
	}
	return nil
}

// Scan calls fn for every row of path in file order; fn returning false stops early
func Scan(path string, fn func(pageview.Row) bool) error {
	return ScanRecords(context.Background(), path, func(r Record) bool { return fn(r.Row()) })
}

// ReadFile loads every row of path; meant for tests and small files
func ReadFile(path string) ([]pageview.Row, error) {
	var rows []pageview.Row
	err := Scan(path, func(r pageview.Row) bool {
		rows = append(rows, r)
		return true
	})
	return rows, err
}

// columns holds the typed arrays of one record batch
type columns struct {
	codes, titles, langs, domains *array.String
	views                         *array.Uint32
	mobile                        *array.Boolean
}

func columnsOf(rec arrow.Record) (columns, error) {
	var (
		c   columns
		err error
	)
	if c.codes, err = column[*array.String](rec, ColDomainCode); err != nil {
		return c, err
	}
	if c.titles, err = column[*array.String](rec, ColPageTitle); err != nil {
		return c, err
	}
	if c.views, err = column[*array.Uint32](rec, ColViews); err != nil {
		return c, err
	}
	if c.langs, err = column[*array.String](rec, ColLanguage); err != nil {
		return c, err
	}
	if c.domains, err = column[*array.String](rec, ColDomain); err != nil {
		return c, err
	}
	c.mobile, err = column[*array.Boolean](rec, ColMobile)
	return c, err
}

func column[T arrow.Array](rec arrow.Record, name string) (T, error) {
	var zero T
	idx := rec.Schema().FieldIndices(name)
	if len(idx) == 0 {
		return zero, perr.WithField(perr.Newf(perr.ErrorCodeDecode, "parquet: missing column %s", name), name)
	}
	col, ok := rec.Column(idx[0]).(T)
	if !ok {
		return zero, perr.WithField(perr.Newf(perr.ErrorCodeDecode,
			"parquet: column %s has type %s", name, rec.Column(idx[0]).DataType()), name)
	}
	return col, nil
}

// record copies row i out of the arrow buffers
func (c columns) record(i int) Record {
	r := Record{
		DomainCode: strings.Clone(c.codes.Value(i)),
		PageTitle:  strings.Clone(c.titles.Value(i)),
		Views:      c.views.Value(i),
		Language:   strings.Clone(c.langs.Value(i)),
		Mobile:     c.mobile.Value(i),
	}
	if c.domains.IsValid(i) {
		d := strings.Clone(c.domains.Value(i))
		r.Domain = &d
	}
	return r
}
