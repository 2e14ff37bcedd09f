package parquet

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"pageviews/internal/core/pageview"
	perr "pageviews/internal/platform/errors"
)

func sampleRows(n int) []pageview.Row {
	codes := []string{"en", "en.m", "de.b", "xx.unknown", "commons.m"}
	rows := make([]pageview.Row, n)
	for i := range rows {
		rows[i] = pageview.NewRow(codes[i%len(codes)], fmt.Sprintf("Title_%d", i), uint32(i*7))
	}
	return rows
}

func writeBatches(t *testing.T, path string, opt Options, batches ...[]pageview.Row) *Writer {
	t.Helper()
	w, err := Create(path, opt)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	for _, b := range batches {
		if err := w.WriteBatch(context.Background(), b); err != nil {
			t.Fatalf("WriteBatch: %v", err)
		}
	}
	if err := w.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return w
}

func TestWriterRoundTrip(t *testing.T) {
	for _, codec := range []string{"", "zstd", "snappy", "none"} {
		t.Run("codec="+codec, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "out.parquet")
			rows := sampleRows(23)
			w := writeBatches(t, path, Options{Compression: codec}, rows[:10], rows[10:20], rows[20:])

			if n, g := w.Stats(); n != 23 || g != 3 {
				t.Fatalf("Stats = (%d,%d), want (23,3)", n, g)
			}
			if _, err := os.Stat(path + ".part"); !os.IsNotExist(err) {
				t.Fatalf(".part should be renamed away")
			}

			got, err := ReadFile(path)
			if err != nil {
				t.Fatalf("ReadFile: %v", err)
			}
			if len(got) != len(rows) {
				t.Fatalf("read %d rows, want %d", len(got), len(rows))
			}
			for i := range rows {
				if got[i] != rows[i] {
					t.Fatalf("row %d = %+v, want %+v", i, got[i], rows[i])
				}
			}
		})
	}
}

func TestWriterRowGroupPerBatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "groups.parquet")
	rows := sampleRows(5)
	batches := make([][]pageview.Row, 0, len(rows))
	for i := range rows {
		batches = append(batches, rows[i:i+1])
	}
	writeBatches(t, path, Options{}, batches...)

	info, err := Inspect(path)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if info.Rows != 5 || info.RowGroups != 5 {
		t.Fatalf("Inspect = %+v, want 5 rows in 5 groups", info)
	}
	for i, n := range info.RowGroupSizes {
		if n != 1 {
			t.Fatalf("row group %d has %d rows", i, n)
		}
	}
	want := []string{ColDomainCode, ColPageTitle, ColViews, ColLanguage, ColDomain, ColMobile}
	if len(info.Columns) != len(want) {
		t.Fatalf("columns = %v", info.Columns)
	}
	for i := range want {
		if info.Columns[i] != want[i] {
			t.Fatalf("columns = %v, want %v", info.Columns, want)
		}
	}
}

func TestWriterUnknownDomainIsNull(t *testing.T) {
	path := filepath.Join(t.TempDir(), "null.parquet")
	writeBatches(t, path, Options{}, []pageview.Row{
		pageview.NewRow("xx.unknown", "Foo", 5),
		pageview.NewRow("en", "Bar", 6),
	})

	var recs []Record
	err := ScanRecords(context.Background(), path, func(r Record) bool {
		recs = append(recs, r)
		return true
	})
	if err != nil || len(recs) != 2 {
		t.Fatalf("ScanRecords = %d records, %v", len(recs), err)
	}
	if recs[0].Domain != nil {
		t.Fatalf("unknown domain should be null, got %q", *recs[0].Domain)
	}
	if recs[1].Domain == nil || *recs[1].Domain != "wikipedia.org" {
		t.Fatalf("known domain = %v", recs[1].Domain)
	}
}

func TestWriterEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.parquet")
	w := writeBatches(t, path, Options{}, nil, []pageview.Row{})
	if n, g := w.Stats(); n != 0 || g != 0 {
		t.Fatalf("Stats = (%d,%d)", n, g)
	}
	info, err := Inspect(path)
	if err != nil || info.Rows != 0 || info.RowGroups != 0 {
		t.Fatalf("Inspect = %+v, %v", info, err)
	}
}

func TestWriterAbortRemovesOutput(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "aborted.parquet")
	w, err := Create(path, Options{})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := w.WriteBatch(context.Background(), sampleRows(3)); err != nil {
		t.Fatalf("WriteBatch: %v", err)
	}
	w.Abort()
	w.Abort()
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Fatalf("abort left %d files", len(entries))
	}
	if err := w.WriteBatch(context.Background(), sampleRows(1)); !perr.IsCode(err, perr.ErrorCodeWrite) {
		t.Fatalf("write after abort = %v", err)
	}
	if err := w.Close(context.Background()); err != nil {
		t.Fatalf("close after abort should be a no-op, got %v", err)
	}
}

func TestCreateErrors(t *testing.T) {
	if _, err := Create("", Options{}); !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("empty path: %v", err)
	}
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Create(filepath.Join(blocker, "sub", "x.parquet"), Options{}); !perr.IsCode(err, perr.ErrorCodeWrite) {
		t.Fatalf("unwritable dir: %v", err)
	}
	if _, err := Inspect(filepath.Join(t.TempDir(), "missing.parquet")); !perr.IsCode(err, perr.ErrorCodeNotFound) {
		t.Fatalf("missing file: %v", err)
	}
}

func TestReaderMatchesWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pair.parquet")
	want := []pageview.Row{
		pageview.NewRow("en", "Main_Page", 2),
		pageview.NewRow("xx.unknown", "Foo", 4294967295),
		pageview.NewRow("ja.m", "東京\u3000タワー", 5),
		pageview.NewRow("commons.m", "", 0),
	}
	writeBatches(t, path, Options{Compression: "none"}, want[:2], want[2:])

	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("read %d rows, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("row %d = %+v, want %+v", i, got[i], want[i])
		}
	}

	var seen int
	if err := Scan(path, func(pageview.Row) bool { seen++; return seen < 3 }); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if seen != 3 {
		t.Fatalf("Scan visited %d rows after stop, want 3", seen)
	}
}

func TestReaderEmptyAndMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.parquet")
	writeBatches(t, path, Options{})
	rows, err := ReadFile(path)
	if err != nil || len(rows) != 0 {
		t.Fatalf("ReadFile(empty) = %d rows, %v", len(rows), err)
	}
	if _, err := ReadFile(filepath.Join(t.TempDir(), "nope.parquet")); !perr.IsCode(err, perr.ErrorCodeNotFound) {
		t.Fatalf("missing file: %v", err)
	}
	garbage := filepath.Join(t.TempDir(), "garbage.parquet")
	if err := os.WriteFile(garbage, []byte("not parquet at all"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadFile(garbage); !perr.IsCode(err, perr.ErrorCodeDecode) {
		t.Fatalf("garbage file: %v", err)
	}
}
