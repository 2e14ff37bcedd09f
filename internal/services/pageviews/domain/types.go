// Package domain defines the types and ports for the pageviews service
package domain

// DefaultBatchSize is the number of rows per columnar block when the caller has no preference
const DefaultBatchSize = 122880

// Summary describes one finished export
type Summary struct {
	Lines    int   // lines read from the dump
	Bytes    int64 // uncompressed bytes read
	Rows     int64 // rows handed to the sink
	Filtered int64 // lines or rows rejected by the filter
	Skipped  int64 // lines dropped for parse or decode errors
	Batches  int   // WriteBatch calls
}
