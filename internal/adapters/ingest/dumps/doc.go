// Package dumps reads Wikimedia hourly pageview dumps line by line
//
// Design choices:
// - Sources are plain io.ReadCloser values of compressed bytes, local file or one streaming GET.
// - Decompression is lazy: a corrupt gzip header surfaces on the first pull, not at open.
// - Lines are split with bufio.Scanner and validated as UTF-8 one at a time; a bad line does not stop the stream.
// - Read failures are classified at the source so the caller can tell connection loss from corrupt data.
package dumps
