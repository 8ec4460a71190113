// Package textfile persists receipts as dated, human-readable text files.
package textfile

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"

	"github.com/xenking/storefront/internal/domain/receipt"
)

// DateLayout is the timestamp layout used in receipt headers,
// e.g. "Mon Oct 19 12:00:00 UTC 2026".
const DateLayout = "Mon Jan 02 15:04:05 MST 2006"

var _ receipt.Writer = (*Writer)(nil)

// Config controls where and how receipts are written.
type Config struct {
	// Dir is created on first write when missing.
	Dir string
	// Compress gzips each file and appends ".gz" to its name.
	Compress bool
}

// Writer writes one file per receipt.
type Writer struct {
	dir      string
	compress bool
}

// New returns a Writer for cfg.
func New(cfg Config) *Writer {
	return &Writer{dir: cfg.Dir, compress: cfg.Compress}
}

// Dir returns the output directory.
func (w *Writer) Dir() string {
	return w.dir
}

// Write renders r into a new file. The file appears under its final name only
// once it is completely written.
func (w *Writer) Write(ctx context.Context, r receipt.Receipt) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return errors.Wrap(err, "create receipts dir")
	}

	tmp, err := os.CreateTemp(w.dir, ".receipt-*")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	defer func() {
		// No-op once renamed.
		_ = os.Remove(tmp.Name())
	}()

	if err := w.encode(tmp, r); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "sync temp file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "close temp file")
	}

	name := filepath.Join(w.dir, FileName(r, w.compress))
	if err := os.Rename(tmp.Name(), name); err != nil {
		return errors.Wrap(err, "rename receipt")
	}
	return nil
}

// CheckWritable verifies that receipts can be created in the directory.
func (w *Writer) CheckWritable(_ context.Context) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return errors.Wrap(err, "create receipts dir")
	}
	f, err := os.CreateTemp(w.dir, ".writable-*")
	if err != nil {
		return errors.Wrap(err, "receipts dir not writable")
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}

func (w *Writer) encode(f *os.File, r receipt.Receipt) error {
	if !w.compress {
		return Format(f, r)
	}
	zw := pgzip.NewWriter(f)
	if err := Format(zw, r); err != nil {
		_ = zw.Close()
		return err
	}
	if err := zw.Close(); err != nil {
		return errors.Wrap(err, "finish gzip stream")
	}
	return nil
}

// FileName returns "<prefix>_<unix millis>_<first 8 chars of ID>.txt", with a
// "purchase" prefix for purchases and "cart" for snapshots.
func FileName(r receipt.Receipt, compressed bool) string {
	prefix := "purchase"
	if r.Kind == receipt.KindSnapshot {
		prefix = "cart"
	}
	id := strings.ReplaceAll(r.ID, "-", "")
	if len(id) > 8 {
		id = id[:8]
	}
	name := fmt.Sprintf("%s_%d_%s.txt", prefix, r.CreatedAt.UnixMilli(), id)
	if compressed {
		name += ".gz"
	}
	return name
}

// Format writes the human-readable form of r:
//
//	Purchase Date: Mon Oct 19 12:00:00 UTC 2026
//	Items:
//	Apple - 3 x $0.99 = $2.97
//	Total: $2.97
func Format(out io.Writer, r receipt.Receipt) error {
	bw := bufio.NewWriter(out)

	header := "Purchase Date"
	if r.Kind == receipt.KindSnapshot {
		header = "Saved Date"
	}
	fmt.Fprintf(bw, "%s: %s\n", header, r.CreatedAt.Format(DateLayout))
	fmt.Fprintln(bw, "Items:")
	for _, l := range r.Lines {
		fmt.Fprintf(bw, "%s - %d x %s = %s\n", l.Name, l.Quantity, receipt.Money(l.UnitPrice), receipt.Money(l.LineTotal))
	}
	fmt.Fprintf(bw, "Total: %s\n", receipt.Money(r.Total))

	if err := bw.Flush(); err != nil {
		return errors.Wrap(err, "write receipt")
	}
	return nil
}
