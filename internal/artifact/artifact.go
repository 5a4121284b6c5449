// Package artifact inspects the distribution directory that the build tool
// writes archives into. Records are ephemeral: the directory is deleted and
// regenerated on every publish run, so nothing here caches between calls.
package artifact

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ErrMissingDist reports that the distribution directory does not exist,
// typically because the build step never produced it.
var ErrMissingDist = errors.New("artifact: distribution directory does not exist")

// Record describes one file in the distribution directory.
type Record struct {
	Name     string
	Size     int64
	Mode     fs.FileMode
	ModTime  time.Time
	Checksum string // hex sha256 of the file contents
}

// Scan lists the regular files in the distribution directory, sorted by name,
// each with its sha256 checksum. Subdirectories are skipped; build tools
// occasionally leave scratch dirs behind and those are not uploadable
// artifacts.
func Scan(dir string) ([]Record, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissingDist, dir)
		}
		return nil, fmt.Errorf("artifact: read %s: %w", dir, err)
	}
	records := make([]Record, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("artifact: stat %s: %w", entry.Name(), err)
		}
		sum, err := hashFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		records = append(records, Record{
			Name:     entry.Name(),
			Size:     info.Size(),
			Mode:     info.Mode(),
			ModTime:  info.ModTime(),
			Checksum: sum,
		})
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Name < records[j].Name })
	return records, nil
}

// hashFile returns the hex sha256 of one file.
func hashFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("artifact: open %s: %w", filepath.Base(path), err)
	}
	defer file.Close()
	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", fmt.Errorf("artifact: hash %s: %w", filepath.Base(path), err)
	}
	return fmt.Sprintf("%x", hash.Sum(nil)), nil
}

// FormatListing renders records the way the enumerate step prints them: one
// long-format line per file plus a total footer.
func FormatListing(records []Record) string {
	var b strings.Builder
	if len(records) == 0 {
		b.WriteString("(no artifacts)\n")
		return b.String()
	}
	nameWidth := 0
	sizeWidth := 0
	for _, rec := range records {
		if len(rec.Name) > nameWidth {
			nameWidth = len(rec.Name)
		}
		if w := len(fmt.Sprintf("%d", rec.Size)); w > sizeWidth {
			sizeWidth = w
		}
	}
	var total int64
	for _, rec := range records {
		total += rec.Size
		fmt.Fprintf(&b, "%s %*d %s %-*s\n",
			rec.Mode.String(),
			sizeWidth, rec.Size,
			rec.ModTime.Format("Jan _2 15:04"),
			nameWidth, rec.Name,
		)
	}
	fmt.Fprintf(&b, "total %d file(s), %s\n", len(records), humanSize(total))
	return b.String()
}

// FormatChecksums renders one "<sha256>  <name>" line per record, matching
// the layout of a sha256sum manifest.
func FormatChecksums(records []Record) string {
	var b strings.Builder
	for _, rec := range records {
		fmt.Fprintf(&b, "%s  %s\n", rec.Checksum, rec.Name)
	}
	return b.String()
}

func humanSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(size)/float64(div), "KMGTPE"[exp])
}
