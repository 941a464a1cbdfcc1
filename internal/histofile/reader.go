package histofile

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/Sumatoshi-tech/histotrend/pkg/histo"
)

// Reader turns dump files into snapshots, resolving safe and watch list
// membership for every class it reads.
type Reader struct {
	Safe   *histo.PatternSet
	Watch  *histo.PatternSet
	Logger *slog.Logger
}

// NewReader returns a Reader using the given pattern sets, either of which may be nil.
func NewReader(safe, watch *histo.PatternSet, logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}

	return &Reader{Safe: safe, Watch: watch, Logger: logger}
}

// ReadSnapshots reads every path and returns the snapshots ordered by time.
// Snapshots with equal times keep file name order.
func (r *Reader) ReadSnapshots(ctx context.Context, paths []string) ([]histo.Snapshot, error) {
	snapshots := make([]histo.Snapshot, 0, len(paths))

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("read snapshots: %w", err)
		}

		snap, err := r.ReadSnapshot(ctx, path)
		if err != nil {
			return nil, err
		}

		snapshots = append(snapshots, snap)
	}

	slices.SortStableFunc(snapshots, func(a, b histo.Snapshot) int {
		return cmp.Compare(a.Timestamp.UnixNano(), b.Timestamp.UnixNano())
	})

	return snapshots, nil
}

// ReadSnapshot reads a single dump file.
func (r *Reader) ReadSnapshot(ctx context.Context, path string) (histo.Snapshot, error) {
	timestamp, err := r.timestampFor(ctx, path)
	if err != nil {
		return histo.Snapshot{}, err
	}

	rc, err := openDump(path)
	if err != nil {
		return histo.Snapshot{}, err
	}
	defer rc.Close()

	lines, err := Parse(rc, path)
	if err != nil {
		return histo.Snapshot{}, err
	}

	r.Logger.DebugContext(ctx, "read histogram", "file", path, "classes", len(lines), "time", timestamp)

	return histo.NewSnapshot(path, timestamp, r.Measurements(lines)), nil
}

// Measurements converts parsed rows into measurements.
func (r *Reader) Measurements(lines []Line) []histo.Measurement {
	measurements := make([]histo.Measurement, len(lines))

	for i, l := range lines {
		class := histo.NewClassInfo(l.Name, r.Safe, r.Watch)
		measurements[i] = histo.NewMeasurement(class, histo.Counts{
			Rank:      l.Rank,
			Instances: l.Instances,
			Bytes:     l.Bytes,
		})
	}

	return measurements
}

// timestampFor prefers a date in the file name and falls back to the file's
// modification time, read as local wall clock.
func (r *Reader) timestampFor(ctx context.Context, path string) (time.Time, error) {
	name := strings.TrimSuffix(filepath.Base(path), CompressedSuffix)

	if t, ok := ExtractDate(name); ok {
		return t, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, fmt.Errorf("stat dump: %w", err)
	}

	r.Logger.WarnContext(ctx, "no date in file name, using modification time", "file", path)

	mod := info.ModTime().In(time.Local)

	return time.Date(mod.Year(), mod.Month(), mod.Day(),
		mod.Hour(), mod.Minute(), mod.Second(), mod.Nanosecond(), time.UTC), nil
}
