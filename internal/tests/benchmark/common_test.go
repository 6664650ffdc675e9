package benchmark

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"strings"
	"testing"

	"github.com/oklog/ulid/v2"

	"github.com/yndnr/tssd/internal/storage"
)

// PrefillCounts defines the committed key counts keygen runs against.
var PrefillCounts = []int{0, 1000, 10000}

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

// newKeyUID generates a unique key uid.
func newKeyUID() string {
	return "key-" + strings.ToLower(ulid.Make().String())
}

// newManager opens an in-memory store with a fresh seed.
func newManager(b *testing.B) *storage.Manager {
	b.Helper()

	cfg := storage.DefaultKVConfig("")
	cfg.InMemory = true
	cfg.Badger.SyncWrites = false

	engine, err := storage.NewBadgerEngine(cfg, quiet)
	if err != nil {
		b.Fatalf("open engine: %v", err)
	}
	b.Cleanup(func() { engine.Close() })

	m := storage.NewManager(engine, quiet)
	if err := m.InitSeed(context.Background(), storage.SeedOptions{Mode: storage.SeedModeCreate}); err != nil {
		b.Fatalf("init seed: %v", err)
	}
	return m
}

// prefill commits count shares so lookups run against a populated store.
func prefill(ctx context.Context, b *testing.B, kv *storage.KV, count int) {
	b.Helper()
	share := make([]byte, 80)
	for i := 0; i < count; i++ {
		res, err := kv.ReserveKey(ctx, fmt.Sprintf("prefill-%d", i))
		if err != nil {
			b.Fatalf("reserve: %v", err)
		}
		if err := kv.Put(ctx, res, share); err != nil {
			b.Fatalf("put: %v", err)
		}
	}
}

// reportMemory reports memory usage.
func reportMemory(b *testing.B, prefix string) {
	var m runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&m)
	b.ReportMetric(float64(m.Alloc)/(1024*1024), prefix+"_MB")
	b.ReportMetric(float64(m.NumGC), prefix+"_GC")
}

// runWithPrefill runs a benchmark function with various prefill counts.
func runWithPrefill(b *testing.B, counts []int, benchFn func(b *testing.B, count int)) {
	for _, count := range counts {
		b.Run(fmt.Sprintf("keys_%d", count), func(b *testing.B) {
			benchFn(b, count)
		})
	}
}
