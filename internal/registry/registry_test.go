package registry_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"clipforge/internal/encoder"
	"clipforge/internal/export"
	"clipforge/internal/logging"
	"clipforge/internal/media"
	"clipforge/internal/registry"
	"clipforge/internal/render"
)

func newTestRegistry(duration time.Duration) *registry.Registry {
	factory := func() *export.Job {
		return export.NewJob(export.Deps{
			Encoders:          encoder.NewFileOpener(),
			Renderer:          render.NewTimelineSource(duration, 8000, 1).Opener(),
			Logger:            logging.NewNop(),
			UpdateEveryFrames: 1,
		})
	}
	return registry.New(factory, logging.NewNop())
}

func TestRegistryHandlesAreMonotonic(t *testing.T) {
	reg := newTestRegistry(time.Second)

	first := reg.Create()
	second := reg.Create()
	if first == 0 || second == 0 {
		t.Fatal("Create returned zero handle")
	}
	if second <= first {
		t.Fatalf("handles not monotonic: %d then %d", first, second)
	}

	if !reg.Destroy(first) {
		t.Fatal("Destroy of live handle failed")
	}
	third := reg.Create()
	if third <= second {
		t.Fatalf("destroyed handle id reused: %d after %d", third, second)
	}
	if reg.Len() != 2 {
		t.Fatalf("expected 2 live handles, got %d", reg.Len())
	}
}

func TestRegistryLookup(t *testing.T) {
	reg := newTestRegistry(time.Second)

	handle := reg.Create()
	job, ok := reg.Lookup(handle)
	if !ok || job == nil {
		t.Fatal("Lookup of live handle failed")
	}
	if _, ok := reg.Lookup(handle + 100); ok {
		t.Fatal("Lookup of unknown handle succeeded")
	}

	reg.Destroy(handle)
	if _, ok := reg.Lookup(handle); ok {
		t.Fatal("Lookup succeeded after Destroy")
	}
	if reg.Destroy(handle) {
		t.Fatal("second Destroy succeeded")
	}
}

func TestRegistryDestroyCancelsRunningJob(t *testing.T) {
	reg := newTestRegistry(10 * time.Minute) // long enough to still be running

	handle := reg.Create()
	job, ok := reg.Lookup(handle)
	if !ok {
		t.Fatal("Lookup failed")
	}

	outputPath := filepath.Join(t.TempDir(), "out.mp4")
	config := export.Config{
		Width:      640,
		Height:     480,
		FrameRate:  30,
		Quality:    media.QualityLow,
		Format:     media.FormatMP4,
		Codec:      media.CodecH264,
		OutputPath: outputPath,
	}
	if !job.SetConfig(config) {
		t.Fatal("SetConfig failed")
	}
	if !job.Start() {
		t.Fatal("Start failed")
	}

	if !reg.Destroy(handle) {
		t.Fatal("Destroy failed")
	}
	// Destroy implies cancel-and-wait: the worker is gone and the partial
	// output was removed.
	if job.IsExporting() {
		t.Fatal("worker still running after Destroy")
	}
	if !job.WasCancelled() {
		t.Fatalf("expected CANCELLED after Destroy, got %s", job.CurrentPhase())
	}
	if _, err := os.Stat(outputPath); err == nil {
		t.Fatal("partial output survived Destroy")
	}
}

func TestRegistryCloseStopsEverything(t *testing.T) {
	reg := newTestRegistry(50 * time.Millisecond)

	handles := []registry.Handle{reg.Create(), reg.Create(), reg.Create()}
	reg.Close(10 * time.Second)

	for _, handle := range handles {
		if _, ok := reg.Lookup(handle); ok {
			t.Fatalf("handle %d survived Close", handle)
		}
	}
	if reg.Create() != 0 {
		t.Fatal("Create succeeded after Close")
	}
}
