package dispatch_test

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"

	"videowatch/internal/dedup"
	"videowatch/internal/delivery"
	"videowatch/internal/dispatch"
	"videowatch/internal/exttool"
	"videowatch/internal/logging"
	"videowatch/internal/mediajob"
	"videowatch/internal/pipeline"
)

// toolRunner stands in for ffmpeg, gifsicle and MP4Box. The transcode writes
// "gif of <source>" so each preview can be traced back to its source.
type toolRunner struct{}

func (toolRunner) Run(_ context.Context, binary string, args []string) (exttool.Result, error) {
	var err error
	switch {
	case binary == "MP4Box":
	case binary == "gifsicle":
		var data []byte
		if data, err = os.ReadFile(args[1]); err == nil {
			err = os.WriteFile(args[slices.Index(args, "-o")+1], data, 0o644)
		}
	case slices.Contains(args, "-ss"):
		err = os.WriteFile(args[len(args)-1], []byte("jpeg"), 0o644)
	default:
		source := args[slices.Index(args, "-i")+1]
		err = os.WriteFile(args[len(args)-1], []byte("gif of "+source), 0o644)
	}
	if err != nil {
		return exttool.Result{ExitCode: -1}, err
	}
	return exttool.Result{}, nil
}

// readingDeliverer records the artifact path and its bytes at send time.
type readingDeliverer struct {
	mu       sync.Mutex
	paths    []string
	contents []string
}

func (r *readingDeliverer) Deliver(_ context.Context, artifact string) delivery.DeliveryResult {
	data, err := os.ReadFile(artifact)
	r.mu.Lock()
	r.paths = append(r.paths, artifact)
	r.contents = append(r.contents, string(data))
	r.mu.Unlock()
	if err != nil {
		return delivery.DeliveryResult{Artifact: artifact, Attempts: 1, Err: err}
	}
	return delivery.DeliveryResult{Artifact: artifact, Attempts: 1, Delivered: true}
}

type flowDirs struct {
	watch, temp, gif, processed string
}

func newFlowDirs(t *testing.T) flowDirs {
	t.Helper()
	base := t.TempDir()
	dirs := flowDirs{
		watch:     filepath.Join(base, "w"),
		temp:      filepath.Join(base, "t"),
		gif:       filepath.Join(base, "g"),
		processed: filepath.Join(base, "p"),
	}
	for _, dir := range []string{dirs.watch, dirs.temp, dirs.gif, dirs.processed} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	return dirs
}

func (d flowDirs) dispatcher(deliverer dispatch.Deliverer, opts ...dispatch.Option) *dispatch.Dispatcher {
	resolver := mediajob.NewResolverWith([]string{".mp4"}, d.temp, d.gif, d.processed)
	conv := pipeline.New(toolRunner{}, pipeline.Tools{FFmpeg: "ffmpeg", Gifsicle: "gifsicle", MP4Box: "MP4Box"}, logging.NewNop())
	return dispatch.New(resolver, dedup.New(20), conv, deliverer, logging.NewNop(), opts...)
}

func writeSource(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("mp4 bytes"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestCreateEventProducesEveryArtifact(t *testing.T) {
	dirs := newFlowDirs(t)
	source := filepath.Join(dirs.watch, "clip.mp4")
	writeSource(t, source)
	deliv := &readingDeliverer{}

	runEvents(t, dirs.dispatcher(deliv), create(source))

	entries, err := os.ReadDir(dirs.temp)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected temp directory to be empty, found %d entries", len(entries))
	}
	for _, path := range []string{
		filepath.Join(dirs.gif, "clip.gif"),
		filepath.Join(dirs.processed, "clip.mp4"),
		filepath.Join(dirs.processed, "clip.jpg"),
		source,
	} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected %s: %v", path, err)
		}
	}
	want := []string{filepath.Join(dirs.gif, "clip.gif")}
	if !slices.Equal(deliv.paths, want) {
		t.Fatalf("deliveries = %v, want %v", deliv.paths, want)
	}
	if deliv.contents[0] != "gif of "+source {
		t.Fatalf("delivered preview content = %q", deliv.contents[0])
	}
}

func TestSameStemSourcesDeliverTheirOwnPreview(t *testing.T) {
	dirs := newFlowDirs(t)
	first := filepath.Join(dirs.watch, "2024050112", "05M30S.mp4")
	second := filepath.Join(dirs.watch, "2024050113", "05M30S.mp4")
	writeSource(t, first)
	writeSource(t, second)
	deliv := &readingDeliverer{}

	runEvents(t, dirs.dispatcher(deliv, dispatch.WithLanes(4, 4)), create(first), create(second))

	want := []string{"gif of " + first, "gif of " + second}
	if !slices.Equal(deliv.contents, want) {
		t.Fatalf("delivered previews = %q, want %q", deliv.contents, want)
	}
	entries, err := os.ReadDir(dirs.temp)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected temp directory to be empty, found %d entries", len(entries))
	}
}
