// Package mediajob derives the output paths for a source video.
package mediajob

import (
	"fmt"
	"path/filepath"
	"strings"

	"videowatch/internal/config"
	"videowatch/internal/services"
)

// MediaJob is the set of paths one source video is converted into. The paths
// are a pure function of the source stem and the configured directories. ID
// is empty after Resolve; the dispatcher assigns it when it accepts the job,
// and it only correlates log lines and history rows.
type MediaJob struct {
	ID            string
	Source        string
	TempPreview   string
	Preview       string
	ProcessedBase string
}

// Stem returns the source base name without its final extension.
func (j MediaJob) Stem() string {
	return filepath.Base(j.ProcessedBase)
}

// ProcessedCopy is where the preserved copy of the source lands.
func (j MediaJob) ProcessedCopy() string {
	return j.ProcessedBase + filepath.Ext(j.Source)
}

// Snapshot is where the still thumbnail lands.
func (j MediaJob) Snapshot() string {
	return j.ProcessedBase + ".jpg"
}

// Resolver maps source paths to jobs.
type Resolver struct {
	extensions map[string]struct{}
	tempDir    string
	gifDir     string
	processed  string
}

// NewResolver builds a Resolver from the directories and accepted extensions in cfg.
func NewResolver(cfg *config.Config) *Resolver {
	return NewResolverWith(cfg.Video.Extensions, cfg.TempDir, cfg.GIFDir, cfg.ProcessedDir)
}

// NewResolverWith builds a Resolver from explicit values. Extensions are
// matched case-insensitively and may be given with or without a leading dot.
func NewResolverWith(extensions []string, tempDir, gifDir, processedDir string) *Resolver {
	set := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		set[ext] = struct{}{}
	}
	return &Resolver{
		extensions: set,
		tempDir:    tempDir,
		gifDir:     gifDir,
		processed:  processedDir,
	}
}

// Accepts reports whether path carries an accepted video extension.
func (r *Resolver) Accepts(path string) bool {
	_, ok := r.extensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Resolve derives the job for source. It is pure: the same source and
// directories always yield the same job. Sources with an unaccepted extension,
// or without a usable stem, return an error marked services.ErrNotAVideo.
func (r *Resolver) Resolve(source string) (MediaJob, error) {
	name := filepath.Base(source)
	if source == "" || name == "." || name == string(filepath.Separator) {
		return MediaJob{}, services.Wrap(services.ErrNotAVideo, "", "resolve", "empty file name", nil)
	}
	ext := filepath.Ext(name)
	if !r.Accepts(name) {
		return MediaJob{}, services.Wrap(services.ErrNotAVideo, "", "resolve", fmt.Sprintf("extension %q not accepted", ext), nil)
	}
	stem := strings.TrimSuffix(name, ext)
	if strings.TrimSpace(stem) == "" {
		return MediaJob{}, services.Wrap(services.ErrNotAVideo, "", "resolve", fmt.Sprintf("%q has no stem", name), nil)
	}

	return MediaJob{
		Source:        source,
		TempPreview:   filepath.Join(r.tempDir, stem+".gif"),
		Preview:       filepath.Join(r.gifDir, stem+".gif"),
		ProcessedBase: filepath.Join(r.processed, stem),
	}, nil
}
