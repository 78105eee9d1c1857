package extract

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang/glog"

	"github.com/Pavel7004/goWsmExtract/pkg/domain"
	"github.com/Pavel7004/goWsmExtract/pkg/wsm"
)

var (
	ErrOutputExists    = errors.New("Output file already exists")
	ErrUnreadableInput = errors.New("Input is not a readable file or directory")
)

// Extension carried by WSM container files. Folder scans and explicit file
// arguments are matched against it case insensitively.
const Extension = ".wsm"

// Options control which sections are written and where.
type Options struct {
	// OutputDir is the base directory for the per-file output folders.
	// Empty means alongside each input.
	OutputDir string

	// Tags restricts extraction to the listed tags. Nil extracts every
	// section encountered, whatever its tag.
	Tags []domain.Tag

	// Force allows overwriting existing output files.
	Force bool
}

type tagSet map[domain.Tag]struct{}

func (s tagSet) want(t domain.Tag) bool {
	if len(s) == 0 {
		return true
	}
	_, ok := s[t]
	return ok
}

// ParseTags validates user supplied section names against the documented tag
// set and returns them normalized. Duplicates collapse onto their first
// occurrence.
func ParseTags(entries []string) ([]domain.Tag, error) {
	var tags []domain.Tag
	seen := make(tagSet, len(entries))

	for _, e := range entries {
		t, err := domain.ParseTag(e)
		if err != nil || !t.Known() {
			return nil, fmt.Errorf("%q is not a valid WSM FourCC/section", e)
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		tags = append(tags, t)
	}
	return tags, nil
}

// Process extracts sections from one input path, which may name a container
// file or a folder to scan (non recursively) for container files. Failures
// inside a folder do not stop the remaining files; everything that went wrong
// is reported in the returned error.
func Process(path string, opts Options) error {
	st, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrUnreadableInput, path)
	}

	if st.IsDir() {
		return processDir(path, opts)
	}

	if !matchesExtension(path) {
		glog.Warningf("Skipping non %s file extension for: %s", Extension, path)
		return nil
	}

	outRoot := opts.OutputDir
	if outRoot == "" {
		outRoot = filepath.Dir(path)
	}
	return processFile(path, outRoot, opts)
}

func processDir(dir string, opts Options) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrUnreadableInput, dir)
	}

	outRoot := opts.OutputDir
	if outRoot == "" {
		outRoot = dir
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || !matchesExtension(e.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	if len(paths) > 1 {
		glog.Infof("%d files to process in %s", len(paths), dir)
	}

	var errs []error
	for _, path := range paths {
		if err := processFile(path, outRoot, opts); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
		}
	}
	return errors.Join(errs...)
}

func processFile(path, outRoot string, opts Options) error {
	glog.Infof("Processing: %s", path)

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreadableInput, err)
	}
	defer f.Close()

	r, err := wsm.NewReader(f)
	if err != nil {
		return err
	}

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	destDir := filepath.Join(outRoot, base)

	want := make(tagSet, len(opts.Tags))
	for _, t := range opts.Tags {
		want[t] = struct{}{}
	}

	var errs []error
	for {
		sec, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// A parse error means the rest of the stream cannot be
			// trusted; sections already saved stay on disk.
			errs = append(errs, err)
			break
		}

		if !want.want(sec.Tag) {
			continue
		}
		if err := saveSection(destDir, base, sec, opts.Force); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func saveSection(destDir, base string, sec *domain.Section, force bool) error {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return fmt.Errorf("create %s: %w", destDir, err)
	}

	out := filepath.Join(destDir, OutputName(base, sec.Tag))
	if !force {
		if _, err := os.Stat(out); err == nil {
			return fmt.Errorf("%w: %s", ErrOutputExists, out)
		}
	}

	if err := os.WriteFile(out, sec.Payload, 0644); err != nil {
		return fmt.Errorf("write section %q: %w", sec.Tag, err)
	}
	glog.Infof("Saved: %s", out)
	return nil
}

// OutputName maps a section tag to its conventional output filename. The
// "WAM " payload is a standalone .WAM file, and "IMG " is historically a
// LAND_*.DAT terrain file rather than image data, so both keep the names the
// game's pipeline used. Everything else is named after its tag.
func OutputName(base string, t domain.Tag) string {
	switch t {
	case domain.TagWAM:
		return base + ".WAM"
	case domain.TagIMG:
		return "LAND_" + base + ".DAT"
	}
	return base + "." + t.String()
}

func matchesExtension(name string) bool {
	return strings.EqualFold(filepath.Ext(name), Extension)
}
