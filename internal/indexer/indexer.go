// Package indexer scans per-project memory documents into the store.
//
// The scan root holds one directory per project, named with the encoded form of
// the project's path (see pathdecode). Files inside a project directory whose
// relative path matches a configured pattern are indexed. Change detection compares
// file mtimes in whole seconds against the stored value, so unchanged files are
// never opened.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/gobwas/glob"
	"github.com/rs/zerolog"

	"github.com/rcliao/mem/internal/markdown"
	"github.com/rcliao/mem/internal/model"
	"github.com/rcliao/mem/internal/pathdecode"
	"github.com/rcliao/mem/internal/store"
)

var (
	// ErrBadRoot means the scan root is missing or not a directory.
	ErrBadRoot = errors.New("invalid scan root")

	// ErrBadPath means a single-file index target is missing or not a regular file.
	ErrBadPath = errors.New("invalid index path")
)

// UntitledTitle is stored for documents with no heading or text line.
const UntitledTitle = "Untitled memory"

// Store is the subset of the store the indexer writes through.
type Store interface {
	IndexedFileStamps(ctx context.Context, root string) (map[string]store.FileStamp, error)
	UpsertIndexedFile(ctx context.Context, f model.IndexedFile) (*model.IndexedFile, error)
	DeleteIndexedFiles(ctx context.Context, ids []string) (int, error)
}

// Action is what a scan did, or would do, with one file.
type Action string

const (
	ActionNew       Action = "new"
	ActionUpdated   Action = "updated"
	ActionUnchanged Action = "unchanged"
	ActionSkipped   Action = "skipped"
	ActionPruned    Action = "pruned"
)

// FileResult reports one file that a scan did not leave unchanged.
type FileResult struct {
	Path    string `json:"path"`
	Project string `json:"project,omitempty"`
	Action  Action `json:"action"`
	Error   string `json:"error,omitempty"`
}

// Summary counts the outcome of a scan. A file that fails to read or store counts
// in both Errors and Skipped.
type Summary struct {
	Root      string       `json:"root"`
	DryRun    bool         `json:"dry_run"`
	New       int          `json:"new"`
	Updated   int          `json:"updated"`
	Unchanged int          `json:"unchanged"`
	Skipped   int          `json:"skipped"`
	Errors    int          `json:"errors"`
	Pruned    int          `json:"pruned"`
	Files     []FileResult `json:"files"`
}

// ScanOptions controls a scan.
type ScanOptions struct {
	Root   string
	DryRun bool

	// SinglePath indexes exactly this file and never prunes.
	SinglePath string
}

// Indexer scans memory documents into a Store.
type Indexer struct {
	store    Store
	decoder  *pathdecode.Decoder
	patterns []glob.Glob
	logger   zerolog.Logger
}

// New creates an Indexer. Patterns are slash-separated globs relative to a project
// directory; '*' does not cross '/'.
func New(st Store, decoder *pathdecode.Decoder, patterns []string, logger zerolog.Logger) (*Indexer, error) {
	if decoder == nil {
		decoder = &pathdecode.Decoder{}
	}
	ix := &Indexer{store: st, decoder: decoder, logger: logger}
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("compile pattern %q: %w", p, err)
		}
		ix.patterns = append(ix.patterns, g)
	}
	if len(ix.patterns) == 0 {
		return nil, fmt.Errorf("%w: no index patterns", store.ErrInvalidInput)
	}
	return ix, nil
}

// Matches reports whether rel, a path relative to a project directory, names an
// indexable document.
func (ix *Indexer) Matches(rel string) bool {
	rel = filepath.ToSlash(rel)
	for _, g := range ix.patterns {
		if g.Match(rel) {
			return true
		}
	}
	return false
}

// project is one encoded project directory under the root.
type project struct {
	dir      string
	encoded  string
	realPath string
	name     string
}

// scan holds the state of one Scan call.
type scan struct {
	ix      *Indexer
	opts    ScanOptions
	stamps  map[string]store.FileStamp
	seen    map[string]bool
	summary *Summary
}

// Scan indexes new and changed documents under opts.Root and prunes rows whose
// source file no longer exists. Per-file failures are counted and logged; they do
// not abort the scan.
func (ix *Indexer) Scan(ctx context.Context, opts ScanOptions) (*Summary, error) {
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrBadRoot, opts.Root, err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadRoot, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrBadRoot, root)
	}
	opts.Root = root

	stamps, err := ix.store.IndexedFileStamps(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("load index state: %w", err)
	}

	sc := &scan{
		ix:      ix,
		opts:    opts,
		stamps:  stamps,
		seen:    map[string]bool{},
		summary: &Summary{Root: root, DryRun: opts.DryRun, Files: []FileResult{}},
	}

	if opts.SinglePath != "" {
		if err := sc.single(ctx); err != nil {
			return nil, err
		}
		return sc.summary, nil
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadRoot, err)
	}
	for _, e := range entries {
		dir := filepath.Join(root, e.Name())
		if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
			continue
		}
		sc.project(ctx, e.Name(), dir)
	}

	if err := sc.prune(ctx); err != nil {
		return nil, err
	}

	ix.logger.Info().
		Str("root", root).
		Bool("dry_run", opts.DryRun).
		Int("new", sc.summary.New).
		Int("updated", sc.summary.Updated).
		Int("unchanged", sc.summary.Unchanged).
		Int("skipped", sc.summary.Skipped).
		Int("errors", sc.summary.Errors).
		Int("pruned", sc.summary.Pruned).
		Msg("Index scan finished")

	return sc.summary, nil
}

func (ix *Indexer) resolve(encoded, dir string) project {
	p := project{dir: dir, encoded: encoded}
	if realPath, ok := ix.decoder.Decode(encoded); ok {
		p.realPath = realPath
	}
	p.name = pathdecode.ProjectName(encoded, p.realPath)
	return p
}

// project walks one encoded project directory.
func (sc *scan) project(ctx context.Context, encoded, dir string) {
	log := sc.ix.logger
	valid := utf8.ValidString(encoded)
	if !valid {
		log.Warn().Str("dir", dir).Msg("Skipping project directory with non UTF-8 name")
	}

	var p project
	if valid {
		p = sc.ix.resolve(encoded, dir)
	}

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			sc.fail(path, p.name, err)
			return nil
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil || !sc.ix.Matches(rel) {
			return nil
		}
		if !valid {
			sc.skip(path, "", errProjectName)
			return nil
		}
		if !utf8.ValidString(rel) {
			log.Warn().Str("dir", dir).Str("rel", strings.ToValidUTF8(rel, "?")).Msg("Skipping file with non UTF-8 name")
			sc.skip(path, p.name, errFileName)
			return nil
		}
		sc.file(ctx, p, path, d)
		return nil
	})
	if err != nil {
		log.Warn().Err(err).Str("dir", dir).Msg("Cannot read project directory")
		sc.summary.Errors++
	}
}

// file classifies and, when needed, indexes one candidate document.
func (sc *scan) file(ctx context.Context, p project, path string, d fs.DirEntry) {
	info, err := d.Info()
	if err != nil {
		sc.fail(path, p.name, err)
		return
	}
	sc.seen[path] = true
	mtime := info.ModTime().Unix()

	stamp, known := sc.stamps[path]
	action := ActionNew
	if known {
		if stamp.MtimeSecs == mtime {
			sc.summary.Unchanged++
			return
		}
		action = ActionUpdated
	}

	if !sc.opts.DryRun {
		if err := sc.index(ctx, p, path, mtime); err != nil {
			sc.fail(path, p.name, err)
			return
		}
	}

	if action == ActionNew {
		sc.summary.New++
	} else {
		sc.summary.Updated++
	}
	sc.summary.Files = append(sc.summary.Files, FileResult{Path: path, Project: p.name, Action: action})
}

func (sc *scan) index(ctx context.Context, p project, path string, mtime int64) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if !utf8.Valid(data) {
		return fmt.Errorf("%w: file is not valid UTF-8", store.ErrInvalidInput)
	}
	content := string(data)
	title := markdown.Title(content)
	if title == "" {
		title = UntitledTitle
	}

	_, err = sc.ix.store.UpsertIndexedFile(ctx, model.IndexedFile{
		SourcePath:    path,
		ProjectPath:   p.realPath,
		ProjectName:   p.name,
		Title:         title,
		Content:       content,
		FileMtimeSecs: mtime,
	})
	return err
}

// fail records a per-file error.
func (sc *scan) fail(path, projectName string, err error) {
	sc.ix.logger.Warn().Err(err).Str("path", path).Msg("Skipping file")
	sc.summary.Errors++
	sc.summary.Skipped++
	sc.summary.Files = append(sc.summary.Files, FileResult{Path: path, Project: projectName, Action: ActionSkipped, Error: err.Error()})
}

const (
	errProjectName = "project directory name is not valid UTF-8"
	errFileName    = "file name is not valid UTF-8"
)

// skip records a candidate that is left out without being read. Its row, if any,
// is kept.
func (sc *scan) skip(path, projectName, reason string) {
	sc.summary.Skipped++
	sc.summary.Files = append(sc.summary.Files, FileResult{Path: path, Project: projectName, Action: ActionSkipped, Error: reason})
}

// single indexes opts.SinglePath. The file's project is the first directory below
// the root when the file is under it, otherwise the file's parent directory.
func (sc *scan) single(ctx context.Context) error {
	path, err := filepath.Abs(sc.opts.SinglePath)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBadPath, err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBadPath, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%w: %s is not a regular file", ErrBadPath, path)
	}

	dir := filepath.Dir(path)
	if rel, err := filepath.Rel(sc.opts.Root, path); err == nil && !strings.HasPrefix(rel, "..") {
		if first, _, ok := strings.Cut(filepath.ToSlash(rel), "/"); ok {
			dir = filepath.Join(sc.opts.Root, first)
		}
	}
	encoded := filepath.Base(dir)
	if !utf8.ValidString(encoded) {
		sc.skip(path, "", errProjectName)
		return nil
	}
	if rel, err := filepath.Rel(dir, path); err != nil || !utf8.ValidString(rel) {
		sc.skip(path, "", errFileName)
		return nil
	}

	sc.file(ctx, sc.ix.resolve(encoded, dir), path, fs.FileInfoToDirEntry(info))
	return nil
}

// prune removes rows under the root whose source file is gone. Files that exist but
// were not scanned (unreadable directories, changed patterns) are kept.
func (sc *scan) prune(ctx context.Context) error {
	var ids []string
	for path, stamp := range sc.stamps {
		if sc.seen[path] {
			continue
		}
		if _, err := os.Lstat(path); !errors.Is(err, fs.ErrNotExist) {
			continue
		}
		ids = append(ids, stamp.ID)
		sc.summary.Files = append(sc.summary.Files, FileResult{Path: path, Action: ActionPruned})
	}

	if sc.opts.DryRun {
		sc.summary.Pruned = len(ids)
		return nil
	}
	n, err := sc.ix.store.DeleteIndexedFiles(ctx, ids)
	if err != nil {
		return fmt.Errorf("prune index: %w", err)
	}
	sc.summary.Pruned = n
	return nil
}
