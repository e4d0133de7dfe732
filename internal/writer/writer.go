// Package writer puts generated artifacts on disk. WriteFile is the plain
// overwrite primitive; Writer.Commit stages a whole module and moves it into
// place so a failed generation leaves the previous files untouched.
package writer

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/sirupsen/logrus"

	"github.com/matthewbaird/dashgen/internal/codegen"
)

// WorkDir is the directory under the project root that holds staging and
// backup trees while a commit is in flight.
const WorkDir = ".dashgen"

const idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// CommitError reports the step and path at which a commit failed. By the time
// it is returned the tree has been rolled back.
type CommitError struct {
	Op   string
	Path string
	Err  error
}

func (e *CommitError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("commit %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("commit %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *CommitError) Unwrap() error { return e.Err }

// WriteFile writes content to root/relPath, creating parent directories and
// overwriting any existing file.
func WriteFile(root, relPath, content string) error {
	target := filepath.Join(root, filepath.FromSlash(relPath))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", relPath, err)
	}
	if err := os.WriteFile(target, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", relPath, err)
	}
	return nil
}

// Writer commits artifact sets under one project root. Commits from the same
// Writer are serialised.
type Writer struct {
	root   string
	log    logrus.FieldLogger
	mu     sync.Mutex
	rename func(oldpath, newpath string) error
}

// New returns a Writer rooted at root.
func New(root string, log logrus.FieldLogger) *Writer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Writer{root: root, log: log, rename: os.Rename}
}

// Root returns the project root.
func (w *Writer) Root() string { return w.root }

// CheckPaths rejects artifact paths that are absolute, escape the root,
// point into the work directory or repeat.
func CheckPaths(arts []codegen.Artifact) error {
	seen := make(map[string]bool, len(arts))
	for _, a := range arts {
		p := filepath.FromSlash(a.Path)
		if !filepath.IsLocal(p) {
			return &CommitError{Op: "validate", Path: a.Path, Err: errors.New("path is not local to the project root")}
		}
		clean := filepath.Clean(p)
		if hasPrefixDir(clean, WorkDir) {
			return &CommitError{Op: "validate", Path: a.Path, Err: errors.New("path is inside the work directory")}
		}
		if seen[clean] {
			return &CommitError{Op: "validate", Path: a.Path, Err: errors.New("duplicate path")}
		}
		seen[clean] = true
	}
	return nil
}

func hasPrefixDir(p, dir string) bool {
	for p != "." && p != string(filepath.Separator) {
		if p == dir {
			return true
		}
		p = filepath.Dir(p)
	}
	return false
}

type placed struct {
	target string
	backup string // empty when the target did not exist
}

// Commit writes every artifact or none of them. Files are first written to
// a staging tree, existing targets are moved to a backup tree, and the staged
// files are renamed into place. Any failure restores the backups and removes
// the new files and directories.
func (w *Writer) Commit(arts []codegen.Artifact) (err error) {
	if err := CheckPaths(arts); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	id, err := gonanoid.Generate(idAlphabet, 12)
	if err != nil {
		return &CommitError{Op: "stage", Err: err}
	}
	work := filepath.Join(w.root, WorkDir)
	stage := filepath.Join(work, "stage-"+id)
	backup := filepath.Join(work, "backup-"+id)
	log := w.log.WithFields(logrus.Fields{"commit": id, "files": len(arts)})

	var created []string
	var done []placed
	defer func() {
		if err != nil {
			w.rollback(log, done, created)
		}
		_ = os.RemoveAll(stage)
		_ = os.RemoveAll(backup)
		_ = os.Remove(work) // only succeeds when empty
	}()

	for _, a := range arts {
		if werr := WriteFile(stage, a.Path, a.Content); werr != nil {
			return &CommitError{Op: "stage", Path: a.Path, Err: werr}
		}
	}

	for _, a := range arts {
		rel := filepath.FromSlash(a.Path)
		target := filepath.Join(w.root, rel)
		dirs, merr := mkdirAll(filepath.Dir(target))
		created = append(created, dirs...)
		if merr != nil {
			return &CommitError{Op: "mkdir", Path: a.Path, Err: merr}
		}

		p := placed{target: target}
		if _, serr := os.Lstat(target); serr == nil {
			p.backup = filepath.Join(backup, rel)
			if merr := os.MkdirAll(filepath.Dir(p.backup), 0o755); merr != nil {
				return &CommitError{Op: "backup", Path: a.Path, Err: merr}
			}
			if rerr := w.rename(target, p.backup); rerr != nil {
				return &CommitError{Op: "backup", Path: a.Path, Err: rerr}
			}
		} else if !errors.Is(serr, fs.ErrNotExist) {
			return &CommitError{Op: "stat", Path: a.Path, Err: serr}
		}
		// Recorded before the move so a failed move still restores the backup.
		done = append(done, p)

		if rerr := w.rename(filepath.Join(stage, rel), target); rerr != nil {
			return &CommitError{Op: "rename", Path: a.Path, Err: rerr}
		}
	}
	log.Debug("commit applied")
	return nil
}

func (w *Writer) rollback(log logrus.FieldLogger, done []placed, created []string) {
	for i := len(done) - 1; i >= 0; i-- {
		p := done[i]
		if err := os.Remove(p.target); err != nil && !errors.Is(err, fs.ErrNotExist) {
			log.WithError(err).WithField("path", p.target).Warn("rollback: removing new file")
		}
		if p.backup == "" {
			continue
		}
		if err := os.Rename(p.backup, p.target); err != nil {
			log.WithError(err).WithField("path", p.target).Error("rollback: restoring backup")
		}
	}
	for i := len(created) - 1; i >= 0; i-- {
		_ = os.Remove(created[i])
	}
	log.Warn("commit rolled back")
}

// mkdirAll is os.MkdirAll that also returns the directories it created,
// outermost first.
func mkdirAll(dir string) ([]string, error) {
	var missing []string
	for d := dir; ; d = filepath.Dir(d) {
		if _, err := os.Stat(d); err == nil {
			break
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		missing = append(missing, d)
		if filepath.Dir(d) == d {
			break
		}
	}
	var created []string
	for i := len(missing) - 1; i >= 0; i-- {
		if err := os.Mkdir(missing[i], 0o755); err != nil && !errors.Is(err, fs.ErrExist) {
			return created, err
		}
		created = append(created, missing[i])
	}
	return created, nil
}
