package media

import (
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Scratch is a per-job working directory under the OS temp dir. It holds
// the downloaded source and the transform output until the result is
// published, then is removed wholesale.
type Scratch struct {
	Dir string
}

// NewScratch creates a fresh scratch directory. The random component keeps
// concurrent jobs (and retries of the same job) from colliding.
func NewScratch() (*Scratch, error) {
	dir := filepath.Join(os.TempDir(), "blanklogo-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	return &Scratch{Dir: dir}, nil
}

// Path returns the absolute path for a file inside the scratch directory.
func (s *Scratch) Path(name string) string {
	return filepath.Join(s.Dir, name)
}

// Cleanup removes the scratch directory and everything in it. Safe to call
// multiple times.
func (s *Scratch) Cleanup() {
	if s.Dir != "" {
		os.RemoveAll(s.Dir)
	}
}
