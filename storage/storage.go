package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/IsaiahDupree/BlankLogo-sub004/id"
)

// Uploader publishes a processed video and returns its public URL.
// Implementations must be idempotent: uploading the same key twice
// replaces the object rather than failing.
type Uploader interface {
	Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
}

// ResultKey builds the deterministic object key for a job's output:
// processed/{jobID}/{filename}. The filename is flattened to its base and
// defaulted so user-supplied names can't traverse out of the job's prefix.
func ResultKey(jobID id.JobID, filename string) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "" || name == "." || name == "/" || name == ".." {
		name = "output.mp4"
	}
	return fmt.Sprintf("processed/%s/%s", jobID, name)
}
