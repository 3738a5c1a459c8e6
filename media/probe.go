package media

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os/exec"
	"strconv"
	"time"

	"github.com/IsaiahDupree/BlankLogo-sub004/fault"
)

// Info is the subset of ffprobe output the transform pipeline needs.
type Info struct {
	Width     int
	Height    int
	Duration  time.Duration
	SizeBytes int64
}

// probeOutput mirrors the ffprobe JSON layout.
type probeOutput struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
		Size     string `json:"size"`
	} `json:"format"`
}

// Probe runs ffprobe on path and returns the video geometry and duration.
// A file ffprobe cannot read is FAILED_CODEC; a missing ffprobe binary is
// FAILED_UNKNOWN.
func Probe(ctx context.Context, path string) (*Info, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fault.Wrap(fault.FailedTimeout, ctx.Err(), "ffprobe timed out")
		}
		var execErr *exec.Error
		if errors.As(err, &execErr) {
			return nil, fault.Wrap(fault.FailedUnknown, err, "ffprobe not available")
		}
		return nil, fault.Newf(fault.FailedCodec, "ffprobe failed: %s", stderr.String())
	}

	return parseProbeOutput(stdout.Bytes())
}

func parseProbeOutput(raw []byte) (*Info, error) {
	var out probeOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fault.Wrap(fault.FailedCodec, err, "unreadable ffprobe output")
	}

	info := &Info{}
	for _, s := range out.Streams {
		if s.CodecType == "video" {
			info.Width = s.Width
			info.Height = s.Height
			break
		}
	}
	if info.Width == 0 || info.Height == 0 {
		return nil, fault.New(fault.FailedCodec, "no video stream found")
	}

	if out.Format.Duration != "" {
		secs, err := strconv.ParseFloat(out.Format.Duration, 64)
		if err != nil {
			return nil, fault.Wrap(fault.FailedCodec, err, "unreadable duration")
		}
		info.Duration = time.Duration(secs * float64(time.Second))
	}
	if out.Format.Size != "" {
		if n, err := strconv.ParseInt(out.Format.Size, 10, 64); err == nil {
			info.SizeBytes = n
		}
	}

	return info, nil
}

// CheckLimits validates the probed source against the processing limits.
// Violations are non-retryable FAILED_LIMITS.
func (i *Info) CheckLimits(maxBytes int64, maxDuration time.Duration) error {
	if maxBytes > 0 && i.SizeBytes > maxBytes {
		return fault.Newf(fault.FailedLimits,
			"source size %d exceeds limit %d", i.SizeBytes, maxBytes)
	}
	if maxDuration > 0 && i.Duration > maxDuration {
		return fault.Newf(fault.FailedLimits,
			"source duration %s exceeds limit %s", i.Duration, maxDuration)
	}
	return nil
}
