package transform

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"

	"github.com/IsaiahDupree/BlankLogo-sub004/fault"
	"github.com/IsaiahDupree/BlankLogo-sub004/job"
	"github.com/IsaiahDupree/BlankLogo-sub004/media"
)

// CropFilter builds the ffmpeg -vf expression that removes pixels from one
// edge of a width×height frame.
func CropFilter(width, height, pixels int, pos job.Position) string {
	switch pos {
	case job.PositionTop:
		return fmt.Sprintf("crop=%d:%d:0:%d", width, height-pixels, pixels)
	case job.PositionLeft:
		return fmt.Sprintf("crop=%d:%d:%d:0", width-pixels, height, pixels)
	case job.PositionRight:
		return fmt.Sprintf("crop=%d:%d:0:0", width-pixels, height)
	default: // bottom
		return fmt.Sprintf("crop=%d:%d:0:0", width, height-pixels)
	}
}

// Cropper runs the local ffmpeg pixel-crop strategy.
type Cropper struct{}

// NewCropper creates a Cropper.
func NewCropper() *Cropper { return &Cropper{} }

// Crop re-encodes input to output with the watermarked edge removed. The
// audio track is copied untouched and the moov atom is moved up front so
// the output streams immediately.
func (c *Cropper) Crop(ctx context.Context, input, output string, pixels int, pos job.Position, info *media.Info) error {
	if err := validateCrop(pixels, pos, info); err != nil {
		return err
	}

	filter := CropFilter(info.Width, info.Height, pixels, pos)

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-y",
		"-i", input,
		"-vf", filter,
		"-c:a", "copy",
		"-movflags", "+faststart",
		output,
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fault.Wrap(fault.FailedTimeout, ctx.Err(), "crop transform timed out")
		}
		var execErr *exec.Error
		if errors.As(err, &execErr) {
			return fault.Wrap(fault.FailedUnknown, err, "ffmpeg not available")
		}
		return fault.Newf(fault.FailedCodec, "ffmpeg crop failed: %s", truncate(stderr.String(), 512))
	}
	return nil
}

// validateCrop rejects crops that would remove the whole frame.
func validateCrop(pixels int, pos job.Position, info *media.Info) error {
	if pixels <= 0 {
		return fault.Newf(fault.FailedInput, "crop pixels must be positive, got %d", pixels)
	}
	dim := info.Height
	if pos == job.PositionLeft || pos == job.PositionRight {
		dim = info.Width
	}
	if pixels >= dim {
		return fault.Newf(fault.FailedInput,
			"crop of %dpx from %s would consume the %dpx frame", pixels, pos, dim)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
