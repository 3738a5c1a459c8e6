package transform

import (
	"context"
	"log/slog"

	"github.com/IsaiahDupree/BlankLogo-sub004/fault"
	"github.com/IsaiahDupree/BlankLogo-sub004/id"
	"github.com/IsaiahDupree/BlankLogo-sub004/job"
	"github.com/IsaiahDupree/BlankLogo-sub004/media"
)

// Request carries everything a strategy needs to transform one job.
type Request struct {
	JobID        id.JobID
	InputPath    string
	OutputPath   string
	Mode         job.Mode
	CropPixels   int
	CropPosition job.Position
	Info         *media.Info
}

// Result reports which strategy produced the output. Note is non-empty
// when the router made a decision worth recording in the job's event log.
type Result struct {
	StrategyUsed string
	Note         string
}

// Router selects and invokes a watermark-removal strategy for a request.
type Router struct {
	cropper *Cropper
	inpaint *InpaintClient
	logger  *slog.Logger
}

// NewRouter creates a Router. inpaint may be nil when no inpainting
// service is configured; inpaint mode then fails with FAILED_PROVIDER and
// auto mode goes straight to crop.
func NewRouter(cropper *Cropper, inpaint *InpaintClient, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{cropper: cropper, inpaint: inpaint, logger: logger}
}

// Process runs the strategy for req.Mode.
//
// In auto mode an inpaint failure of any kind falls back to crop: the job
// still completes, StrategyUsed is "crop", and the inpaint error is
// demoted to a log line and an event note. The fallback never surfaces as
// a job failure and never consumes a retry attempt.
func (r *Router) Process(ctx context.Context, req *Request) (*Result, error) {
	switch req.Mode {
	case job.ModeCrop:
		if err := r.crop(ctx, req); err != nil {
			return nil, err
		}
		return &Result{StrategyUsed: "crop"}, nil

	case job.ModeInpaint:
		if err := r.runInpaint(ctx, req); err != nil {
			return nil, err
		}
		return &Result{StrategyUsed: "inpaint"}, nil

	case job.ModeAuto:
		inpaintErr := r.runInpaint(ctx, req)
		if inpaintErr == nil {
			return &Result{StrategyUsed: "inpaint"}, nil
		}
		// The caller's context is gone; nothing to fall back with.
		if ctx.Err() != nil {
			return nil, inpaintErr
		}

		r.logger.Warn("inpaint failed, falling back to crop",
			slog.String("job_id", req.JobID.String()),
			slog.String("error", inpaintErr.Error()))

		if err := r.crop(ctx, req); err != nil {
			return nil, err
		}
		return &Result{
			StrategyUsed: "crop",
			Note:         "inpaint unavailable, fell back to crop: " + fault.MessageOf(inpaintErr),
		}, nil

	default:
		return nil, fault.Newf(fault.FailedInput, "unknown processing mode %q", req.Mode)
	}
}

func (r *Router) crop(ctx context.Context, req *Request) error {
	return r.cropper.Crop(ctx, req.InputPath, req.OutputPath,
		req.CropPixels, req.CropPosition, req.Info)
}

func (r *Router) runInpaint(ctx context.Context, req *Request) error {
	if r.inpaint == nil {
		return fault.New(fault.FailedProvider, "no inpainting service configured")
	}
	return r.inpaint.Inpaint(ctx, req.JobID, req.InputPath, req.OutputPath,
		req.CropPixels, req.CropPosition)
}
