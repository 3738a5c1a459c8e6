// Package transform implements the watermark-removal strategies and the
// router that selects between them.
//
// Two concrete strategies exist: a local ffmpeg pixel-crop that shaves the
// watermarked edge off the frame, and a remote GPU inpainting service that
// reconstructs the pixels under the watermark. The [Router] maps a job's
// requested mode onto them:
//
//	crop    → always crop
//	inpaint → always inpaint; inpaint failures fail the job
//	auto    → try inpaint, fall back to crop on any inpaint failure
//
// The auto fallback is a quality downgrade, not an error: the job completes
// with StrategyUsed "crop" and a note in its event log, and no retry
// attempt is consumed.
package transform
