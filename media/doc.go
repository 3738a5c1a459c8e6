// Package media handles source video acquisition and inspection: a scratch
// workspace per job, an HTTP fetcher with a hard size cap, and an ffprobe
// wrapper that reads the video geometry and duration needed to build crop
// filters and enforce processing limits.
//
// All failures are returned as *fault.Error so the worker can map them to
// retry verdicts: network problems are FAILED_DOWNLOAD, an oversize or
// overlong source is FAILED_LIMITS, and an unreadable container is
// FAILED_CODEC.
package media
