// Package blanklogo provides the job processing and delivery core for the
// BlankLogo watermark-removal service. Jobs describe a source video and a
// requested removal strategy; workers fetch the source, transform it (pixel
// crop or model-based inpainting with automatic fallback), persist progress,
// and notify subscribers of the outcome via signed webhooks.
//
// # Architecture
//
// Each subsystem lives in its own package: job (entity, state machine, store
// contract), fault (error taxonomy), backoff (retry delays), media (source
// acquisition), transform (strategy router), storage (artifact upload),
// webhook (signed delivery), worker (pool + pipeline), and store (memory,
// redis, postgres, mongo backends). The engine package wires them together,
// and api exposes them over HTTP.
//
// All entity IDs use TypeID — type-prefixed, K-sortable, UUIDv7-based
// identifiers ("job_01h2x…").
//
// # Quick Start
//
//	eng, err := engine.Build(memstore.New(), blanklogo.DefaultConfig(), logger,
//	    engine.WithUploader(uploader),
//	)
//	if err != nil { ... }
//	eng.Start(ctx)
//	defer eng.Stop(ctx)
package blanklogo
