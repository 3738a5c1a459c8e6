// Package engine wires all BlankLogo subsystems together: the store, the
// hook registry, the middleware chain, the processing router, the webhook
// notifier, and the worker pool. It provides the Enqueue/Cancel/Start/Stop
// operations an application embeds.
//
// This package exists to break the import cycle: the root blanklogo
// package defines Entity and Config (imported by job and the other
// subsystem packages) and so cannot import those packages back. The
// engine package sits above all subsystem packages and below the
// application layer.
package engine
