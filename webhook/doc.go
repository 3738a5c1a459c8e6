// Package webhook builds, signs, and delivers job event notifications to
// caller-supplied URLs.
//
// Deliveries are signed with HMAC-SHA256 over the raw body when the job
// carries a secret, retried up to three times with fixed delays, and
// validated against SSRF: targets resolving to loopback, link-local, or
// private address ranges are refused outright.
//
// Delivery is a best-effort side channel. The [Notifier] runs deliveries
// on background workers so a slow or dead webhook target can never delay
// job finalization or hold a lease past its expiry.
package webhook
