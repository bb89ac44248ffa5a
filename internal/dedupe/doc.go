// Package dedupe recognises repeated keys within a time window. The host API
// uses it to acknowledge a retried X-Request-ID without applying the
// transition twice.
package dedupe
