// Package notifications covers everything that leaves the pipeline after
// analysis: the notify stage publishing to the operator channel, best-effort
// downstream completion triggers, and the per-subject trigger debouncer.
//
// The operator channel publishes to an ntfy-style topic and degrades to a
// no-op when unconfigured. Triggers never affect job outcome; the notify
// stage, by contrast, fails the job when its publish fails.
package notifications
