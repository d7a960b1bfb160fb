// Package queue persists recording jobs in SQLite and exposes helpers for
// driving their lifecycle.
//
// The Store manages database connections, schema initialization, stats
// queries, stuck-job recovery, and the compare-and-swap claim that hands a job
// to exactly one orchestrator run. Jobs accumulate payload fields stage by
// stage (transcoded reference, storage URL, transcript, analysis) so a retried
// attempt resumes where the previous one failed instead of restarting.
//
// Status changes go through the named transition methods on Job; the
// transition table rejects illegal moves such as pending straight to
// completed. Treat this package as the single source of truth for job
// semantics; when you add payload fields, update schema.sql and bump
// schemaVersion.
package queue
