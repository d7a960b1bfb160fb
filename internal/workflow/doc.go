// Package workflow contains the scheduler and pipeline orchestrator.
//
// The Manager polls the queue on a fixed interval, admits as many eligible
// jobs as the concurrency budget allows, and runs each admitted job through
// the fixed stage sequence in its own goroutine. Admission is guarded by the
// store's compare-and-swap claim, stage retries happen only through
// re-admission, and shutdown drains in-flight jobs rather than cancelling
// them.
package workflow
