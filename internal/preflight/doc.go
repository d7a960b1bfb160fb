// Package preflight provides startup readiness checks for the directories,
// binaries, and external services reel depends on.
//
// The daemon runs RunAll once at boot: a failed required check (directories,
// binaries) aborts startup, while a failed optional check (service
// reachability) is logged and tolerated, since transient outages heal through
// normal job retries. The CLI status command reuses the individual check
// functions to display environment health.
package preflight
