// Package daemon coordinates the long-running reel process.
//
// It wires configuration, the job store, and the workflow manager into a
// single lifecycle with flock-based locking to prevent multiple instances.
// Startup runs preflight and crash recovery before the scheduler admits
// anything; shutdown drains in-flight jobs inside the configured window. The
// daemon also serves the HTTP health endpoint.
//
// Keep orchestration logic here: pipeline steps live in their own packages
// while the daemon focuses on startup, shutdown, and coordination.
package daemon
