// Package lock enforces one daemon per axis through a PID file guarded by an
// advisory flock.
//
// The file lives at {dir}/{base}-{axis} and holds the owner's PID followed by
// a newline. Acquire refuses when a live process already owns the file,
// overwrites stale files left by dead processes, and returns a Handle owned
// by the caller. Verify lets a long-running daemon notice that its file was
// deleted or rewritten underneath it. Query is read-only and never creates
// the file.
package lock
