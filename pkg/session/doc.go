/*
Package session owns the table of live traversal sessions.

The Manager creates sessions, serializes their steps behind a per-session lock,
journals every emitted event and, when a store is configured, checkpoints each
session so it can be restored by a later process or another replica.
*/
package session
