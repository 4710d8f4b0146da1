/*
Package client rebuilds traversal state on the consuming side of a session.

Apply is a pure reducer from an event prefix to visualization state. A Driver
issues steps over a Transport, keeps at most one step outstanding and can
auto-play at a fixed interval.
*/
package client
