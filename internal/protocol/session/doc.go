// Package session owns the socket pair produced by a confirmed handshake
// and drives the buffer stream over it.
//
// Ownership boundary:
// - both sockets (data connection, plus the client-side listener)
// - producer side: SendBuffer / Terminate
// - consumer side: Next, a lazy finite sequence of cell buffers
// - reverse direction: input events (SendEvent / ReadEvent)
//
// Sessions share no state with each other; one session per accepted
// connection needs no cross-session locking.
package session
