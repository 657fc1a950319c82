// Package protocol holds the GGDirect wire data model shared by the frame,
// handshake, and session packages: cell records, cell buffers, and the fixed
// sizes of every wire structure.
//
// GGDirect is a terminal-rendering transport. After a role-reversal
// handshake (see the handshake package) a client streams cell-buffer
// updates: an 8-byte dimension frame followed by width*height fixed 10-byte
// cell records, terminated by a zero-sized dimension frame.
package protocol
