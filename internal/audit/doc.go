// Package audit writes an append-only JSON-lines record of every node
// exchange and of coordinator lifecycle actions. The file rotates by size.
package audit
