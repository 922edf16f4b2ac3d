// Package ledger keeps a bbolt database of issued license keys. Only the
// issuing tools use it; the desktop app never reads it.
package ledger
