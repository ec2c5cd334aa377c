// Package storage declares the local persistence contracts of the client.
// boltdb is the only implementation; the sync engine and the CLI depend on
// these interfaces.
package storage

import "errors"

var (
	// ErrNoSession returned when nobody is logged in on this device
	ErrNoSession       = errors.New("no saved session")
	ErrEntityNotFound  = errors.New("entity not found")
	ErrEntityExists    = errors.New("entity already exists")
	ErrPendingNotFound = errors.New("pending mutation not found")
	ErrStorageClosed   = errors.New("storage is closed")
)
