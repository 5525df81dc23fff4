// Package repository implements the catalog and booking stores: MySQL
// repositories for production and an in-memory store for tests and local
// runs.  Lookups that miss return the model sentinels (ErrProductNotFound,
// ErrBookingNotFound); conditional status updates that lose a race return
// model.ErrStatusConflict.
package repository

import "errors"

// ErrConflict is returned when a write collides with an existing row,
// such as inserting a booking under an id that is already taken.
var ErrConflict = errors.New("conflict")
