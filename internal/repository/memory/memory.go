// Package memory provides in-memory repository implementations used by
// unit tests and local development. The appointment store serializes
// check-then-write through a single mutex, giving the same at-most-one
// occupant guarantee per (doctor, date, slot) triple that the postgres
// store gets from its partial unique index.
package memory
