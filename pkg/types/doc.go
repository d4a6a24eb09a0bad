// Package types defines the value model, entity types, error taxonomy and
// configuration shared by the timecard storage core and its callers.
//
// A query result is a Table of Rows; every column is a Value tagged with
// one of the four storage classes the store distinguishes. Entities are
// plain value structs materialized from Rows by the storage layer.
package types
