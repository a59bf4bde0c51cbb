// Package store provides a registry of named cells.
//
// The registry gives transport and persistence layers a uniform,
// type-erased view of a reactive graph: read any registered cell by
// name, set registered sources from JSON payloads, and watch every
// registered cell through one fan-in callback. The live server and the
// snapshot runner are both built on this package.
package store
