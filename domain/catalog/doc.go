// Package catalog provides the Collection and Item value types, their JSON
// encoding, inferred links and the error kinds shared by every storage
// backend.
//
// Encoding follows one rule: a member is written only when it was set.
// Pointer fields distinguish unset from empty strings, and slices and maps
// use omitzero so an explicit empty list is echoed while an absent one is not.
// Members not declared by a type are kept in Extra and written back verbatim.
package catalog
