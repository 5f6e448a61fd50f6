// Package types defines the Library and Repository interfaces, the Book and
// CodexEntry entities, and the standard errors of the Alchemist data layer.
//
// See docs/ARCHITECTURE.md § Main Interface.
package types
