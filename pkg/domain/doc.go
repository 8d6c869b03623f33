// Package domain defines the declarative records consumed by the ramify
// engine: states, transitions and machine definitions, plus the error
// taxonomy and the lifecycle hook surface exposed to embedders.
//
// The structs here are pure data. Validation and compilation into a
// runnable machine happen in internal/runtime; these types only describe
// what the editor or data layer declared.
package domain
