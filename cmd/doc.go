// Package cmd implements the command-line interface of petlaDB. It opens a
// database on the configured engine for every invocation and exposes the document
// operations and the maintenance utilities as commands.
//
// The package is organized into several subpackages:
//
//   - docs: Collections, indexes and document operations (insert, find, update, ...)
//     and a benchmark of them
//   - admin: Backup, restore, statistics, validation, migration and demo data
//   - util: Configuration, JSON arguments and the database session (internal use)
//
// With the maple engine and --data-file the whole database is loaded from the file
// on start and written back when the command finished.
//
// See petladb -help for a list of all commands.
package cmd
