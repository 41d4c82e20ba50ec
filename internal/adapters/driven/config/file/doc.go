// Package file implements the ConfigStore port backed by a TOML file.
//
// Configuration lives at ~/.hearsay/config.toml by default. Keys use
// dot notation (e.g. "embedding.provider") and nested TOML tables are
// flattened on load. A filesystem watcher can reload the store when
// the file changes on disk.
package file
