// Package services implements the driving port interfaces.
//
// The engine orchestrates the per-document pipeline: transcript
// resolution, chunking, index construction and querying, with every
// expensive step memoised through the cache manager. Services are pure
// Go and talk to the outside world only through driven ports.
package services
