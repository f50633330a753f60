// Package routing implements path conflict resolution and route history management.
//
// Manager is the entry point. It never commits: callers run it inside a TxRunner so the
// batch of route writes produced by one Create or Update lands atomically.
package routing
