// Package routing defines the route model and the contracts the route registry is built on.
//
// A Route binds a (path, locale) pair either to a live entity or, once superseded, to the live
// route that replaced it. Histories are a derived view of TargetID and are never persisted.
package routing
