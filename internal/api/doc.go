// Package api defines the wire types and service layer the coordination
// daemon serves over HTTP. Labelers on separate machines claim, release, and
// commit manifest entries through it against one shared store.
package api
