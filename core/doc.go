// Package core defines the provider-neutral data model shared by every
// Relay subsystem: messages and content blocks, driver request/response
// types, the streaming event union, and the error taxonomy with its
// classifier.
//
// Nothing in core talks to the network. Drivers translate these types to
// and from provider wire formats, the stream package turns raw bytes into
// events, and the resilience package decides whether a call is attempted
// at all.
package core
