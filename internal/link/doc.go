// Package link tracks the availability of the network link used to deliver
// sightings.
//
// The Gate is a small state machine driven by link events from a Provider.
// Tasks that must only run while the link is up block in WaitConnected. When
// the link is lost the Gate asks the Provider to reconnect after a Backoff
// delay, forever.
package link
