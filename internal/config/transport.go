// Package config provides configuration types shared by the engine surfaces.
package config

import "context"

// Transport moves whole textual frames between a protocol peer and the other
// side of a connection. Implement this to provide custom transports for
// testing, mocking, or alternative channels.
//
// The stock implementation speaks WebSocket with one frame per socket
// message.
type Transport interface {
	// ReadFrames returns channels for receiving frames and errors.
	// Both channels are closed when reading completes or an error occurs.
	// A read error is terminal: no more frames follow it.
	ReadFrames(ctx context.Context) (<-chan []byte, <-chan error)

	// SendFrame writes one complete textual frame to the peer.
	// This method must be safe for concurrent use.
	SendFrame(ctx context.Context, data []byte) error

	// Close terminates the transport and releases resources.
	// It's safe to call Close multiple times.
	Close() error
}
