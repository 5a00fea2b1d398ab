package capwire

import "github.com/wagiedev/capwire-go/internal/config"

// Transport moves whole textual frames between a duplex peer and the other
// side of a connection. Implement this to provide custom transports for
// testing, mocking, or alternative channels.
//
// The stock implementation speaks WebSocket with one frame per socket
// message; ChatServer and DialChat install it automatically.
type Transport = config.Transport
