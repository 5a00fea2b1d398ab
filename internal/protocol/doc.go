// Package protocol implements the duplex personality of the wire protocol.
//
// The package provides a Peer that manages one side of a persistent
// connection. Either side can originate calls against capabilities the other
// side exports, so a Peer is both client and server: it correlates its own
// outbound push/pull pairs with incoming resolve/reject frames, and answers
// the other side's pushes by executing them against the local capability
// table.
//
// The Peer handles:
//   - Sending push+pull pairs with monotonically numbered ids
//   - Receiving and routing resolve/reject frames to waiting calls
//   - Executing incoming pushes and answering their pulls
//   - Answering a pull with resolve(id, null) when nothing is stored for it
//
// Example usage:
//
//	transport := wsrpc.NewTransport(log, conn, 0)
//
//	peer := protocol.NewPeer(log, transport, table, nil)
//	peer.Start(ctx)
//
//	result, err := peer.Call(ctx, 2, "auth", "alice", "password123")
package protocol
