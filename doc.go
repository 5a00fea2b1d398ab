// Package capwire implements a duplex, capability-based RPC protocol: a
// single wire channel over which either peer can invoke named methods on
// numbered "capabilities" held by the other, receive results asynchronously,
// and be handed brand-new capabilities at runtime (for example a server
// minting a per-session object in response to authentication).
//
// The protocol has two personalities sharing one frame grammar:
//
//   - batch: newline-delimited scripts where every push queues an outcome
//     and every pull dequeues the oldest one (blind FIFO)
//   - duplex: a persistent connection where calls are push+pull pairs
//     correlated by id, and either side may originate calls against
//     capabilities the other side exports
//
// # Batch Mode
//
// Feed a script of frames to a Batch and collect one output line per pull:
//
//	b := capwire.NewBatch()
//	lines, err := b.RunScript(ctx, `["push",["call",1,["add"],[10,20]]]
//	["pull",1]`)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(lines[0]) // ["result",1,30]
//
// A malformed line aborts the whole run with a diagnostic naming the 1-based
// line number; unknown capabilities and methods only queue error outcomes
// consumed by later pulls.
//
// # Duplex Mode
//
// The stock duplex deployment is a WebSocket chat server. Mount a ChatServer
// on an HTTP route and connect ChatClients to it:
//
//	server := capwire.NewChatServer(
//	    capwire.WithLogger(slog.Default()),
//	    capwire.WithCredentials(capwire.StaticCredentials{"alice": "password123"}),
//	)
//	http.Handle("/ws", server)
//
//	client, err := capwire.DialChat(ctx, "ws://localhost:8080/ws")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.OnMessage(func(msg capwire.Message) {
//	    fmt.Printf("[%s] %s\n", msg.From, msg.Body)
//	})
//
//	if _, err := client.Authenticate(ctx, "alice", "password123"); err != nil {
//	    log.Fatal(err)
//	}
//	if err := client.SendMessage(ctx, "hello"); err != nil {
//	    log.Fatal(err)
//	}
//
// Authenticate mints a fresh session capability on the server; every
// session-scoped method is routed through the minted id. Messages sent by
// any client are broadcast to every connection as server-initiated pushes.
//
// For wiring beyond the chat surface, NewPeer runs a bare duplex peer over
// any Transport, and NewRegistry builds the capability table peers and
// batches resolve calls against.
//
// # Capability Id Conventions
//
//   - 1: calculator service
//   - 2: chat directory service (auth)
//   - 0: on a duplex connection, the root capability the remote side exports
//   - >= 10000: session capabilities, minted monotonically by auth
//
// # Error Handling
//
// Protocol-level failures are errors: *RPCError for bad requests, unknown
// methods, and internal faults; *FrameParseError for malformed batch input;
// *RemoteError for rejections received over a duplex connection. Domain-level
// refusals (a taken nickname, a wrong identify password) are successful
// results carrying {"status": "error"} and never surface as Go errors.
package capwire
