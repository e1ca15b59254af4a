// Package runtime implements a host-facing adapter for driving external
// "agent" processes that speak the Agent Client Protocol (ACP): a
// line-delimited JSON-RPC 2.0 dialect carried over the agent's stdin and
// stdout.
//
// The package spawns one agent subprocess per logical session, performs
// the initialize / session/new handshake, and demultiplexes the agent's
// responses and session/update notifications back to the caller as a
// stream of Event values. It does not implement the reverse direction:
// agent-initiated requests are always declined with "method not
// supported", matching a client that has no file system, terminal, or
// permission capabilities to offer back.
//
// # Basic usage
//
//	reg := runtime.NewRegistry(runtime.ResolvedConfig{
//	    Command: "kiro-cli",
//	    Args:    []string{"acp"},
//	})
//	defer reg.CloseAll()
//
//	handle, err := reg.EnsureSession(ctx, runtime.EnsureSessionInput{
//	    SessionKey: "session-1",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	events, err := reg.RunTurn(ctx, runtime.RunTurnInput{
//	    Handle: handle,
//	    Text:   "list the files in this directory",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for event := range events {
//	    switch e := event.(type) {
//	    case runtime.TextDeltaEvent:
//	        fmt.Print(e.Text)
//	    case runtime.DoneEvent:
//	        fmt.Println("\n[done]", e.StopReason)
//	    }
//	}
package runtime
