package chat

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/wagiedev/capwire-go/internal/captable"
	"github.com/wagiedev/capwire-go/internal/dispatch"
)

// Session is a per-user capability minted by Directory.auth. All of its
// methods act as the username the session was bound to at mint time.
type Session struct {
	state    *State
	username string
	methods  *dispatch.Set
}

var _ captable.Target = (*Session)(nil)

// NewSession creates a session capability bound to username.
func NewSession(log *slog.Logger, state *State, username string) *Session {
	s := &Session{
		state:    state,
		username: username,
	}

	s.methods = dispatch.NewSet(log.With("component", "session", "user", username)).
		Register("sendMessage", dispatch.Method{
			Params: []dispatch.Param{
				dispatch.String("message", "message must be a string"),
			},
			ArityMessage: "`sendMessage` expects <message>",
			Handler:      s.sendMessage,
		}).
		Register("receiveMessages", dispatch.Method{
			ArityMessage: "`receiveMessages` does not take arguments",
			Handler:      s.receiveMessages,
		}).
		Register("whoami", dispatch.Method{
			IgnoreArgs: true,
			Handler:    s.whoami,
		}).
		Register("registerNick", dispatch.Method{
			Params: []dispatch.Param{
				dispatch.String("nickname", "nickname must be a string"),
				dispatch.String("password", "password must be a string"),
			},
			ArityMessage: "`registerNick` expects <nickname>, <password>",
			Handler:      s.registerNick,
		}).
		Register("identifyNick", dispatch.Method{
			Params: []dispatch.Param{
				dispatch.String("nickname", "nickname must be a string"),
				dispatch.String("password", "password must be a string"),
			},
			ArityMessage: "`identifyNick` expects <nickname>, <password>",
			Handler:      s.identifyNick,
		}).
		Register("checkNick", dispatch.Method{
			Params: []dispatch.Param{
				dispatch.String("nickname", "nickname must be a string"),
			},
			ArityMessage: "`checkNick` expects <nickname>",
			Handler:      s.checkNick,
		})

	return s
}

// Username returns the identity the session acts as.
func (s *Session) Username() string { return s.username }

// Call implements captable.Target.
func (s *Session) Call(ctx context.Context, method string, args []any) (any, error) {
	return s.methods.Invoke(ctx, method, args)
}

func (s *Session) sendMessage(_ context.Context, args []any) (any, error) {
	body := args[0].(string)

	s.state.Record(s.username, body)

	return map[string]any{"status": "ok", "echo": body}, nil
}

func (s *Session) receiveMessages(_ context.Context, _ []any) (any, error) {
	log := s.state.Snapshot()

	messages := make([]any, 0, len(log))
	for _, msg := range log {
		messages = append(messages, map[string]any{
			"from":      msg.From,
			"body":      msg.Body,
			"timestamp": msg.Timestamp,
		})
	}

	return map[string]any{"messages": messages}, nil
}

func (s *Session) whoami(_ context.Context, _ []any) (any, error) {
	return map[string]any{"username": s.username}, nil
}

func (s *Session) registerNick(_ context.Context, args []any) (any, error) {
	nickname := args[0].(string)
	password := args[1].(string)

	if err := s.state.RegisterNick(nickname, password, s.username); err != nil {
		return map[string]any{"status": "error", "message": err.Error()}, nil
	}

	return map[string]any{
		"status":  "ok",
		"message": fmt.Sprintf("Nickname '%s' registered successfully", nickname),
	}, nil
}

func (s *Session) identifyNick(_ context.Context, args []any) (any, error) {
	nickname := args[0].(string)
	password := args[1].(string)

	owner, err := s.state.IdentifyNick(nickname, password)
	if err != nil {
		return map[string]any{"status": "error", "message": err.Error()}, nil
	}

	if owner != s.username {
		return map[string]any{"status": "error", "message": "You are not the owner of this nickname"}, nil
	}

	return map[string]any{
		"status":  "ok",
		"message": fmt.Sprintf("Successfully identified as '%s'", nickname),
	}, nil
}

func (s *Session) checkNick(_ context.Context, args []any) (any, error) {
	nickname := args[0].(string)

	return map[string]any{
		"status":     "ok",
		"registered": s.state.NickRegistered(nickname),
	}, nil
}
