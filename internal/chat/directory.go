package chat

import (
	"context"
	"log/slog"
	"math"

	"github.com/wagiedev/capwire-go/internal/captable"
	"github.com/wagiedev/capwire-go/internal/dispatch"
	"github.com/wagiedev/capwire-go/internal/rpcerr"
)

// Directory is the well-known entry capability. Its only real method is
// `auth`, which mints a session capability bound to the authenticated user
// and registers it in the capability table.
type Directory struct {
	log     *slog.Logger
	state   *State
	table   *captable.Table
	policy  CredentialPolicy
	methods *dispatch.Set
}

var _ captable.Target = (*Directory)(nil)

// NewDirectory creates the directory capability. The table handle is used to
// allocate ids for and register the sessions auth mints.
func NewDirectory(log *slog.Logger, state *State, table *captable.Table, policy CredentialPolicy) *Directory {
	d := &Directory{
		log:    log.With("component", "directory"),
		state:  state,
		table:  table,
		policy: policy,
	}

	d.methods = dispatch.NewSet(d.log).
		Register("auth", dispatch.Method{
			Params: []dispatch.Param{
				dispatch.String("username", "username must be a string"),
				dispatch.String("password", "password must be a string"),
			},
			ArityMessage: "`auth` expects <username>, <password>",
			Handler:      d.auth,
		})

	return d
}

// Call implements captable.Target.
func (d *Directory) Call(ctx context.Context, method string, args []any) (any, error) {
	switch method {
	case "sendMessage", "receiveMessages":
		return nil, rpcerr.BadRequest("call these methods on the session capability returned by `auth`")
	}

	return d.methods.Invoke(ctx, method, args)
}

func (d *Directory) auth(_ context.Context, args []any) (any, error) {
	username := args[0].(string)
	password := args[1].(string)

	if !d.policy.Authenticate(username, password) {
		d.log.Warn("Rejected credentials", "user", username)

		return nil, rpcerr.BadRequest("invalid credentials")
	}

	id := d.table.AllocateSessionID()
	if id > math.MaxInt64 {
		return nil, rpcerr.Internal("session capability id overflow")
	}

	d.table.Register(id, NewSession(d.log, d.state, username))
	d.state.TrackSession(id, username)

	d.log.Info("Minted session capability", "session_id", id, "user", username)

	return map[string]any{
		"session": map[string]any{"_type": "capability", "id": int64(id)},
		"user":    username,
	}, nil
}
