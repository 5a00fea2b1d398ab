package chat

// DefaultPassword is the password accepted by the stock FixedPassword policy.
const DefaultPassword = "default_password"

// CredentialPolicy decides whether a username/password pair may authenticate.
// Implementations must be safe for concurrent use.
type CredentialPolicy interface {
	Authenticate(username, password string) bool
}

// StaticCredentials authenticates against a fixed username -> password map.
type StaticCredentials map[string]string

func (c StaticCredentials) Authenticate(username, password string) bool {
	stored, ok := c[username]

	return ok && stored == password
}

// FixedPassword accepts any username presenting the one shared password.
type FixedPassword string

func (p FixedPassword) Authenticate(_, password string) bool {
	return password == string(p)
}

// AllowAll accepts every credential pair. Useful in tests and demos.
type AllowAll struct{}

func (AllowAll) Authenticate(_, _ string) bool { return true }
