package bridge

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// Identity names one bridge. Identities issued by a counter are unique for
// the counter's lifetime.
type Identity struct {
	Label   string
	Session string
	Seq     uint64
}

// Facade returns the facade module identity: <label>#<n>@<session>.
func (id Identity) Facade() string {
	return fmt.Sprintf("%s#%d@%s", id.Label, id.Seq, id.Session)
}

// Reflective returns the reflective module identity.
func (id Identity) Reflective() string {
	return "reflect:" + id.Facade()
}

func (id Identity) String() string {
	return id.Facade()
}

// Counter issues identities from a monotonically increasing sequence that is
// never reset. Thread-safe.
type Counter struct {
	session string
	seq     atomic.Uint64
}

// NewCounter creates a counter tagged with a fresh session id.
func NewCounter() *Counter {
	return &Counter{session: uuid.NewString()[:8]}
}

// Session returns the counter's session tag.
func (c *Counter) Session() string {
	return c.session
}

// Next issues the identity for the next bridge labeled label. The label is
// embedded verbatim and never parsed.
func (c *Counter) Next(label string) Identity {
	return Identity{
		Label:   label,
		Session: c.session,
		Seq:     c.seq.Add(1),
	}
}

var defaultCounter = NewCounter()

// DefaultCounter returns the process-wide counter used when no counter is
// configured.
func DefaultCounter() *Counter {
	return defaultCounter
}
