package pipeline

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// Namer builds collision-free artifact file names. Each name carries a
// UTC timestamp for humans and a short random suffix so two conversions
// of the same granule in the same second never overwrite each other.
type Namer struct {
	clock  clockwork.Clock
	newUID func() string
}

func NewNamer(clock clockwork.Clock) *Namer {
	return &Namer{
		clock: clock,
		newUID: func() string {
			return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
		},
	}
}

// Name returns "<prefix>_<YYYYMMDD_HHMMSS>_<uid>" with ".<ext>" appended
// when ext is non-empty.
func (n *Namer) Name(prefix, ext string) string {
	stamp := n.clock.Now().UTC().Format("20060102_150405")
	name := fmt.Sprintf("%s_%s_%s", prefix, stamp, n.newUID())
	if ext != "" {
		name += "." + ext
	}
	return name
}
