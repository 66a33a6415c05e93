package timers

import "github.com/jonboulle/clockwork"

// Clock is the time source the registries schedule against. Production code
// passes clockwork.NewRealClock(); tests drive a *clockwork.FakeClock.
type Clock = clockwork.Clock
