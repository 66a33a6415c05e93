package timers

import "time"

// PhaseTimerRegistry holds one delayed phase advance per room. The action it
// runs is expected to re-check the room before mutating; nothing cancels an
// entry when its room goes away.
type PhaseTimerRegistry struct {
	reg *registry[string]
}

func NewPhaseTimerRegistry(clock Clock) *PhaseTimerRegistry {
	return &PhaseTimerRegistry{reg: newRegistry[string](clock)}
}

func (p *PhaseTimerRegistry) Arm(roomID string, deadline time.Time, action func()) {
	p.reg.arm(roomID, deadline, action)
}

func (p *PhaseTimerRegistry) Cancel(roomID string) bool {
	return p.reg.cancel(roomID)
}

func (p *PhaseTimerRegistry) Deadline(roomID string) (time.Time, bool) {
	return p.reg.pending(roomID)
}

func (p *PhaseTimerRegistry) Len() int {
	return p.reg.len()
}

// WaitDue blocks until every entry whose deadline has passed has fired and its
// action has returned.
func (p *PhaseTimerRegistry) WaitDue() {
	p.reg.waitDue()
}
