package net

// Tick is a logical simulation step counter. Ticks issued by different peers
// are not comparable; they only order snapshots from the same sender.
type Tick uint64

// TickSource issues ticks for the local process during one match.
// The zero value is ready to use.
type TickSource struct {
	last Tick
}

// Next returns a tick strictly greater than every tick previously returned
// since the last Reset.
func (s *TickSource) Next() Tick {
	s.last++
	return s.last
}

// Last returns the most recently issued tick, or 0 if none was issued.
func (s *TickSource) Last() Tick {
	return s.last
}

// Reset starts the sequence over for a new match.
func (s *TickSource) Reset() {
	s.last = 0
}

// ClientTicks tracks the newest applied snapshot tick per player. It is the
// staleness filter for the unreliable lane. The zero value is ready to use.
type ClientTicks struct {
	latest map[int]Tick
}

// NewClientTicks returns an empty tracker.
func NewClientTicks() *ClientTicks {
	return &ClientTicks{latest: make(map[int]Tick)}
}

// IsLatest reports whether t is newer than anything seen for playerIdx.
// When it is, t becomes the new high-water mark. Otherwise nothing changes.
func (c *ClientTicks) IsLatest(playerIdx int, t Tick) bool {
	if c.latest == nil {
		c.latest = make(map[int]Tick)
	}
	if last, ok := c.latest[playerIdx]; ok && t <= last {
		return false
	}
	c.latest[playerIdx] = t
	return true
}

// Latest returns the high-water mark for playerIdx.
func (c *ClientTicks) Latest(playerIdx int) (Tick, bool) {
	t, ok := c.latest[playerIdx]
	return t, ok
}

// Forget drops the high-water mark for playerIdx. Call it when the index
// changes hands: the new peer's tick source restarts at 1.
func (c *ClientTicks) Forget(playerIdx int) {
	delete(c.latest, playerIdx)
}

// Reset drops every high-water mark.
func (c *ClientTicks) Reset() {
	c.latest = make(map[int]Tick)
}
