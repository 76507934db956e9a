package sim

import "github.com/baldhumanity/neat-flappy/internal/game"

// Entrant is one decision function entered into an episode. Fitness points at
// the accumulator owned by the caller; the episode only ever adds to it.
type Entrant struct {
	ID         int
	Controller Controller
	Fitness    *float64
}

// Member is an entrant flying in an episode.
type Member struct {
	Entrant
	Slot int // position in the entrant list; stable for the episode
	Bird *game.Bird

	alive bool
}

// Alive reports whether the member is still flying.
func (m *Member) Alive() bool {
	return m.alive
}

// Cohort holds every member of an episode in one arena. A bird, its controller
// and its fitness live in the same record, so they are always removed together.
// Kill only tags a member; Reap drops tagged members by swap and truncate.
type Cohort struct {
	members []Member
	dead    int
}

// NewCohort creates one bird at (x, y) per entrant.
func NewCohort(entrants []Entrant, x, y float64) *Cohort {
	c := &Cohort{members: make([]Member, len(entrants))}
	for i, e := range entrants {
		c.members[i] = Member{Entrant: e, Slot: i, Bird: game.NewBird(x, y), alive: true}
	}
	return c
}

// Len returns the number of live members.
func (c *Cohort) Len() int {
	return len(c.members) - c.dead
}

// ForEachAlive calls fn for every live member. Members killed during the
// walk are skipped from then on.
func (c *Cohort) ForEachAlive(fn func(m *Member)) {
	for i := range c.members {
		if c.members[i].alive {
			fn(&c.members[i])
		}
	}
}

// Kill tags m dead. It is removed by the next Reap.
func (c *Cohort) Kill(m *Member) {
	if m.alive {
		m.alive = false
		c.dead++
	}
}

// Reap removes dead members and returns how many were removed.
func (c *Cohort) Reap() int {
	removed := 0
	for i := 0; i < len(c.members); {
		if c.members[i].alive {
			i++
			continue
		}
		last := len(c.members) - 1
		c.members[i] = c.members[last]
		c.members = c.members[:last]
		removed++
	}
	c.dead = 0
	return removed
}

// Lead returns the frontmost live member, preferring the lowest slot on ties,
// or nil when no member is alive.
func (c *Cohort) Lead() *Member {
	var lead *Member
	c.ForEachAlive(func(m *Member) {
		if lead == nil || m.Bird.X > lead.Bird.X || (m.Bird.X == lead.Bird.X && m.Slot < lead.Slot) {
			lead = m
		}
	})
	return lead
}
