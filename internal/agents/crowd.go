package agents

// Crowd is the roster of every human in a run, in spawn order.
type Crowd struct {
	Humans []*Human
	byID   map[AgentID]*Human
}

// Counts summarises the crowd's lifecycle states.
type Counts struct {
	Total     int `json:"total"`
	Alive     int `json:"alive"`
	Dead      int `json:"dead"`
	Evacuated int `json:"evacuated"`
	Safe      int `json:"safe"`
}

// NewCrowd creates an empty crowd.
func NewCrowd() *Crowd {
	return &Crowd{byID: make(map[AgentID]*Human)}
}

// Add appends humans to the roster.
func (c *Crowd) Add(hs ...*Human) {
	for _, h := range hs {
		c.Humans = append(c.Humans, h)
		c.byID[h.ID] = h
	}
}

// Get returns the human with the given id.
func (c *Crowd) Get(id AgentID) (*Human, bool) {
	h, ok := c.byID[id]
	return h, ok
}

// Len returns the roster size.
func (c *Crowd) Len() int {
	return len(c.Humans)
}

// Counts tallies alive, dead, evacuated and safe humans.
func (c *Crowd) Counts() Counts {
	n := Counts{Total: len(c.Humans)}
	for _, h := range c.Humans {
		if h.Dead {
			n.Dead++
			continue
		}
		n.Alive++
		if h.Evacuated {
			n.Evacuated++
		}
		if h.Safe {
			n.Safe++
		}
	}
	return n
}

// Settled reports whether nobody is still moving: every human is dead or safe.
func (c *Crowd) Settled() bool {
	for _, h := range c.Humans {
		if h.Active() {
			return false
		}
	}
	return true
}
