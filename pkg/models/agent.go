package models

// Agent is a capability-tagged worker descriptor. Capacity consumption is
// tracked by the agent manager, never on the descriptor itself.
type Agent struct {
	// ID is the unique identifier for this agent.
	ID string `json:"id" yaml:"id"`
	// Name is the display name.
	Name string `json:"name" yaml:"name"`
	// Capabilities lists the skill tags this agent offers.
	Capabilities []string `json:"capabilities,omitempty" yaml:"capabilities"`
	// MaxConcurrent is the maximum number of tasks assigned at once (>= 1).
	MaxConcurrent int `json:"max_concurrent" yaml:"max_concurrent"`
}

// HasAnyCapability reports whether the agent offers at least one of the
// required tags. An empty requirement matches every agent.
func (a Agent) HasAnyCapability(required []string) bool {
	if len(required) == 0 {
		return true
	}
	for _, r := range required {
		for _, c := range a.Capabilities {
			if c == r {
				return true
			}
		}
	}
	return false
}
