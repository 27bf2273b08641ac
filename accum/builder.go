package accum

// Builder can help building controllers.
type Builder struct {
	state              *State
	policy             GrowthPolicy
	initialSplitFactor int
}

// MakeBuilder creates a Builder with the doubling growth policy.
func MakeBuilder() Builder {
	return Builder{
		policy:             Doubling{},
		initialSplitFactor: 1,
	}
}

// WithGrowthPolicy sets the policy that raises the split factor.
func (b Builder) WithGrowthPolicy(p GrowthPolicy) Builder {
	b.policy = p
	return b
}

// WithState sets the state object the controller mutates. Passing a state
// shared with the caller lets the training loop read diagnostics and persist
// the split factor across runs.
func (b Builder) WithState(s *State) Builder {
	b.state = s
	return b
}

// WithInitialSplitFactor seeds the split factor the first attempt uses,
// typically restored from a previous run.
func (b Builder) WithInitialSplitFactor(k int) Builder {
	b.initialSplitFactor = k
	return b
}

func (b Builder) parametersMustBeValid() {
	if b.policy == nil {
		panic("a growth policy is required")
	}

	if b.initialSplitFactor < 1 {
		panic("the initial split factor must be at least 1")
	}
}

// Build builds the controller.
func (b Builder) Build(name string) *Controller {
	b.parametersMustBeValid()

	c := new(Controller)
	c.name = name
	c.policy = b.policy

	c.state = b.state
	if c.state == nil {
		c.state = NewState()
	}

	c.state.Seed(b.initialSplitFactor)

	return c
}
