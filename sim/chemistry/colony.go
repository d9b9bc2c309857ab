package chemistry

// Molecules of a colony.
const (
	Nutrient Molecule = "nutrient"
	Biomass  Molecule = "biomass"
)

// ColonyConfig describes a colony of cells that turn nutrient into biomass,
// divide when they are big enough, and sometimes die.
type ColonyConfig struct {
	Seed uint64 `yaml:"-"`

	InitialNutrient float64 `yaml:"initial_nutrient"`
	GrowthRate      float64 `yaml:"growth_rate"`
	DivisionSize    float64 `yaml:"division_size"`
	DivisionRate    float64 `yaml:"division_rate"`
	DeathRate       float64 `yaml:"death_rate"`

	// FeedRate is the rate of a global reaction that gives one unit of
	// nutrient to every cell. Zero disables feeding.
	FeedRate float64 `yaml:"feed_rate"`

	// MaxCells ends the simulation once the colony is that big. Zero means
	// no limit.
	MaxCells int `yaml:"max_cells"`
}

// DefaultColonyConfig returns a colony that doubles about every few time
// units.
func DefaultColonyConfig() ColonyConfig {
	return ColonyConfig{
		InitialNutrient: 40,
		GrowthRate:      0.5,
		DivisionSize:    10,
		DivisionRate:    2,
		DeathRate:       0.01,
		FeedRate:        1,
		MaxCells:        64,
	}
}

// NewColony creates an environment with a single cell. The simulation ends
// when the colony reaches its maximum size or dies out.
func NewColony(cfg ColonyConfig) *Environment {
	env := NewEnvironment()

	cell := env.NewNode()
	cell.SetConcentration(Nutrient, cfg.InitialNutrient)

	grow := MakeReactionBuilder().
		WithName("grow").
		WithSeed(cfg.Seed).
		WithRate(cfg.GrowthRate).
		WithReactants(Nutrient).
		WithAction(ChangeConcentration{Molecule: Nutrient, Delta: -1}).
		WithAction(ChangeConcentration{Molecule: Biomass, Delta: 1})
	divide := MakeReactionBuilder().
		WithName("divide").
		WithSeed(cfg.Seed).
		WithRate(cfg.DivisionRate).
		WithCondition(ConcentrationAtLeast{
			Molecule:  Biomass,
			Threshold: cfg.DivisionSize,
		}).
		WithAction(SplitNode{})

	cell.AddReaction(grow.Build(env, cell))
	cell.AddReaction(divide.Build(env, cell))

	if cfg.DeathRate > 0 {
		die := MakeReactionBuilder().
			WithName("die").
			WithSeed(cfg.Seed).
			WithRate(cfg.DeathRate).
			WithAction(Die{})
		cell.AddReaction(die.Build(env, cell))
	}

	env.AddNode(cell)

	if cfg.FeedRate > 0 {
		feed := MakeReactionBuilder().
			WithName("feed").
			WithSeed(cfg.Seed).
			WithRate(cfg.FeedRate).
			WithAction(Feed{Molecule: Nutrient, Amount: 1})
		env.AddGlobalReaction(feed.Build(env, nil))
	}

	env.TerminateWhen(func(env *Environment) bool {
		n := env.NodeCount()
		return n == 0 || (cfg.MaxCells > 0 && n >= cfg.MaxCells)
	})

	return env
}
