package lang

// Spawn is an MPI launch of one or more command groups. Each group runs
// Ranks copies of Command with Threads OpenMP threads.
type Spawn struct {
	Ranks []Rank
}

func (*Spawn) isObject() {}

// Rank is one command group. Threads may be nil.
type Rank struct {
	Command Object
	Ranks   Object
	Threads Object
}
