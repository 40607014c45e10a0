package batch

// Pair indexes one left and one right order of a batch.
type Pair struct {
	Left  int `json:"left" yaml:"left"`
	Right int `json:"right" yaml:"right"`
}

// Sequencer decides which pairs of a batch are matched and in what order.
// Implementations keep per-run state and are not safe for concurrent use;
// Start resets them.
type Sequencer interface {
	// Start returns the first pair, or false if nothing is to be matched.
	Start(numLeft, numRight int) (Pair, bool)
	// Advance returns the pair following last, given whether last left
	// either order fully filled.
	Advance(last Pair, leftFilled, rightFilled bool) (Pair, bool)
}

// Explicit replays a caller-supplied pair sequence verbatim.
type Explicit struct {
	pairs []Pair
	next  int
}

// NewExplicit returns a sequencer over pairs.
func NewExplicit(pairs []Pair) *Explicit {
	return &Explicit{pairs: pairs}
}

func (e *Explicit) Start(_, _ int) (Pair, bool) {
	e.next = 0
	return e.pop()
}

func (e *Explicit) Advance(_ Pair, _, _ bool) (Pair, bool) {
	return e.pop()
}

func (e *Explicit) pop() (Pair, bool) {
	if e.next >= len(e.pairs) {
		return Pair{}, false
	}
	p := e.pairs[e.next]
	e.next++
	return p, true
}

// Greedy sweeps both lists with two pointers: the current left order is
// matched against the current right order and whichever is fully filled is
// advanced. The sweep ends when either list is exhausted.
type Greedy struct {
	numLeft, numRight int
}

// NewGreedy returns a two-pointer sequencer.
func NewGreedy() *Greedy {
	return &Greedy{}
}

func (g *Greedy) Start(numLeft, numRight int) (Pair, bool) {
	g.numLeft, g.numRight = numLeft, numRight
	if numLeft == 0 || numRight == 0 {
		return Pair{}, false
	}
	return Pair{}, true
}

func (g *Greedy) Advance(last Pair, leftFilled, rightFilled bool) (Pair, bool) {
	// every match exhausts at least one side; without that the sweep
	// would repeat the same pair forever
	if !leftFilled && !rightFilled {
		return Pair{}, false
	}
	next := last
	if leftFilled {
		next.Left++
	}
	if rightFilled {
		next.Right++
	}
	if next.Left >= g.numLeft || next.Right >= g.numRight {
		return Pair{}, false
	}
	return next, true
}

// NewSequencer returns the sequencer registered under name, falling back to
// Greedy for unknown names. Explicit pairs are only honoured when name is
// "explicit".
func NewSequencer(name string, pairs []Pair) Sequencer {
	if name == "explicit" {
		return NewExplicit(pairs)
	}
	return NewGreedy()
}
