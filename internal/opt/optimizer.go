package opt

// Objective scores a coordinate vector. Larger is better.
// Complex-valued quantities must be reduced to a real score by the caller
// (the Mermin objectives use the modulus).
type Objective func(x []float64) float64

// Maximizer defines a gradient-free search over normalized coordinates
type Maximizer interface {
	// Maximize searches for coordinates maximizing obj.
	// initial: starting point, normalized internally
	// Returns: best coordinates found and the score reached there
	Maximize(obj Objective, initial []float64) (*Result, error)
}

// Result holds the output of a maximization run
type Result struct {
	Best        []float64 `json:"best"`
	Score       float64   `json:"score"`
	Evaluations int       `json:"evaluations"`
	Accepted    int       `json:"accepted"`
	Halvings    int       `json:"halvings"`
	FinalStep   float64   `json:"finalStep"`
}

// Step describes an accepted candidate, reported to an Observer.
// Index 0 is the normalized initial point.
type Step struct {
	Index    int
	Score    float64
	StepSize float64
	Vector   []float64
}

// Observer receives every accepted candidate in acceptance order
type Observer func(Step)

// improves reports whether value strictly beats current.
// NaN never improves anything, and anything that is not NaN improves a NaN.
func improves(value, current float64) bool {
	if value != value {
		return false
	}
	if current != current {
		return true
	}
	return value > current
}
