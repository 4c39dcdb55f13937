package bfgs

// State is the optimizer's position in its iteration cycle. Converged,
// Failed and Cancelled are terminal.
type State uint8

const (
	Initializing State = iota
	Evaluating
	StepComputing
	LineSearching
	Converged
	Failed
	Cancelled
)

var stateNames = []string{
	"Initializing",
	"Evaluating",
	"StepComputing",
	"LineSearching",
	"Converged",
	"Failed",
	"Cancelled",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "Unknown"
}

func (s State) Terminal() bool {
	return s == Converged || s == Failed || s == Cancelled
}

// Entry is one accepted iteration in the convergence history.
type Entry struct {
	Iteration int
	F         float64 // functional value after the step
	GradNorm  float64 // metric-weighted gradient norm
	Step      float64 // accepted line-search step length
}

// History is a bounded ring of convergence entries: the log never grows past
// its capacity, old entries fall off the front.
type History struct {
	entries []Entry
	start   int
	count   int
}

func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = 1
	}
	return &History{entries: make([]Entry, capacity)}
}

func (h *History) Append(e Entry) {
	if h.count < len(h.entries) {
		h.entries[(h.start+h.count)%len(h.entries)] = e
		h.count++
		return
	}
	h.entries[h.start] = e
	h.start = (h.start + 1) % len(h.entries)
}

func (h *History) Len() int { return h.count }

// Entries returns the retained entries oldest first.
func (h *History) Entries() (out []Entry) {
	out = make([]Entry, h.count)
	for i := 0; i < h.count; i++ {
		out[i] = h.entries[(h.start+i)%len(h.entries)]
	}
	return
}

func (h *History) Last() (e Entry, ok bool) {
	if h.count == 0 {
		return
	}
	return h.entries[(h.start+h.count-1)%len(h.entries)], true
}
