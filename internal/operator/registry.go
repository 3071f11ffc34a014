package operator

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusAvailable Status = "available"
	StatusBusy      Status = "busy"
)

type Operator struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Skills   []string  `json:"skills"`
	Status   Status    `json:"status"`
	JoinedAt time.Time `json:"joined_at"`
}

func (o *Operator) clone() *Operator {
	c := *o
	if o.Skills != nil {
		c.Skills = make([]string, len(o.Skills))
		copy(c.Skills, o.Skills)
	}
	return &c
}

// Registry is the exclusive owner of operator records. All availability
// flips go through its mutex, so two concurrent assignments can never claim
// the same operator.
type Registry struct {
	mu        sync.RWMutex
	operators map[string]*Operator
	order     []string
}

func NewRegistry() *Registry {
	return &Registry{operators: make(map[string]*Operator)}
}

// Add registers a new available operator and returns its record.
func (r *Registry) Add(name string, skills []string) *Operator {
	o := &Operator{
		ID:       uuid.NewString(),
		Name:     name,
		Skills:   append([]string(nil), skills...),
		Status:   StatusAvailable,
		JoinedAt: time.Now().UTC(),
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.operators[o.ID] = o
	r.order = append(r.order, o.ID)
	return o.clone()
}

func (r *Registry) Get(id string) (*Operator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.operators[id]
	if !ok {
		return nil, false
	}
	return o.clone(), true
}

// Acquire picks the best available operator for the required skills and
// marks it busy. Lower score wins: a skill intersection is worth -2.
// Ties fall to pool insertion order, which keeps assignment deterministic.
func (r *Registry) Acquire(required []string) (*Operator, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var best *Operator
	bestScore := 0
	for _, id := range r.order {
		o := r.operators[id]
		if o == nil || o.Status != StatusAvailable {
			continue
		}
		score := 0
		if intersects(o.Skills, required) {
			score -= 2
		}
		if best == nil || score < bestScore {
			best = o
			bestScore = score
		}
	}
	if best == nil {
		return nil, false
	}
	best.Status = StatusBusy
	return best.clone(), true
}

// Claim marks a specific operator busy, for operator-console initiated
// takeovers. Fails if the operator is unknown or already busy.
func (r *Registry) Claim(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.operators[id]
	if !ok || o.Status != StatusAvailable {
		return false
	}
	o.Status = StatusBusy
	return true
}

// Release returns an operator to the available pool.
func (r *Registry) Release(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.operators[id]
	if !ok {
		return false
	}
	o.Status = StatusAvailable
	return true
}

// Snapshot returns clones of all operators in pool order.
func (r *Registry) Snapshot() []*Operator {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Operator, 0, len(r.order))
	for _, id := range r.order {
		if o := r.operators[id]; o != nil {
			out = append(out, o.clone())
		}
	}
	return out
}

// Counts reports available and total operators.
func (r *Registry) Counts() (available, total int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, o := range r.operators {
		total++
		if o.Status == StatusAvailable {
			available++
		}
	}
	return available, total
}

func intersects(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}
