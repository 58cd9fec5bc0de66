package objective

import (
	"strings"

	"github.com/shopspring/decimal"
)

type multiKind int

const (
	sumKind multiKind = iota
	bestOfKind
)

// Multi aggregates child values. Its value is computed on demand and cached
// until a child is added or changes.
type Multi struct {
	node
	desc     string
	kind     multiKind
	children []Value
	cached   bool
	value    decimal.Decimal
	optimal  bool
}

// NewSum returns an AND node: the sum of its children, optimal iff every
// child is optimal.
func NewSum(desc string, children ...Value) *Multi {
	return newMulti(desc, sumKind, children)
}

// NewBestOf returns an OR node: the minimum of its children, optimal iff some
// child is optimal. An empty BestOf is worst.
func NewBestOf(desc string, children ...Value) *Multi {
	return newMulti(desc, bestOfKind, children)
}

func newMulti(desc string, kind multiKind, children []Value) *Multi {
	m := &Multi{desc: desc, kind: kind, children: children}
	for _, child := range children {
		child.attach(m)
	}
	return m
}

// Add appends a child and invalidates the cached value.
func (m *Multi) Add(v Value) {
	m.children = append(m.children, v)
	v.attach(m)
	m.invalidate()
}

// invalidate drops the cached value here and in every ancestor. An
// uncached node has no cached ancestors.
func (m *Multi) invalidate() {
	if !m.cached {
		return
	}
	m.cached = false
	m.invalidateParents()
}

// Children returns the child values.
func (m *Multi) Children() []Value { return m.children }

// IsSum reports whether this is an AND node.
func (m *Multi) IsSum() bool { return m.kind == sumKind }

func (m *Multi) compute() {
	if m.cached {
		return
	}
	m.cached = true
	switch m.kind {
	case sumKind:
		total := decimal.Zero
		optimal := true
		for _, child := range m.children {
			total = total.Add(child.Get())
			optimal = optimal && child.IsOptimal()
		}
		m.value, m.optimal = total, optimal
	case bestOfKind:
		if len(m.children) == 0 {
			m.value, m.optimal = WorstValue, false
			return
		}
		best := m.children[0].Get()
		optimal := false
		for _, child := range m.children {
			if v := child.Get(); v.LessThan(best) {
				best = v
			}
			optimal = optimal || child.IsOptimal()
		}
		m.value, m.optimal = best, optimal
	}
}

// Get implements Value.
func (m *Multi) Get() decimal.Decimal {
	m.compute()
	return m.value
}

// IsOptimal implements Value.
func (m *Multi) IsOptimal() bool {
	m.compute()
	return m.optimal
}

// Description implements Value.
func (m *Multi) Description() string { return m.desc }

func (m *Multi) write(b *strings.Builder, depth int) {
	label := "sum"
	if m.kind == bestOfKind {
		label = "best of"
	}
	desc := label
	if m.desc != "" {
		desc = m.desc + " [" + label + "]"
	}
	writeLine(b, depth, desc, m.Get())
	for _, child := range m.children {
		child.write(b, depth+1)
	}
}

func (m *Multi) String() string { return Render(m) }
