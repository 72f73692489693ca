package contracts

// Signal is a pluggable evidence source feeding the blender. Score is
// directional in [-1,1]; Confidence in [0,1] weights the contribution.
// A source that cannot produce evidence reports neutral (0, 0) — it
// must never fabricate a value.
type Signal interface {
	Name() string
	Score() float64
	Confidence() float64
}

// NeutralSignal is the stand-in for an unavailable source
type NeutralSignal struct {
	SourceName string
}

func (n NeutralSignal) Name() string        { return n.SourceName }
func (n NeutralSignal) Score() float64      { return 0 }
func (n NeutralSignal) Confidence() float64 { return 0 }

// StaticSignal carries a precomputed reading
type StaticSignal struct {
	SourceName string
	Value      float64
	Weight     float64
}

func (s StaticSignal) Name() string        { return s.SourceName }
func (s StaticSignal) Score() float64      { return s.Value }
func (s StaticSignal) Confidence() float64 { return s.Weight }
