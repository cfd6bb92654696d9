package domain

// LineKind selects which completion activates a line.
type LineKind string

const (
	// LineNormal is followed when the source block goes further normally (done).
	LineNormal LineKind = "normal"
	// LineFailure is followed when the source block fails.
	LineFailure LineKind = "failure"
)

// Line is a connection between two blocks of one instance, addressed by internal block id.
type Line struct {
	ID   string   `json:"id" yaml:"id"`
	From string   `json:"from" yaml:"from"`
	To   string   `json:"to" yaml:"to"`
	Kind LineKind `json:"kind,omitempty" yaml:"kind,omitempty"`
}

// EffectiveKind returns the line kind, defaulting to LineNormal.
func (l Line) EffectiveKind() LineKind {
	if l.Kind == "" {
		return LineNormal
	}
	return l.Kind
}
