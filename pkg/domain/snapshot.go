package domain

import "time"

// InstanceSnapshot is the persisted view of an instance after a tick.
type InstanceSnapshot struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	State     RunnableState   `json:"state"`
	Tick      int             `json:"tick"`
	Blocks    []BlockSnapshot `json:"blocks"`
	UpdatedAt time.Time       `json:"updated_at"`

	// Sealed holds the encrypted snapshot when it was persisted through
	// an encrypting store. Blocks are empty in that case.
	Sealed string `json:"sealed,omitempty"`
}

// BlockSnapshot is the view of one block inside an InstanceSnapshot.
type BlockSnapshot struct {
	ID        string        `json:"id"`
	TypeID    string        `json:"type_id"`
	State     RunnableState `json:"state"`
	Active    bool          `json:"active"`
	Result    string        `json:"result,omitempty"`
	Printable string        `json:"printable"`
}

// Clone returns a deep copy of s.
func (s *InstanceSnapshot) Clone() *InstanceSnapshot {
	if s == nil {
		return nil
	}
	c := *s
	c.Blocks = append([]BlockSnapshot(nil), s.Blocks...)
	return &c
}
