package domain

import "slices"

// Position is a side taken in a debate.
type Position string

const (
	PositionAffirmative Position = "affirmative"
	PositionNegative    Position = "negative"
)

// Opposite returns the other side of the debate.
// Returns an empty Position for unknown values.
func (p Position) Opposite() Position {
	switch p {
	case PositionAffirmative:
		return PositionNegative
	case PositionNegative:
		return PositionAffirmative
	default:
		return ""
	}
}

// DebateInfo is structured metadata stored next to a session history so the
// topic and sides never have to be recovered from prompt text.
type DebateInfo struct {
	Topic        string   `json:"topic"`
	UserPosition Position `json:"user_position"`
	AIPosition   Position `json:"ai_position"`
}

// Session is one debate conversation as persisted in a snapshot.
// The session ID is the snapshot key and is not repeated in the value.
type Session struct {
	History []Message   `json:"history"`
	Debate  *DebateInfo `json:"debate,omitempty"`
}

// Clone returns a deep copy of the session.
func (s Session) Clone() Session {
	out := Session{History: slices.Clone(s.History)}
	if out.History == nil {
		out.History = []Message{}
	}
	if s.Debate != nil {
		d := *s.Debate
		out.Debate = &d
	}
	return out
}

// Snapshot maps session IDs to sessions. It is always persisted as one unit.
type Snapshot map[string]Session

// Clone returns a deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	for id, sess := range s {
		out[id] = sess.Clone()
	}
	return out
}
