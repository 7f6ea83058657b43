package engine

import "strings"

// Queue is a single ordered waiting list shared by all game modes. Entries keep
// their arrival order; each entry is tagged with its game.
type Queue struct {
	size        int
	defaultGame string
	entries     []QueueEntry
}

func NewQueue(lobbySize int, defaultGame string) (*Queue, error) {
	if !ValidLobbySize(lobbySize) {
		return nil, ErrInvalidLobbySize
	}
	if defaultGame == "" {
		defaultGame = DefaultGame
	}
	return &Queue{size: lobbySize, defaultGame: defaultGame}, nil
}

// Admit appends e to the tail of the queue, replacing any entry held by the same
// connection or the same user, so a user never holds two seats in one lobby. When the admitted game reaches the lobby size, the first size
// entries of that game are removed and returned in arrival order; every other entry
// keeps its relative position.
func (q *Queue) Admit(e QueueEntry) ([]QueueEntry, error) {
	e.UserID = strings.TrimSpace(e.UserID)
	e.Username = strings.TrimSpace(e.Username)
	e.Game = strings.TrimSpace(e.Game)
	if e.ConnID == "" || e.UserID == "" || e.Username == "" {
		return nil, ErrInvalidEntry
	}
	if e.Game == "" {
		e.Game = q.defaultGame
	}

	q.removeWhere(func(entry QueueEntry) bool {
		return entry.ConnID == e.ConnID || entry.UserID == e.UserID
	})
	q.entries = append(q.entries, e)

	if q.countGame(e.Game) < q.size {
		return nil, nil
	}

	kept := make([]QueueEntry, 0, len(q.entries)-q.size)
	selected := make([]QueueEntry, 0, q.size)
	for _, entry := range q.entries {
		if entry.Game == e.Game && len(selected) < q.size {
			selected = append(selected, entry)
			continue
		}
		kept = append(kept, entry)
	}
	q.entries = kept
	return selected, nil
}

func (q *Queue) Remove(connID string) bool {
	for i, entry := range q.entries {
		if entry.ConnID == connID {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return true
		}
	}
	return false
}

func (q *Queue) removeWhere(match func(QueueEntry) bool) {
	kept := q.entries[:0]
	for _, entry := range q.entries {
		if !match(entry) {
			kept = append(kept, entry)
		}
	}
	q.entries = kept
}

func (q *Queue) CountsByMode() (int, map[string]int) {
	byGame := make(map[string]int)
	for _, entry := range q.entries {
		byGame[entry.Game]++
	}
	return len(q.entries), byGame
}

func (q *Queue) Len() int { return len(q.entries) }

func (q *Queue) LobbySize() int { return q.size }

// Entries returns a copy of the waiting list in arrival order.
func (q *Queue) Entries() []QueueEntry {
	return append([]QueueEntry(nil), q.entries...)
}

func (q *Queue) countGame(game string) int {
	n := 0
	for _, entry := range q.entries {
		if entry.Game == game {
			n++
		}
	}
	return n
}
