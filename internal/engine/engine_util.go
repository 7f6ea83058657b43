package engine

import (
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

func ValidLobbySize(size int) bool {
	return size >= 2 && size%2 == 0
}

// NormalizeChatText trims surrounding whitespace and caps the result at maxLen
// characters. The text itself is not rewritten; the cut moves back to the nearest
// normalization boundary so a base character never loses its combining marks.
func NormalizeChatText(text string, maxLen int) (string, error) {
	clean := strings.TrimSpace(text)
	if clean == "" {
		return "", ErrEmptyMessage
	}
	if maxLen <= 0 || utf8.RuneCountInString(clean) <= maxLen {
		return clean, nil
	}

	hard := 0
	for i := 0; i < maxLen; i++ {
		_, size := utf8.DecodeRuneInString(clean[hard:])
		hard += size
	}
	cut := hard
	for cut > 0 && !norm.NFC.PropertiesString(clean[cut:]).BoundaryBefore() {
		_, size := utf8.DecodeLastRuneInString(clean[:cut])
		cut -= size
	}
	if cut == 0 {
		cut = hard
	}
	return clean[:cut], nil
}

// NewMatch freezes the lobby roster into a match record.
func NewMatch(l *Lobby, startedAt time.Time) Match {
	players := make([]MatchPlayer, 0, len(l.Players))
	for _, p := range l.Players {
		players = append(players, MatchPlayer{UserID: p.UserID, Username: p.Username, Team: p.Team})
	}
	return Match{
		LobbyID:   l.ID,
		Game:      l.Game,
		StartedAt: startedAt,
		Players:   players,
	}
}
