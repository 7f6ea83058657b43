package engine

// ToggleReady flips the ready flag of the player bound to connID. The returned bool
// reports whether this toggle moved the lobby into the all-ready state. A single
// flip can only cross into all-ready from below, so every true result is a fresh
// crossing.
func ToggleReady(l *Lobby, connID string) (Player, bool, error) {
	p, ok := l.PlayerByConn(connID)
	if !ok {
		return Player{}, false, ErrNotBound
	}
	p.Ready = !p.Ready
	return *p, p.Ready && AllReady(l), nil
}

func AllReady(l *Lobby) bool {
	if len(l.Players) == 0 {
		return false
	}
	for _, p := range l.Players {
		if !p.Ready {
			return false
		}
	}
	return true
}

func ReadyNotification(p Player) NotificationType {
	if p.Ready {
		return NotifyReady
	}
	return NotifyUnready
}
