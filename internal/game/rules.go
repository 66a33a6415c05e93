package game

const (
	MaxPlayers           = 4
	RequiredReadyPlayers = 4
)

type Team string

const (
	TeamTopBottom Team = "top_bottom"
	TeamRightLeft Team = "right_left"
)

var playOrder = [...]Position{PositionBottom, PositionRight, PositionTop, PositionLeft}

// CanStartGame reports whether exactly four players are ready, along with
// the ready count it saw.
func CanStartGame(players []Player) (int, bool) {
	ready := 0
	for _, p := range players {
		if p.IsReadyToStart {
			ready++
		}
	}
	return ready, ready == RequiredReadyPlayers
}

func NextPosition(current Position) Position {
	for i, p := range playOrder {
		if p == current {
			return playOrder[(i+1)%len(playOrder)]
		}
	}
	return playOrder[0]
}

func TeamForPosition(p Position) Team {
	if p == PositionTop || p == PositionBottom {
		return TeamTopBottom
	}
	return TeamRightLeft
}
