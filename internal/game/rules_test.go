package game

import "testing"

func TestCanStartGameRequiresFourReady(t *testing.T) {
	tests := []struct {
		name      string
		ready     []bool
		wantCount int
		wantOK    bool
	}{
		{"empty", nil, 0, false},
		{"three of three", []bool{true, true, true}, 3, false},
		{"three of four", []bool{true, true, false, true}, 3, false},
		{"four of four", []bool{true, true, true, true}, 4, true},
	}
	for _, tt := range tests {
		players := make([]Player, 0, len(tt.ready))
		for i, r := range tt.ready {
			players = append(players, Player{ID: string(rune('a' + i)), IsReadyToStart: r})
		}
		count, ok := CanStartGame(players)
		if count != tt.wantCount || ok != tt.wantOK {
			t.Fatalf("%s: CanStartGame = (%d, %v), want (%d, %v)", tt.name, count, ok, tt.wantCount, tt.wantOK)
		}
	}
}

func TestNextPositionCyclesPlayOrder(t *testing.T) {
	p := PositionBottom
	seen := []Position{p}
	for i := 0; i < 4; i++ {
		p = NextPosition(p)
		seen = append(seen, p)
	}
	want := []Position{PositionBottom, PositionRight, PositionTop, PositionLeft, PositionBottom}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("order[%d] = %s, want %s", i, seen[i], want[i])
		}
	}
}

func TestTeamForPosition(t *testing.T) {
	if TeamForPosition(PositionTop) != TeamTopBottom || TeamForPosition(PositionBottom) != TeamTopBottom {
		t.Fatal("top/bottom should share a team")
	}
	if TeamForPosition(PositionLeft) != TeamRightLeft || TeamForPosition(PositionRight) != TeamRightLeft {
		t.Fatal("left/right should share a team")
	}
}
