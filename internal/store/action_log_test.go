package store

import (
	"context"
	"testing"
	"time"

	"belote-lobby/internal/game"
)

func TestActionLogRecordAndList(t *testing.T) {
	log, ctx, cleanup := openActionLog(t)
	defer cleanup()

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	actions := []game.Action{
		{RoomID: "r1", Type: game.ActionPlayerJoin, PlayerID: "alice", Timestamp: base},
		{RoomID: "r1", Type: game.ActionPlayerReady, PlayerID: "alice", Data: map[string]any{"ready": true}, Timestamp: base.Add(time.Second)},
		{RoomID: "r2", Type: game.ActionPlayerJoin, PlayerID: "carol", Timestamp: base},
	}
	for _, a := range actions {
		if err := log.Record(ctx, a); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	got, err := log.ListByRoom(ctx, "r1", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 actions, got %d", len(got))
	}
	if got[0].Type != game.ActionPlayerJoin || got[1].Type != game.ActionPlayerReady {
		t.Fatalf("unexpected order: %v, %v", got[0].Type, got[1].Type)
	}
	if ready, _ := got[1].Data["ready"].(bool); !ready {
		t.Fatalf("expected ready=true in data, got %v", got[1].Data)
	}
	if err := log.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestNopActionLog(t *testing.T) {
	if err := (NopActionLog{}).Record(context.Background(), game.Action{}); err != nil {
		t.Fatalf("nop record: %v", err)
	}
}
