package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"time"

	approom "belote-lobby/internal/app/room"
	"belote-lobby/internal/config"
	"belote-lobby/internal/game"
	"belote-lobby/internal/lobby"
	"belote-lobby/internal/logging"
	"belote-lobby/internal/ws"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

type inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func main() {
	logCfg, err := config.LoadLog()
	if err != nil {
		panic(err)
	}
	defer logging.Init(logCfg)()
	cfg, err := config.LoadBot()
	if err != nil {
		log.Fatal().Err(err).Msg("load bot config failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	roomID := cfg.RoomID
	if roomID == "" {
		roomID, err = createRoom(ctx, cfg.APIURL)
		if err != nil {
			log.Fatal().Err(err).Msg("create room failed")
		}
		log.Info().Str("room_id", roomID).Msg("bot created room")
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, socketURL(cfg.WSURL, roomID, cfg.Token), nil)
	if err != nil {
		log.Fatal().Err(err).Msg("dial failed")
	}
	defer conn.Close()
	go func() {
		<-ctx.Done()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		_ = conn.Close()
	}()

	for {
		var ev inbound
		if err := conn.ReadJSON(&ev); err != nil {
			log.Info().Err(err).Msg("bot connection closed")
			return
		}
		log.Info().Str("type", ev.Type).RawJSON("data", ev.Data).Msg("bot event")
		for _, reply := range respond(ev, cfg.Greeting) {
			if err := conn.WriteJSON(reply); err != nil {
				log.Error().Err(err).Str("type", reply.Type).Msg("bot write failed")
				return
			}
		}
	}
}

// respond says hello and readies up once welcomed, and asks to start as
// soon as every seat reports ready.
func respond(ev inbound, greeting string) []ws.InboundMessage {
	switch ev.Type {
	case ws.EventSession:
		var info ws.SessionInfo
		if err := json.Unmarshal(ev.Data, &info); err == nil {
			log.Info().Str("token", info.Token).Str("player_id", info.PlayerID).Msg("bot issued token")
		}
	case lobby.EventWelcome:
		var w lobby.Welcome
		if err := json.Unmarshal(ev.Data, &w); err != nil {
			return nil
		}
		out := []ws.InboundMessage{{Type: ws.MsgChat, Text: greeting}}
		if self := findPlayer(w.Players, w.PlayerID); self == nil || !self.IsReadyToStart {
			out = append(out, ws.InboundMessage{Type: ws.MsgToggleReady})
		}
		return out
	case lobby.EventPlayerReadyChanged:
		var rc lobby.ReadyChanged
		if err := json.Unmarshal(ev.Data, &rc); err != nil {
			return nil
		}
		if _, ok := game.CanStartGame(rc.Players); ok {
			return []ws.InboundMessage{{Type: ws.MsgStartGame}}
		}
	}
	return nil
}

func createRoom(ctx context.Context, apiURL string) (string, error) {
	body, err := json.Marshal(approom.CreateRequest{Name: "bot table", CreatedBy: "lobby-bot"})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(apiURL, "/")+"/rooms", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("create room: status %d", resp.StatusCode)
	}
	var room approom.RoomResponse
	if err := json.NewDecoder(resp.Body).Decode(&room); err != nil {
		return "", err
	}
	return room.ID, nil
}

func socketURL(base, roomID, token string) string {
	u := strings.TrimRight(base, "/") + "/" + url.PathEscape(roomID)
	if token != "" {
		u += "?token=" + url.QueryEscape(token)
	}
	return u
}

func findPlayer(players []game.Player, id string) *game.Player {
	for i := range players {
		if players[i].ID == id {
			return &players[i]
		}
	}
	return nil
}
