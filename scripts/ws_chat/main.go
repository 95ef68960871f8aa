package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/lobby-server/internal/proto"
)

type envelope struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

func main() {
	if err := run(); err != nil {
		log.Printf("ws_chat: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	user := flag.String("user", "cli-user", "username")
	flag.Parse()

	baseCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	joinPayload, err := json.Marshal(proto.JoinData{Username: *user})
	if err != nil {
		return fmt.Errorf("marshal join: %w", err)
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: proto.InboundTypeJoin, Data: joinPayload}); err != nil {
		return fmt.Errorf("send join: %w", err)
	}

	fmt.Printf("Connected to %s, joining as %s\n", *addr, *user)
	fmt.Println("Type messages and press Enter to send. Ctrl+C to exit.")

	go func() {
		defer cancel()
		readLoop(ctx, conn)
	}()

	writeLoop(ctx, conn)

	stop()
	cancel()
	_ = conn.Close(websocket.StatusNormalClosure, "bye")
	return nil
}

func readLoop(ctx context.Context, conn *websocket.Conn) {
	// usernames seen so far, for rendering user_left
	names := make(map[int64]string)

	for {
		var out envelope
		if err := wsjson.Read(ctx, conn, &out); err != nil {
			// Treat expected shutdowns quietly.
			if errors.Is(err, context.Canceled) {
				return
			}
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return
			}
			log.Printf("read error: %v", err)
			return
		}

		if out.Type == proto.OutboundTypeError && out.Error != nil {
			fmt.Printf("! %s: %s\n", out.Error.Code, out.Error.Msg)
			continue
		}

		switch out.Event {
		case proto.EventNewMessage:
			var msg proto.Message
			if err := json.Unmarshal(out.Data, &msg); err != nil {
				log.Printf("unmarshal new_message: %v", err)
				continue
			}
			line := msg.Content
			if msg.ImageURL != nil {
				line += " [" + *msg.ImageURL + "]"
			}
			fmt.Printf("[%s] %s: %s\n", msg.CreatedAt.Local().Format("15:04"), msg.User.Username, line)
		case proto.EventUserJoined:
			var u proto.User
			if err := json.Unmarshal(out.Data, &u); err != nil {
				log.Printf("unmarshal user_joined: %v", err)
				continue
			}
			names[u.ID] = u.Username
			fmt.Printf("* %s joined\n", u.Username)
		case proto.EventUserLeft:
			var left proto.UserLeft
			if err := json.Unmarshal(out.Data, &left); err != nil {
				log.Printf("unmarshal user_left: %v", err)
				continue
			}
			name, ok := names[left.UserID]
			if !ok {
				name = fmt.Sprintf("user #%d", left.UserID)
			}
			fmt.Printf("* %s left\n", name)
		default:
			fmt.Printf("event=%s data=%s\n", out.Event, string(out.Data))
		}
	}
}

func writeLoop(ctx context.Context, conn *websocket.Conn) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			text := strings.TrimSpace(line)
			if text == "" {
				continue
			}

			payload, err := json.Marshal(proto.ChatMessageData{Content: text})
			if err != nil {
				log.Printf("marshal chat_message: %v", err)
				return
			}
			if err := wsjson.Write(ctx, conn, proto.Inbound{Type: proto.InboundTypeChatMessage, Data: payload}); err != nil {
				log.Printf("send error: %v", err)
				return
			}
		}
	}
}
