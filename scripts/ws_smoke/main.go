package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/lobby-server/internal/proto"
)

// envelope mirrors proto.Outbound with the payload left raw.
type envelope struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	user := flag.String("user", "tester", "username to join with")
	text := flag.String("text", "hello from smoke test", "message text to send")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	send := func(typ string, data any) error {
		payload, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", typ, err)
		}
		if err := wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Data: payload}); err != nil {
			return fmt.Errorf("send %s: %w", typ, err)
		}
		return nil
	}

	if err := send(proto.InboundTypeJoin, proto.JoinData{Username: *user}); err != nil {
		return err
	}

	var me proto.User
	joined := false
	for {
		var out envelope
		if err := wsjson.Read(ctx, conn, &out); err != nil {
			return fmt.Errorf("read: %w", err)
		}

		if out.Type == proto.OutboundTypeError && out.Error != nil {
			return fmt.Errorf("server error %s: %s", out.Error.Code, out.Error.Msg)
		}

		switch out.Event {
		case proto.EventUserJoined:
			var u proto.User
			if err := json.Unmarshal(out.Data, &u); err != nil {
				return fmt.Errorf("unmarshal user_joined: %w", err)
			}
			fmt.Printf("Join: id=%d username=%s\n", u.ID, u.Username)
			if !joined {
				// The first join after ours is our own; the name may carry a suffix.
				me, joined = u, true
				if err := send(proto.InboundTypeChatMessage, proto.ChatMessageData{Content: *text}); err != nil {
					return err
				}
			}
		case proto.EventNewMessage:
			var msg proto.Message
			if err := json.Unmarshal(out.Data, &msg); err != nil {
				fmt.Printf("Raw data: %s\n", string(out.Data))
				return fmt.Errorf("unmarshal new_message: %w", err)
			}
			fmt.Printf("Message: id=%d user=%s content=%q at=%s\n", msg.ID, msg.User.Username, msg.Content, msg.CreatedAt.Format(time.RFC3339))
			if msg.UserID == me.ID {
				return nil
			}
		case proto.EventUserLeft:
			var left proto.UserLeft
			if err := json.Unmarshal(out.Data, &left); err == nil {
				fmt.Printf("Left: user_id=%d\n", left.UserID)
			}
		default:
			// keep looping for our message
		}
	}
}
