package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	stdhttp "net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/lobby-server/internal/config"
	"github.com/vovakirdan/lobby-server/internal/core"
	"github.com/vovakirdan/lobby-server/internal/proto"
	"github.com/vovakirdan/lobby-server/internal/utils"
)

// WSHandler upgrades HTTP connections and bridges them to core.Client.
type WSHandler struct {
	hub               *core.Hub
	originPatterns    []string
	maxMessageBytes   int64
	messagesPerMinute int
	clientBuffer      int
	log               *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(hub *core.Hub, cfg config.Config, logger *zerolog.Logger) *WSHandler {
	return &WSHandler{
		hub:               hub,
		originPatterns:    cfg.AllowedOrigins,
		maxMessageBytes:   cfg.MaxMessageBytes,
		messagesPerMinute: cfg.MessagesPerMinute,
		clientBuffer:      cfg.ClientBuffer,
		log:               logger,
	}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:     h.originPatterns,
		InsecureSkipVerify: len(h.originPatterns) == 0,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	if h.maxMessageBytes > 0 {
		conn.SetReadLimit(h.maxMessageBytes)
	}

	client := core.NewClient(utils.NewID(), h.clientBuffer)
	h.hub.Connect(client)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	served := make(chan struct{})
	go func() {
		defer close(served)
		h.hub.Serve(ctx, client)
	}()

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, client)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, client)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	// The read loop was the only sender. Let queued commands finish before
	// teardown so an in-flight join is bound when Disconnect runs.
	close(client.Commands)
	<-served
	h.hub.Disconnect(ctx, client)

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != -1 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = "connection error"
			h.log.Warn().Err(err).Str("client_id", client.ID).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	limiter := newRateLimiter(h.messagesPerMinute)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			h.log.Debug().Err(err).Str("client_id", client.ID).Msg("read ws inbound")
			return err
		}

		if !limiter.allow() {
			h.hub.Reject(client, &core.CoreError{Code: ErrCodeRateLimited, Message: "too many messages"})
			continue
		}

		var inbound proto.Inbound
		if err := json.Unmarshal(data, &inbound); err != nil {
			h.hub.Reject(client, &core.CoreError{Code: ErrCodeInvalidMessage, Message: "malformed envelope"})
			continue
		}

		cmd, protoErr := inboundToCommand(inbound)
		if protoErr != nil {
			h.log.Debug().Str("client_id", client.ID).Str("type", inbound.Type).Str("code", protoErr.Code).Msg("inbound rejected")
			h.hub.Reject(client, protoErr)
			continue
		}

		select {
		case client.Commands <- cmd:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	for {
		select {
		case event := <-client.Events:
			if err := wsjson.Write(ctx, conn, outboundFromEvent(event)); err != nil {
				h.log.Error().Err(err).Str("client_id", client.ID).Msg("write ws event")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
