package http

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/vovakirdan/lobby-server/internal/core"
	"github.com/vovakirdan/lobby-server/internal/proto"
	"github.com/vovakirdan/lobby-server/internal/store"
)

// Transport-level error codes. Domain codes live in core.
const (
	ErrCodeInvalidMessage = "invalid_message"
	ErrCodeRateLimited    = "rate_limited"
)

func inboundToCommand(inbound proto.Inbound) (*core.Command, *core.CoreError) {
	switch inbound.Type {
	case proto.InboundTypeJoin:
		var join proto.JoinData
		if err := proto.Decode(inbound.Data, &join); err != nil {
			return nil, payloadError(err)
		}
		return &core.Command{
			Kind:     core.CommandJoin,
			Username: join.Username,
		}, nil
	case proto.InboundTypeChatMessage:
		var msg proto.ChatMessageData
		if err := proto.Decode(inbound.Data, &msg); err != nil {
			return nil, payloadError(err)
		}
		return &core.Command{
			Kind:     core.CommandSendMessage,
			Content:  msg.Content,
			ImageURL: msg.ImageURL,
		}, nil
	default:
		return nil, &core.CoreError{Code: ErrCodeInvalidMessage, Message: "unknown message type"}
	}
}

func payloadError(err error) *core.CoreError {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return &core.CoreError{
			Code:    core.ErrCodeValidation,
			Message: fmt.Sprintf("%s: failed %s", strings.ToLower(fe.Field()), fe.Tag()),
		}
	}
	return &core.CoreError{Code: core.ErrCodeValidation, Message: "malformed payload"}
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventUserJoined:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventUserJoined,
			Data:  userToProto(*event.User),
		}
	case core.EventNewMessage:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventNewMessage,
			Data:  messageToProto(*event.Message),
		}
	case core.EventUserLeft:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventUserLeft,
			Data:  proto.UserLeft{UserID: event.UserID},
		}
	case core.EventError:
		if event.Error == nil {
			return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Code: core.ErrCodeInternal, Msg: "unknown error"}}
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeError,
			Error: &proto.Error{Code: event.Error.Code, Msg: event.Error.Message},
		}
	default:
		return proto.Outbound{Type: proto.OutboundTypeEvent}
	}
}

func userToProto(u core.User) proto.User {
	return proto.User{ID: u.ID, Username: u.Username, LastSeen: u.LastSeen}
}

func messageToProto(m core.Message) proto.Message {
	return proto.Message{
		ID:        m.ID,
		Content:   m.Content,
		UserID:    m.UserID,
		CreatedAt: m.CreatedAt,
		ImageURL:  m.ImageURL,
		User:      proto.Author{Username: m.Username},
	}
}

func storedUserToProto(u *store.User, _ int) proto.User {
	return proto.User{ID: u.ID, Username: u.Username, LastSeen: u.LastSeen}
}

func storedMessageToProto(m *store.Message, _ int) proto.Message {
	return proto.Message{
		ID:        m.ID,
		Content:   m.Content,
		UserID:    m.UserID,
		CreatedAt: m.CreatedAt,
		ImageURL:  m.ImageURL,
		User:      proto.Author{Username: m.Username},
	}
}
