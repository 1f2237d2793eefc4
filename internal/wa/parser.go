package wa

import (
	"github.com/matheus3301/wpp-harvest/internal/command"
	"github.com/matheus3301/wpp-harvest/internal/store"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
)

// resolveFunc maps a linked identity to a phone-number JID when possible.
type resolveFunc func(types.JID) types.JID

func identity(j types.JID) types.JID { return j }

// ParseSighting extracts the sender of a group message. ok is false for
// anything that is not a message from a person in a group.
func ParseSighting(evt *events.Message, resolve resolveFunc) (store.Sighting, bool) {
	if evt == nil || !evt.Info.IsGroup || evt.Info.Chat.Server != types.GroupServer {
		return store.Sighting{}, false
	}
	if evt.Info.Sender.IsEmpty() {
		return store.Sighting{}, false
	}
	if resolve == nil {
		resolve = identity
	}
	raw := evt.Info.Sender.ToNonAD()
	sender := resolve(raw)
	s := store.Sighting{
		UserID:    UserID(sender),
		FirstName: evt.Info.PushName,
		Phone:     Phone(sender),
		GroupID:   GroupID(evt.Info.Chat),
	}
	if raw.Server == types.HiddenUserServer && sender != raw {
		s.Aliases = []string{UserID(raw)}
	}
	return s, true
}

// ParseCommand extracts a command sent in a private chat.
func ParseCommand(evt *events.Message, resolve resolveFunc) (command.Request, bool) {
	if evt == nil || evt.Info.IsGroup {
		return command.Request{}, false
	}
	switch evt.Info.Chat.Server {
	case types.DefaultUserServer, types.HiddenUserServer:
	default:
		return command.Request{}, false
	}
	name, args, ok := command.Parse(messageText(evt.Message))
	if !ok {
		return command.Request{}, false
	}
	if resolve == nil {
		resolve = identity
	}
	sender := resolve(evt.Info.Sender.ToNonAD())
	return command.Request{
		IssuerID: UserID(sender),
		Issuer:   store.AdminEntry{FirstName: evt.Info.PushName},
		ReplyTo:  evt.Info.Chat.ToNonAD().String(),
		Name:     name,
		Args:     args,
	}, true
}

func messageText(msg *waE2E.Message) string {
	if msg == nil {
		return ""
	}
	if c := msg.GetConversation(); c != "" {
		return c
	}
	if ext := msg.GetExtendedTextMessage(); ext != nil {
		return ext.GetText()
	}
	return ""
}
