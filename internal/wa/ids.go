package wa

import (
	"strings"

	"github.com/matheus3301/wpp-harvest/internal/store"
	"go.mau.fi/whatsmeow/types"
)

// UserID maps a user JID to the id used as a collection key: the phone
// number for regular accounts, "<lid>@lid" for unresolved linked identities.
func UserID(jid types.JID) string {
	jid = jid.ToNonAD()
	switch jid.Server {
	case types.DefaultUserServer:
		return jid.User
	case types.HiddenUserServer:
		return jid.User + store.LIDSuffix
	}
	return jid.String()
}

// Phone returns "+<number>" for phone-number JIDs and nil otherwise.
func Phone(jid types.JID) *string {
	if jid.Server != types.DefaultUserServer || jid.User == "" {
		return nil
	}
	p := "+" + jid.User
	return &p
}

// ChatJID is the inverse of UserID: the private chat for a stored user id.
func ChatJID(userID string) string {
	if lid, ok := strings.CutSuffix(userID, store.LIDSuffix); ok {
		return types.NewJID(lid, types.HiddenUserServer).String()
	}
	if strings.Contains(userID, "@") {
		return userID
	}
	return types.NewJID(userID, types.DefaultUserServer).String()
}

// GroupID maps a group JID to its collection key.
func GroupID(jid types.JID) string {
	return jid.User
}
