package wa

import (
	"testing"

	"go.mau.fi/whatsmeow/types"
)

func TestUserID(t *testing.T) {
	tests := []struct {
		jid  types.JID
		want string
	}{
		{types.NewJID("5511999990000", types.DefaultUserServer), "5511999990000"},
		{types.JID{User: "5511999990000", Server: types.DefaultUserServer, Device: 3}, "5511999990000"},
		{types.NewJID("3917077286968", types.HiddenUserServer), "3917077286968@lid"},
	}
	for _, tt := range tests {
		if got := UserID(tt.jid); got != tt.want {
			t.Errorf("UserID(%v) = %q, want %q", tt.jid, got, tt.want)
		}
	}
}

func TestChatJIDRoundTrip(t *testing.T) {
	for _, jid := range []types.JID{
		types.NewJID("5511999990000", types.DefaultUserServer),
		types.NewJID("3917077286968", types.HiddenUserServer),
	} {
		if got := ChatJID(UserID(jid)); got != jid.String() {
			t.Errorf("ChatJID(UserID(%v)) = %q", jid, got)
		}
	}
}

func TestPhone(t *testing.T) {
	if p := Phone(types.NewJID("5511999990000", types.DefaultUserServer)); p == nil || *p != "+5511999990000" {
		t.Errorf("Phone(pn) = %v", p)
	}
	if p := Phone(types.NewJID("3917077286968", types.HiddenUserServer)); p != nil {
		t.Errorf("Phone(lid) = %q, want nil", *p)
	}
}
