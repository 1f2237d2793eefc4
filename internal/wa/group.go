package wa

import (
	"context"
	"fmt"
	"strings"

	"github.com/matheus3301/wpp-harvest/internal/command"
	"go.mau.fi/whatsmeow/types"
)

const inviteHost = "chat.whatsapp.com/"

// ParseGroupRef accepts a group JID, a bare group id or an invite link.
// Exactly one of jid and code is set on success.
func ParseGroupRef(ref string) (jid types.JID, code string, err error) {
	ref = strings.TrimSpace(ref)
	if i := strings.Index(ref, inviteHost); i >= 0 {
		code = strings.Trim(ref[i+len(inviteHost):], "/ ")
		if code, _, _ = strings.Cut(code, "?"); code == "" {
			return types.EmptyJID, "", fmt.Errorf("%w: empty invite code", command.ErrGroupUnavailable)
		}
		return types.EmptyJID, code, nil
	}
	if strings.Contains(ref, "@") {
		jid, err = types.ParseJID(ref)
		if err != nil || jid.Server != types.GroupServer {
			return types.EmptyJID, "", fmt.Errorf("%w: %q is not a group", command.ErrGroupUnavailable, ref)
		}
		return jid, "", nil
	}
	if !isGroupUser(ref) {
		return types.EmptyJID, "", fmt.Errorf("%w: unrecognised group reference %q", command.ErrGroupUnavailable, ref)
	}
	return types.NewJID(ref, types.GroupServer), "", nil
}

// Legacy group ids look like "<creator>-<timestamp>".
func isGroupUser(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '-' && i > 0 && i < len(s)-1 {
			continue
		}
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ResolveGroup fetches group metadata for AddGroup.
func (a *Adapter) ResolveGroup(ctx context.Context, ref string) (command.GroupInfo, error) {
	jid, code, err := ParseGroupRef(ref)
	if err != nil {
		return command.GroupInfo{}, err
	}

	var info *types.GroupInfo
	if code != "" {
		info, err = a.client.GetGroupInfoFromLink(ctx, code)
	} else {
		info, err = a.client.GetGroupInfo(ctx, jid)
	}
	if err != nil {
		return command.GroupInfo{}, fmt.Errorf("%w: %v", command.ErrGroupUnavailable, err)
	}
	return groupInfoFrom(info, a.self()), nil
}

func (a *Adapter) self() []types.JID {
	if a.client.Store.ID == nil {
		return nil
	}
	ids := []types.JID{a.client.Store.ID.ToNonAD()}
	if !a.client.Store.LID.IsEmpty() {
		ids = append(ids, a.client.Store.LID.ToNonAD())
	}
	return ids
}

func groupInfoFrom(info *types.GroupInfo, self []types.JID) command.GroupInfo {
	out := command.GroupInfo{
		ID:               GroupID(info.JID),
		Title:            info.Name,
		ParticipantCount: len(info.Participants),
	}
	for _, p := range info.Participants {
		if !p.IsAdmin && !p.IsSuperAdmin {
			continue
		}
		if isSelf(p.JID, self) || isSelf(p.LID, self) {
			out.SelfIsAdmin = true
			break
		}
	}
	return out
}

func isSelf(jid types.JID, self []types.JID) bool {
	if jid.IsEmpty() {
		return false
	}
	jid = jid.ToNonAD()
	for _, s := range self {
		if jid.User == s.User && jid.Server == s.Server {
			return true
		}
	}
	return false
}
