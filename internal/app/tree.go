package app

import (
	"github.com/dkeye/webmumble/internal/core"
	"github.com/dkeye/webmumble/internal/domain"
)

// rootChannelID is the upstream convention for the root of the tree.
const rootChannelID = 0

// maxTreeDepth bounds recursion while composing a snapshot. Upstream
// guarantees the parent links are acyclic, but that guarantee is not
// ours to rely on; subtrees past the bound are dropped.
const maxTreeDepth = 64

// SnapshotTree builds a full channel/user tree from collaborator state.
// No incremental diffing: the tree is small and the server owns ground
// truth, so every structural event rebuilds from scratch.
//
// An unresolvable root yields a synthetic empty node so the browser
// always receives a well-formed tree.
func SnapshotTree(voice core.VoiceClient) *domain.ChannelNode {
	channels := voice.Channels()
	users := voice.Users()

	var selfSession uint32
	hasSelf := false
	if self, ok := voice.Self(); ok {
		selfSession = self.Session
		hasSelf = true
	}

	byID := make(map[uint32]core.VoiceChannel, len(channels))
	children := make(map[uint32][]core.VoiceChannel)
	for _, ch := range channels {
		byID[ch.ID] = ch
		if ch.HasParent && ch.Parent != ch.ID {
			children[ch.Parent] = append(children[ch.Parent], ch)
		}
	}

	if _, ok := byID[rootChannelID]; !ok {
		return &domain.ChannelNode{
			ID:         domain.FormatID(rootChannelID),
			Name:       "Root",
			Users:      []domain.UserSummary{},
			Children:   []*domain.ChannelNode{},
			IsExpanded: true,
		}
	}

	b := &treeBuilder{
		byID:        byID,
		children:    children,
		users:       users,
		selfSession: selfSession,
		hasSelf:     hasSelf,
	}
	return b.compose(rootChannelID, 0)
}

type treeBuilder struct {
	byID        map[uint32]core.VoiceChannel
	children    map[uint32][]core.VoiceChannel
	users       []core.VoiceUser
	selfSession uint32
	hasSelf     bool
}

func (b *treeBuilder) compose(id uint32, depth int) *domain.ChannelNode {
	ch := b.byID[id]
	node := &domain.ChannelNode{
		ID:          domain.FormatID(id),
		Name:        ch.Name,
		Description: ch.Description,
		Users:       []domain.UserSummary{},
		Children:    []*domain.ChannelNode{},
		IsExpanded:  true,
	}
	if ch.HasParent {
		node.ParentID = domain.FormatID(ch.Parent)
	}

	for _, u := range b.users {
		if u.ChannelID != id {
			continue
		}
		node.Users = append(node.Users, domain.UserSummary{
			ID:         domain.FormatID(u.Session),
			Name:       u.Name,
			IsMuted:    u.Muted || u.SelfMuted,
			IsDeafened: u.Deafened || u.SelfDeafened,
			IsTalking:  false,
			IsSelf:     b.hasSelf && u.Session == b.selfSession,
			ChannelID:  domain.FormatID(id),
		})
	}

	if depth >= maxTreeDepth {
		return node
	}
	for _, sub := range b.children[id] {
		node.Children = append(node.Children, b.compose(sub.ID, depth+1))
	}
	return node
}
