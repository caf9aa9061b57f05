// Package domain contains the wire-level data model exchanged with the
// browser: the mirrored channel/user tree and the outbound event payloads.
// No logic here, just meta-data.
package domain

// ChannelNode mirrors one upstream channel for a tree snapshot.
// IDs are the string form of the upstream integer handles so the
// browser can round-trip them without precision concerns.
type ChannelNode struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Users       []UserSummary  `json:"users"`
	Children    []*ChannelNode `json:"children"`
	IsExpanded  bool           `json:"isExpanded"`
	ParentID    string         `json:"parentId,omitempty"`
}

// UserSummary is one upstream user as seen in a tree snapshot.
// Mute/deaf flags fold server-imposed and self-imposed state together.
type UserSummary struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	IsMuted    bool   `json:"isMuted"`
	IsDeafened bool   `json:"isDeafened"`
	IsTalking  bool   `json:"isTalking"`
	IsSelf     bool   `json:"isSelf"`
	ChannelID  string `json:"channelId"`
}
