package core

// Frame is a raw outbound payload (a marshaled envelope).
type Frame []byte

// SessionID identifies one browser connection.
type SessionID string

// SignalConnection abstracts the browser-facing messaging transport.
// Owned by the adapter; the adapter must Close() it. TrySend never
// blocks: all writes funnel through a per-connection queue so outbound
// frames are serialized.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}
