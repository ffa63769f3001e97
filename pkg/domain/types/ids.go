package types

import "github.com/google/uuid"

// MessageID is the external identifier of a member message
type MessageID string

// String returns the string representation of the message ID
func (m MessageID) String() string {
	return string(m)
}

// MemberID is the external identifier of a member
type MemberID string

// String returns the string representation of the member ID
func (m MemberID) String() string {
	return string(m)
}

// DocumentID identifies an indexable document. Document IDs are derived
// deterministically from the member and message IDs they cover.
type DocumentID string

// String returns the string representation of the document ID
func (d DocumentID) String() string {
	return string(d)
}

// SnapshotID identifies one persisted image of a built index
type SnapshotID string

// NewSnapshotID generates a new UUID v4 SnapshotID
func NewSnapshotID() SnapshotID {
	return SnapshotID(uuid.New().String())
}

// String returns the string representation of the snapshot ID
func (s SnapshotID) String() string {
	return string(s)
}
