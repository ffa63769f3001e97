package model

import (
	"time"

	"github.com/mnemo-lab/mnemo/pkg/domain/types"
)

// MessageRecord is a normalized member message fetched from the external
// source. Records are immutable once fetched and replaced wholesale on cache
// invalidation.
type MessageRecord struct {
	ID         types.MessageID
	MemberID   types.MemberID
	MemberName string
	Text       string
	Timestamp  time.Time
}
