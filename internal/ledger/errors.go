package ledger

import (
	"errors"
	"fmt"
)

var (
	ErrSignatureMismatch = errors.New("signature_mismatch")
	ErrEmptyArtifact     = errors.New("empty_artifact")
)

const (
	ReasonLinkMismatch = "previous_hash_mismatch"
	ReasonHashMismatch = "integrity_hash_mismatch"
	ReasonUnreadable   = "payload_unreadable"
)

// ChainBreakError reports the first event whose link or hash does not verify.
type ChainBreakError struct {
	Index   int
	EventID string
	Reason  string
}

func (e *ChainBreakError) Error() string {
	return fmt.Sprintf("chain broken at event %d (%s): %s", e.Index, e.EventID, e.Reason)
}
