// Package ledger records match events in an append-only, hash-chained log and
// exports it as a signed .molt artifact that can be verified offline.
package ledger

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

type Round string

const (
	RoundPreMatch Round = "PRE_MATCH"
	RoundSiege    Round = "SIEGE"
	RoundDefense  Round = "DEFENSE"
	RoundCounter  Round = "COUNTER"
	RoundJudgment Round = "JUDGMENT"
)

type Action string

const (
	ActionShieldSubmitted  Action = "SHIELD_SUBMITTED"
	ActionRoundStart       Action = "ROUND_START"
	ActionAttackExecuted   Action = "ATTACK_EXECUTED"
	ActionIntegrityUpdate  Action = "INTEGRITY_UPDATE"
	ActionScoresCalculated Action = "SCORES_CALCULATED"
	ActionWinnerDeclared   Action = "WINNER_DECLARED"
)

const (
	ActorSystem = "SYSTEM"
	ActorJudge  = "JUDGE"
)

// GenesisHash is the previousHash of the first event in every chain.
var GenesisHash = strings.Repeat("0", 64)

type Event struct {
	ID            string          `json:"id"`
	Timestamp     int64           `json:"timestamp"`
	Round         Round           `json:"round"`
	Actor         string          `json:"actor"`
	Action        Action          `json:"action"`
	Payload       json.RawMessage `json:"payload"`
	IntegrityHash string          `json:"integrityHash"`
	PreviousHash  string          `json:"previousHash"`
}

// hashEnvelope fixes the field order of the hashed serialization.
type hashEnvelope struct {
	ID           string          `json:"id"`
	Timestamp    int64           `json:"timestamp"`
	Round        Round           `json:"round"`
	Actor        string          `json:"actor"`
	Action       Action          `json:"action"`
	Payload      json.RawMessage `json:"payload"`
	PreviousHash string          `json:"previousHash"`
}

// EventHash computes the integrity hash of e from every field except
// IntegrityHash itself. Payload whitespace does not affect the result.
func EventHash(e Event) (string, error) {
	payload := e.Payload
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}
	data, err := json.Marshal(hashEnvelope{
		ID:           e.ID,
		Timestamp:    e.Timestamp,
		Round:        e.Round,
		Actor:        e.Actor,
		Action:       e.Action,
		Payload:      payload,
		PreviousHash: e.PreviousHash,
	})
	if err != nil {
		return "", fmt.Errorf("encode event %s: %w", e.ID, err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Ledger is owned by a single match. Append is serialized internally so a
// runner may read Events while the engine is still writing.
type Ledger struct {
	mu      sync.Mutex
	matchID string
	agents  []Participant
	events  []Event
	tail    string
	now     func() time.Time
	entropy *ulid.MonotonicEntropy
}

func New(matchID string, agents ...Participant) *Ledger {
	return &Ledger{
		matchID: matchID,
		agents:  append([]Participant(nil), agents...),
		tail:    GenesisHash,
		now:     time.Now,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	if now != nil {
		l.now = now
	}
	return l
}

func (l *Ledger) MatchID() string { return l.matchID }

// Append hashes a new event onto the tail of the chain. payload is encoded
// with encoding/json; nil becomes an empty object.
func (l *Ledger) Append(round Round, actor string, action Action, payload any) (Event, error) {
	if payload == nil {
		payload = struct{}{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("encode %s payload: %w", action, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	at := l.now()
	id, err := ulid.New(ulid.Timestamp(at), l.entropy)
	if err != nil {
		return Event{}, fmt.Errorf("event id: %w", err)
	}
	evt := Event{
		ID:           "evt_" + id.String(),
		Timestamp:    at.UnixMilli(),
		Round:        round,
		Actor:        actor,
		Action:       action,
		Payload:      raw,
		PreviousHash: l.tail,
	}
	hash, err := EventHash(evt)
	if err != nil {
		return Event{}, err
	}
	evt.IntegrityHash = hash
	l.events = append(l.events, evt)
	l.tail = hash
	return evt, nil
}

// Events returns a copy of the chain in append order.
func (l *Ledger) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Event(nil), l.events...)
}

func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}

// Tail is the integrity hash of the newest event, or GenesisHash.
func (l *Ledger) Tail() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.tail
}

// VerifyChain recomputes every hash and link. An empty chain verifies. The
// returned error is a *ChainBreakError naming the first bad index.
func VerifyChain(events []Event) error {
	prev := GenesisHash
	for i, e := range events {
		if e.PreviousHash != prev {
			return &ChainBreakError{Index: i, EventID: e.ID, Reason: ReasonLinkMismatch}
		}
		hash, err := EventHash(e)
		if err != nil {
			return &ChainBreakError{Index: i, EventID: e.ID, Reason: ReasonUnreadable}
		}
		if hash != e.IntegrityHash {
			return &ChainBreakError{Index: i, EventID: e.ID, Reason: ReasonHashMismatch}
		}
		prev = e.IntegrityHash
	}
	return nil
}
