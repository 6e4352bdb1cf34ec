package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

const (
	FormatVersion = "1.0.0"
	FileExt       = ".molt"
)

type Participant struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

type Score struct {
	AgentID    string `json:"agentId"`
	Encryption int    `json:"encryption"`
	Attack     int    `json:"attack"`
	Speed      int    `json:"speed"`
	Total      int    `json:"total"`
}

// Artifact is the exported form of a finished match ledger.
type Artifact struct {
	Version     string        `json:"version"`
	MatchID     string        `json:"matchId"`
	CreatedAt   int64         `json:"createdAt"`
	Agents      []Participant `json:"agents"`
	Events      []Event       `json:"events"`
	FinalScores []Score       `json:"finalScores"`
	Winner      *string       `json:"winner"`
	Signature   string        `json:"signature"`
}

type signedSummary struct {
	MatchID    string  `json:"matchId"`
	EventCount int     `json:"eventCount"`
	LastHash   string  `json:"lastHash"`
	Scores     []Score `json:"scores"`
	Winner     *string `json:"winner"`
}

// Signature binds the match id, chain length and tail, every score component
// and the winner into one digest.
func Signature(matchID string, events []Event, scores []Score, winner *string) (string, error) {
	last := GenesisHash
	if n := len(events); n > 0 {
		last = events[n-1].IntegrityHash
	}
	if scores == nil {
		scores = []Score{}
	}
	data, err := json.Marshal(signedSummary{
		MatchID:    matchID,
		EventCount: len(events),
		LastHash:   last,
		Scores:     scores,
		Winner:     winner,
	})
	if err != nil {
		return "", fmt.Errorf("encode signature summary: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Export snapshots the chain into a signed artifact. A nil winner records a draw.
func (l *Ledger) Export(scores []Score, winner *string) (*Artifact, error) {
	events := l.Events()
	l.mu.Lock()
	agents := append([]Participant{}, l.agents...)
	createdAt := l.now().UnixMilli()
	l.mu.Unlock()

	sig, err := Signature(l.matchID, events, scores, winner)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []Event{}
	}
	final := make([]Score, len(scores))
	copy(final, scores)
	return &Artifact{
		Version:     FormatVersion,
		MatchID:     l.matchID,
		CreatedAt:   createdAt,
		Agents:      agents,
		Events:      events,
		FinalScores: final,
		Winner:      winner,
		Signature:   sig,
	}, nil
}

// VerifyArtifact checks the event chain first and then the signature.
func VerifyArtifact(a *Artifact) error {
	if a == nil {
		return ErrEmptyArtifact
	}
	if err := VerifyChain(a.Events); err != nil {
		return err
	}
	sig, err := Signature(a.MatchID, a.Events, a.FinalScores, a.Winner)
	if err != nil {
		return err
	}
	if sig != a.Signature {
		return ErrSignatureMismatch
	}
	return nil
}

// Report summarizes a verification for API and CLI callers.
type Report struct {
	Valid       bool   `json:"valid"`
	MatchID     string `json:"matchId"`
	EventCount  int    `json:"eventCount"`
	Signature   string `json:"signature"`
	BrokenIndex *int   `json:"brokenIndex,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

func Inspect(a *Artifact) Report {
	if a == nil {
		return Report{Reason: ErrEmptyArtifact.Error()}
	}
	r := Report{MatchID: a.MatchID, EventCount: len(a.Events), Signature: a.Signature}
	err := VerifyArtifact(a)
	if err == nil {
		r.Valid = true
		return r
	}
	var brk *ChainBreakError
	if errors.As(err, &brk) {
		idx := brk.Index
		r.BrokenIndex = &idx
		r.Reason = brk.Reason
		return r
	}
	r.Reason = err.Error()
	return r
}

// FileName is the artifact file name for a match.
func FileName(matchID string) string {
	return matchID + FileExt
}

// WriteArtifact writes a as indented JSON to dir/<matchId>.molt and returns the path.
func WriteArtifact(dir string, a *Artifact) (string, error) {
	if a == nil {
		return "", ErrEmptyArtifact
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create molt dir: %w", err)
	}
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode artifact: %w", err)
	}
	path := filepath.Join(dir, FileName(a.MatchID))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write artifact: %w", err)
	}
	return path, nil
}

func LoadArtifact(path string) (*Artifact, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return DecodeArtifact(f)
}

func DecodeArtifact(r io.Reader) (*Artifact, error) {
	var a Artifact
	if err := json.NewDecoder(r).Decode(&a); err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}
	return &a, nil
}
