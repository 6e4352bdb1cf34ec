// Package spectatorpush announces match lifecycles to chat webhooks.
package spectatorpush

import "time"

const (
	EventMatchStart  = "match:start"
	EventMatchRound  = "match:round"
	EventMatchEnd    = "match:end"
	EventMatchFailed = "match:failed"
)

const (
	ScopeAll   = "all"
	ScopeMatch = "match"
	ScopeAgent = "agent"
)

type PushTarget struct {
	Platform       string   `json:"platform"`
	Endpoint       string   `json:"endpoint"`
	Secret         string   `json:"secret"`
	ScopeType      string   `json:"scope_type"`
	ScopeValue     string   `json:"scope_value"`
	EventAllowlist []string `json:"event_allowlist"`
	Enabled        bool     `json:"enabled"`
}

type Config struct {
	Enabled             bool
	ConfigPath          string
	ConfigReload        time.Duration
	Targets             []PushTarget
	Workers             int
	RetryMax            int
	RetryBase           time.Duration
	FailureThreshold    int
	CircuitOpenDuration time.Duration
	RequestTimeout      time.Duration
	DispatchBuffer      int
}

// Announcement is one match lifecycle step, flattened for formatting and
// routing.
type Announcement struct {
	EventType string
	MatchID   string
	ServerTS  int64
	AgentA    Side
	AgentB    Side
	Round     string
	Winner    string
	IsDraw    bool
	Reason    string
	Signature string
}

// Side is a combatant as announced. Total is set once the match is judged.
type Side struct {
	ID       string
	Name     string
	Category string
	Total    *int
}

func (a Announcement) involves(agentID string) bool {
	return agentID != "" && (a.AgentA.ID == agentID || a.AgentB.ID == agentID)
}

func (a Announcement) terminal() bool {
	return a.EventType == EventMatchEnd || a.EventType == EventMatchFailed
}

type MessageField struct {
	Name   string
	Value  string
	Inline bool
}

type FormattedMessage struct {
	PanelKey    string
	Title       string
	Content     string
	Description string
	Color       int
	Timestamp   string
	Footer      string
	Fields      []MessageField
}

type pushJob struct {
	Target    PushTarget
	Formatted FormattedMessage
	Attempt   int
	Terminal  bool
}

func (j pushJob) key() string {
	return targetKey(j.Target)
}

func targetKey(t PushTarget) string {
	return t.Platform + "|" + t.Endpoint + "|" + t.ScopeType + "|" + t.ScopeValue
}
