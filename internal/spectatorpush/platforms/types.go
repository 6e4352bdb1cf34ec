// Package platforms posts formatted match panels to chat webhooks.
package platforms

import (
	"context"
	"strings"
	"sync"
)

type Field struct {
	Name   string
	Value  string
	Inline bool
}

type Message struct {
	PanelKey    string
	Title       string
	Content     string
	Description string
	Color       int
	Timestamp   string
	Footer      string
	Fields      []Field
}

type Adapter interface {
	Name() string
	Send(ctx context.Context, endpoint, secret string, msg Message) error
}

// panelIDs remembers the platform message id of each endpoint's panel.
type panelIDs struct {
	mu   sync.Mutex
	byID map[string]string
}

func panelKey(endpoint, key string) string {
	return strings.TrimSpace(endpoint) + "|" + strings.TrimSpace(key)
}

func (p *panelIDs) get(endpoint, key string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.byID[panelKey(endpoint, key)]
}

func (p *panelIDs) set(endpoint, key, msgID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.byID == nil {
		p.byID = map[string]string{}
	}
	p.byID[panelKey(endpoint, key)] = msgID
}

func (p *panelIDs) ForgetPanel(endpoint, key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.byID, panelKey(endpoint, key))
}
