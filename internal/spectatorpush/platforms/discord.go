package platforms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// DiscordAdapter posts embeds. Messages with a PanelKey are created once
// with ?wait=true and edited in place afterwards.
type DiscordAdapter struct {
	client *HTTPClient
	panelIDs
}

func NewDiscordAdapter(client *HTTPClient) *DiscordAdapter {
	return &DiscordAdapter{client: client}
}

func (a *DiscordAdapter) Name() string { return "discord" }

type discordField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type discordFooter struct {
	Text string `json:"text"`
}

type discordEmbed struct {
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Color       int            `json:"color,omitempty"`
	Timestamp   string         `json:"timestamp,omitempty"`
	Footer      *discordFooter `json:"footer,omitempty"`
	Fields      []discordField `json:"fields,omitempty"`
}

type discordPayload struct {
	Content string         `json:"content,omitempty"`
	Embeds  []discordEmbed `json:"embeds"`
}

func discordMessage(msg Message) discordPayload {
	embed := discordEmbed{
		Title:       msg.Title,
		Description: msg.Description,
		Color:       msg.Color,
		Timestamp:   msg.Timestamp,
	}
	if msg.Footer != "" {
		embed.Footer = &discordFooter{Text: msg.Footer}
	}
	for _, f := range msg.Fields {
		embed.Fields = append(embed.Fields, discordField{Name: f.Name, Value: f.Value, Inline: f.Inline})
	}
	return discordPayload{Content: msg.Content, Embeds: []discordEmbed{embed}}
}

func (a *DiscordAdapter) Send(ctx context.Context, endpoint, _ string, msg Message) error {
	payload := discordMessage(msg)
	if strings.TrimSpace(msg.PanelKey) == "" {
		_, err := a.client.SendJSON(ctx, http.MethodPost, endpoint, nil, payload)
		return err
	}

	if msgID := a.get(endpoint, msg.PanelKey); msgID != "" {
		if editURL, ok := discordEditURL(endpoint, msgID); ok {
			_, err := a.client.SendJSON(ctx, http.MethodPatch, editURL, nil, payload)
			var se *StatusError
			if err == nil || !errors.As(err, &se) || se.Code != http.StatusNotFound {
				return err
			}
		}
	}

	msgID, err := a.create(ctx, endpoint, payload)
	if err != nil {
		return err
	}
	a.set(endpoint, msg.PanelKey, msgID)
	return nil
}

func (a *DiscordAdapter) create(ctx context.Context, endpoint string, payload discordPayload) (string, error) {
	sep := "?"
	if strings.Contains(endpoint, "?") {
		sep = "&"
	}
	body, err := a.client.SendJSON(ctx, http.MethodPost, endpoint+sep+"wait=true", nil, payload)
	if err != nil {
		return "", err
	}
	var created struct {
		ID string `json:"id"`
	}
	if json.Unmarshal(body, &created) != nil || strings.TrimSpace(created.ID) == "" {
		return "", fmt.Errorf("discord webhook create message missing id")
	}
	return created.ID, nil
}

// discordEditURL maps /api/webhooks/{id}/{token} to its message edit URL.
func discordEditURL(endpoint, msgID string) (string, bool) {
	u, err := url.Parse(endpoint)
	if err != nil || msgID == "" {
		return "", false
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 4 || parts[0] != "api" || parts[1] != "webhooks" {
		return "", false
	}
	u.Path = "/api/webhooks/" + parts[2] + "/" + parts[3] + "/messages/" + msgID
	u.RawQuery = ""
	return u.String(), true
}
