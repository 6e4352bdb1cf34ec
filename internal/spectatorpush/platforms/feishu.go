package platforms

import (
	"context"
	"net/http"
	"strings"
)

// FeishuAdapter posts interactive cards. Feishu bot webhooks cannot edit a
// sent card, so every panel update is a new message.
type FeishuAdapter struct {
	client *HTTPClient
}

func NewFeishuAdapter(client *HTTPClient) *FeishuAdapter {
	return &FeishuAdapter{client: client}
}

func (a *FeishuAdapter) Name() string { return "feishu" }

type feishuText struct {
	Tag     string `json:"tag"`
	Content string `json:"content,omitempty"`
	Text    string `json:"text,omitempty"`
}

func feishuCard(msg Message) map[string]any {
	body := msg.Description
	if body == "" {
		body = msg.Content
	}
	elements := []feishuText{{Tag: "markdown", Text: body}}
	for _, f := range msg.Fields {
		elements = append(elements, feishuText{Tag: "markdown", Text: "**" + f.Name + "**: " + f.Value})
	}
	if msg.Footer != "" {
		elements = append(elements, feishuText{Tag: "markdown", Text: "_" + msg.Footer + "_"})
	}
	return map[string]any{
		"msg_type": "interactive",
		"card": map[string]any{
			"header": map[string]any{
				"title":    feishuText{Tag: "plain_text", Content: msg.Title},
				"template": feishuTemplate(msg.Color),
			},
			"elements": elements,
		},
	}
}

// feishuTemplate picks the closest card header color.
func feishuTemplate(color int) string {
	switch color {
	case 0xED4245:
		return "red"
	case 0xFEE75C:
		return "yellow"
	case 0x57F287, 0x3BA55D:
		return "green"
	default:
		return "blue"
	}
}

func (a *FeishuAdapter) Send(ctx context.Context, endpoint, secret string, msg Message) error {
	var headers map[string]string
	if s := strings.TrimSpace(secret); s != "" {
		headers = map[string]string{"X-Lark-Signature": s}
	}
	_, err := a.client.SendJSON(ctx, http.MethodPost, endpoint, headers, feishuCard(msg))
	return err
}
