package spectatorpush

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"claw-colosseum/internal/config"
)

func ConfigFromServer(cfg config.ServerConfig) (Config, error) {
	out := Config{
		Enabled:             cfg.SpectatorPushEnabled,
		ConfigPath:          strings.TrimSpace(cfg.SpectatorPushConfigPath),
		ConfigReload:        cfg.SpectatorPushConfigReload,
		Workers:             cfg.SpectatorPushWorkers,
		RetryMax:            cfg.SpectatorPushRetryMax,
		RetryBase:           cfg.SpectatorPushRetryBase,
		FailureThreshold:    3,
		CircuitOpenDuration: 30 * time.Second,
		RequestTimeout:      5 * time.Second,
		DispatchBuffer:      256,
	}
	if !out.Enabled {
		return out, nil
	}
	if out.RetryMax < 0 {
		out.RetryMax = 0
	}

	raw, err := loadTargetsJSON(out.ConfigPath, cfg.SpectatorPushConfigJSON)
	if err != nil {
		return Config{}, err
	}
	if raw == "" {
		return out, nil
	}
	targets, err := parseTargetsJSON(raw)
	if err != nil {
		return Config{}, err
	}
	out.Targets = targets
	return out, nil
}

// loadTargetsJSON prefers the file so a reloadable config wins over the
// inline variable.
func loadTargetsJSON(path, inline string) (string, error) {
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read spectator push config %q: %w", path, err)
		}
		return strings.TrimSpace(string(raw)), nil
	}
	return strings.TrimSpace(inline), nil
}

// parseTargetsJSON drops disabled targets, targets without an endpoint and
// targets with an unknown scope.
func parseTargetsJSON(raw string) ([]PushTarget, error) {
	var targets []PushTarget
	if err := json.Unmarshal([]byte(raw), &targets); err != nil {
		return nil, fmt.Errorf("parse spectator push targets: %w", err)
	}
	out := make([]PushTarget, 0, len(targets))
	for _, t := range targets {
		t.Platform = strings.ToLower(strings.TrimSpace(t.Platform))
		t.Endpoint = strings.TrimSpace(t.Endpoint)
		t.ScopeType = strings.ToLower(strings.TrimSpace(t.ScopeType))
		if t.ScopeType == "" {
			t.ScopeType = ScopeAll
		}
		switch t.ScopeType {
		case ScopeAll, ScopeMatch, ScopeAgent:
		default:
			continue
		}
		if !t.Enabled || t.Endpoint == "" {
			continue
		}
		for i := range t.EventAllowlist {
			t.EventAllowlist[i] = strings.ToLower(strings.TrimSpace(t.EventAllowlist[i]))
		}
		out = append(out, t)
	}
	return out, nil
}
