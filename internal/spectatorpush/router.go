package spectatorpush

// MatchTargets returns the targets that want ann, in configuration order.
func MatchTargets(targets []PushTarget, ann Announcement) []PushTarget {
	var out []PushTarget
	for _, t := range targets {
		if !t.Enabled || !scopeMatches(t, ann) || !eventAllowed(t.EventAllowlist, ann.EventType) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func scopeMatches(t PushTarget, ann Announcement) bool {
	switch t.ScopeType {
	case ScopeAll:
		return true
	case ScopeMatch:
		return t.ScopeValue != "" && t.ScopeValue == ann.MatchID
	case ScopeAgent:
		return ann.involves(t.ScopeValue)
	default:
		return false
	}
}

func eventAllowed(allowlist []string, event string) bool {
	if len(allowlist) == 0 {
		return true
	}
	for _, v := range allowlist {
		if v == event {
			return true
		}
	}
	return false
}
