package bulk

import (
	"strings"

	"github.com/adomcp/bridge/pkg/adoclient"
)

func stringField(fields adoclient.WorkItemFields, name string) string {
	v, ok := fields[name]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

func identityUniqueName(fields adoclient.WorkItemFields, name string) string {
	v, ok := fields[name]
	if !ok {
		return ""
	}
	m, ok := v.(map[string]any)
	if !ok {
		return ""
	}
	uniqueName, _ := m["uniqueName"].(string)
	return uniqueName
}

func splitTags(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func joinTags(tags []string) string {
	return strings.Join(tags, "; ")
}

// unionTags adds every tag in add not already present in current,
// preserving current's order.
func unionTags(current, add []string) []string {
	seen := make(map[string]struct{}, len(current))
	out := append([]string{}, current...)
	for _, t := range current {
		seen[strings.ToLower(t)] = struct{}{}
	}
	for _, t := range add {
		if _, ok := seen[strings.ToLower(t)]; ok {
			continue
		}
		seen[strings.ToLower(t)] = struct{}{}
		out = append(out, t)
	}
	return out
}

// subtractTags removes every tag in remove from current, preserving order.
func subtractTags(current, remove []string) []string {
	drop := make(map[string]struct{}, len(remove))
	for _, t := range remove {
		drop[strings.ToLower(t)] = struct{}{}
	}
	out := make([]string, 0, len(current))
	for _, t := range current {
		if _, ok := drop[strings.ToLower(t)]; ok {
			continue
		}
		out = append(out, t)
	}
	return out
}
