package seed

import (
	"context"
	_ "embed"
	"fmt"

	"yatube/internal/service"

	"gopkg.in/yaml.v3"
)

//go:embed groups.yml
var builtInGroupsYAML []byte

// BuiltInGroup is a group created on every installation.
type BuiltInGroup struct {
	Title       string `yaml:"title"`
	Slug        string `yaml:"slug"`
	Description string `yaml:"description"`
}

// BuiltInGroups returns the embedded group list.
func BuiltInGroups() ([]BuiltInGroup, error) {
	return parseGroups(builtInGroupsYAML)
}

func parseGroups(data []byte) ([]BuiltInGroup, error) {
	var groups []BuiltInGroup
	if err := yaml.Unmarshal(data, &groups); err != nil {
		return nil, fmt.Errorf("parse built-in groups: %w", err)
	}
	seen := make(map[string]bool, len(groups))
	for _, g := range groups {
		if seen[g.Slug] {
			return nil, fmt.Errorf("duplicate built-in group slug %q", g.Slug)
		}
		seen[g.Slug] = true
	}
	return groups, nil
}

// Groups creates or refreshes the built-in groups. It is safe to run on every start.
func Groups(ctx context.Context, groups *service.GroupService) (int, error) {
	items, err := BuiltInGroups()
	if err != nil {
		return 0, err
	}
	for _, item := range items {
		if _, err := groups.EnsureGroup(ctx, service.CreateGroupInput{
			Title:       item.Title,
			Slug:        item.Slug,
			Description: item.Description,
		}); err != nil {
			return 0, fmt.Errorf("seed built-in group %s: %w", item.Slug, err)
		}
	}
	return len(items), nil
}
