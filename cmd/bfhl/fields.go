package main

import (
	"fmt"
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/verte-zerg/bfhl/internal/model"
)

type fieldName struct {
	name  string
	field model.Field
}

func fieldNames() []fieldName {
	var names []fieldName
	for _, f := range model.AllFields {
		for _, alias := range model.FieldAliases(f) {
			names = append(names, fieldName{name: strings.ToLower(alias), field: f})
		}
	}
	return names
}

// resolveFields maps user tokens onto fields. Exact labels and aliases win;
// anything else is fuzzy matched against them.
func resolveFields(tokens []string) (model.Selection, error) {
	var sel model.Selection
	names := fieldNames()
	candidates := make([]string, len(names))
	for i, n := range names {
		candidates[i] = n.name
	}
	for _, token := range tokens {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		if strings.EqualFold(token, "all") {
			return model.NewSelection(model.AllFields...), nil
		}
		if f, ok := model.ParseField(token); ok {
			sel = sel.With(f)
			continue
		}
		matches := fuzzy.Find(strings.ToLower(token), candidates)
		if len(matches) == 0 {
			return 0, fmt.Errorf("unknown field %q (run: bfhl fields)", token)
		}
		sel = sel.With(names[matches[0].Index].field)
	}
	return sel, nil
}

func splitTokens(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return strings.Split(s, ",")
}
