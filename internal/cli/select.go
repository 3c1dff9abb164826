// Package cli holds the helpers behind the ecs-scheduler command.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/edvin/ecs-scheduler/internal/model"
)

// StringList is a repeatable string flag.
type StringList []string

func (l *StringList) String() string { return strings.Join(*l, ",") }

func (l *StringList) Set(v string) error {
	if v == "" {
		return fmt.Errorf("empty value")
	}
	*l = append(*l, v)
	return nil
}

// Select keeps the records named in names (by cluster name or ARN) or
// governed by schedule. With neither filter nothing is selected.
func Select(records []model.ClusterRecord, names []string, schedule string) []model.ClusterRecord {
	var out []model.ClusterRecord
	for _, r := range records {
		switch {
		case slices.Contains(names, r.ID), slices.Contains(names, r.ARN):
			out = append(out, r)
		case schedule != "" && r.ScheduleName == schedule:
			out = append(out, r)
		}
	}
	return out
}

// PrintJSON writes v as indented JSON.
func PrintJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
