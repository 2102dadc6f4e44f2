package ingest

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/spf13/cast"

	"dealgraph/internal/config"
	"dealgraph/internal/graph"
)

// record reads canonical fields from an ExternalRecord through a provider
// field map.
type record struct {
	fields config.FieldMap
	data   map[string]any
}

func newRecord(p *config.Provider, r ExternalRecord) record {
	return record{fields: p.Fields(r.Kind), data: r.Fields}
}

// value returns the first non-empty provider field mapped to canonical.
func (r record) value(canonical string) (any, bool) {
	for _, name := range r.fields.Sources(canonical) {
		v, ok := r.data[name]
		if !ok || v == nil {
			continue
		}
		if s, isString := v.(string); isString && strings.TrimSpace(s) == "" {
			continue
		}
		return v, true
	}
	return nil, false
}

func (r record) str(canonical string) string {
	v, _ := r.value(canonical)
	return toString(v)
}

func (r record) float(canonical string) (float64, bool) {
	v, ok := r.value(canonical)
	if !ok {
		return 0, false
	}
	return toFloat(v)
}

func (r record) timestamp(canonical string) time.Time {
	v, _ := r.value(canonical)
	return toTime(v)
}

func (r record) list(canonical string) []string {
	v, _ := r.value(canonical)
	return toStrings(v)
}

func toString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case time.Time:
		return v.Format(time.RFC3339)
	}
	s, err := cast.ToStringE(value)
	if err != nil {
		s = fmt.Sprint(value)
	}
	return strings.TrimSpace(s)
}

var numberNoise = strings.NewReplacer(",", "", "$", "", "%", "")

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case nil, bool:
		return 0, false
	case string:
		value = strings.TrimSpace(numberNoise.Replace(v))
	}
	f, err := cast.ToFloat64E(value)
	if err != nil || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// toTime accepts timestamps, date strings in the layouts cast understands,
// and epoch values in seconds or milliseconds. Zone-less strings are UTC.
func toTime(value any) time.Time {
	switch v := value.(type) {
	case nil:
		return time.Time{}
	case time.Time:
		return v.UTC()
	case string:
		s := strings.TrimSpace(v)
		if t, err := cast.ToTimeInDefaultLocationE(s, time.UTC); err == nil {
			return t.UTC()
		}
		if f, ok := toFloat(s); ok {
			return epoch(f)
		}
		return time.Time{}
	}
	if f, ok := toFloat(value); ok {
		return epoch(f)
	}
	return time.Time{}
}

func epoch(f float64) time.Time {
	if f <= 0 {
		return time.Time{}
	}
	if f > 1e11 {
		return time.UnixMilli(int64(f)).UTC()
	}
	return time.Unix(int64(f), 0).UTC()
}

func toBool(value any, fallback bool) bool {
	if value == nil {
		return fallback
	}
	if s, ok := value.(string); ok {
		value = strings.TrimSpace(s)
	}
	b, err := cast.ToBoolE(value)
	if err != nil {
		return fallback
	}
	return b
}

// toStrings accepts a list or a comma or semicolon separated string.
func toStrings(value any) []string {
	var raw []string
	switch v := value.(type) {
	case nil:
		return nil
	case []any, []string:
		list, err := cast.ToStringSliceE(v)
		if err != nil {
			return nil
		}
		raw = list
	default:
		raw = strings.FieldsFunc(toString(v), func(r rune) bool { return r == ',' || r == ';' })
	}
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func contactName(r record) string {
	if name := r.str("name"); name != "" {
		return name
	}
	name := strings.TrimSpace(r.str("first_name") + " " + r.str("last_name"))
	if name != "" {
		return name
	}
	return r.str("email")
}

func contactRole(r record, title string) graph.Role {
	switch role := graph.Role(strings.ToLower(r.str("role"))); role {
	case graph.RoleDecisionMaker, graph.RoleInfluencer, graph.RoleEndUser:
		return role
	}
	return graph.InferRole(title)
}

// stageProbability is the win probability assumed when a deal carries none.
var stageProbability = map[graph.DealStage]int{
	graph.StageNew:         10,
	graph.StageContacted:   20,
	graph.StageQualified:   40,
	graph.StageProposal:    60,
	graph.StageNegotiation: 80,
	graph.StageClosedWon:   100,
	graph.StageClosedLost:  0,
}

func dealStage(p *config.Provider, raw string) (graph.DealStage, bool) {
	stage := graph.DealStage(strings.ReplaceAll(p.Stage(raw), " ", "_"))
	if _, ok := stageProbability[stage]; ok {
		return stage, true
	}
	return graph.StageNew, false
}

func interactionType(raw string) graph.InteractionType {
	kind := graph.InteractionType(strings.ToLower(strings.TrimSpace(raw)))
	if kind.Valid() {
		return kind
	}
	s := string(kind)
	switch {
	case strings.Contains(s, "email"):
		return graph.InteractionEmail
	case strings.Contains(s, "call"):
		return graph.InteractionCall
	case strings.Contains(s, "meeting"):
		return graph.InteractionMeeting
	case strings.Contains(s, "task"):
		return graph.InteractionTask
	}
	return graph.InteractionNote
}

func edgeID(source string, edgeType graph.EdgeType, target string) string {
	return source + ":" + string(edgeType) + ":" + target
}
