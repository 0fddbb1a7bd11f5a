package domain

// FilterKind discriminates the decoded shapes of a channel filter expression.
type FilterKind int

const (
	// FilterAbsent means the channel carried no filters value at all.
	FilterAbsent FilterKind = iota
	// FilterPredicate is a single {type, value} leaf test.
	FilterPredicate
	// FilterList is a plain JSON list; it means AND over the well-formed
	// predicates it contains.
	FilterList
	// FilterGroup is an explicit {and_filters: [...]} / {or_filters: [...]}
	// combinator.
	FilterGroup
	// FilterInvalid is anything else; kept with the raw value for diagnostics.
	FilterInvalid
)

// String returns the kind name for diagnostics.
func (k FilterKind) String() string {
	switch k {
	case FilterAbsent:
		return "absent"
	case FilterPredicate:
		return "predicate"
	case FilterList:
		return "list"
	case FilterGroup:
		return "group"
	default:
		return "invalid"
	}
}

// Predicate is one leaf filter test.
type Predicate struct {
	Type  string
	Value string
}

// FilterExpr is the tagged union of filter shapes, decoded once from the
// raw JSON value so evaluation never has to re-inspect dynamic shapes.
type FilterExpr struct {
	Kind FilterKind

	// Pred is set when Kind is FilterPredicate.
	Pred Predicate

	// List holds the well-formed predicates of a FilterList. Malformed
	// entries are dropped at decode time; RawListLen keeps the original
	// entry count so an all-malformed list is still distinguishable from
	// an empty one.
	List       []Predicate
	RawListLen int

	// And/Or hold the decoded children of a FilterGroup. AndIsList/OrIsList
	// record whether the corresponding key was present with a list value;
	// a key present with a non-list value is kept only for the emptiness
	// rule below.
	And       []FilterExpr
	Or        []FilterExpr
	AndIsList bool
	OrIsList  bool

	// Raw preserves the original value for FilterInvalid diagnostics.
	Raw any

	empty bool
}

// DecodeFilterExpr classifies a raw JSON value into a FilterExpr.
//
// Emptiness follows the config dialect: absent values, empty lists, and
// mappings that carry neither a predicate nor a non-empty
// and_filters/or_filters arm count as "no filters", which marks the
// channel as the default fallback.
func DecodeFilterExpr(raw any) FilterExpr {
	switch v := raw.(type) {
	case nil:
		return FilterExpr{Kind: FilterAbsent, empty: true}
	case []any:
		expr := FilterExpr{Kind: FilterList, RawListLen: len(v), empty: len(v) == 0}
		for _, item := range v {
			if pred, ok := decodePredicate(item); ok {
				expr.List = append(expr.List, pred)
			}
		}
		return expr
	case map[string]any:
		rawAnd, hasAnd := v["and_filters"]
		rawOr, hasOr := v["or_filters"]
		if hasAnd || hasOr {
			expr := FilterExpr{
				Kind:  FilterGroup,
				empty: !truthy(rawAnd) && !truthy(rawOr),
			}
			if andList, ok := rawAnd.([]any); ok {
				expr.AndIsList = true
				for _, item := range andList {
					expr.And = append(expr.And, DecodeFilterExpr(item))
				}
			}
			if orList, ok := rawOr.([]any); ok {
				expr.OrIsList = true
				for _, item := range orList {
					expr.Or = append(expr.Or, DecodeFilterExpr(item))
				}
			}
			return expr
		}
		if pred, ok := decodePredicate(v); ok {
			return FilterExpr{Kind: FilterPredicate, Pred: pred}
		}
		return FilterExpr{Kind: FilterInvalid, Raw: v, empty: true}
	default:
		return FilterExpr{Kind: FilterInvalid, Raw: raw}
	}
}

// IsEmpty reports whether the expression marks its channel as the
// default fallback destination.
func (f FilterExpr) IsEmpty() bool {
	return f.empty
}

func decodePredicate(raw any) (Predicate, bool) {
	m, ok := raw.(map[string]any)
	if !ok {
		return Predicate{}, false
	}
	ptype, _ := m["type"].(string)
	pvalue, _ := m["value"].(string)
	if ptype == "" || pvalue == "" {
		return Predicate{}, false
	}
	return Predicate{Type: ptype, Value: pvalue}, true
}

// truthy mirrors JSON value truthiness for the emptiness rule.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case float64:
		return x != 0
	case []any:
		return len(x) > 0
	case map[string]any:
		return len(x) > 0
	default:
		return true
	}
}
