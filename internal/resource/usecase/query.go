package usecase

import (
	"cmp"
	"encoding/json"
	"regexp"
	"slices"
	"strconv"
	"strings"

	apperrors "github.com/allisson/restgate/internal/errors"
	"github.com/allisson/restgate/internal/httputil"
	"github.com/allisson/restgate/internal/store"
)

// ApplyQuery filters, sorts and pages records. It returns the selected records
// and the number of records that matched the filters.
func ApplyQuery(records []store.Record, q httputil.ListQuery) ([]store.Record, int, error) {
	matchers, err := compileFilters(q.Filters)
	if err != nil {
		return nil, 0, err
	}

	matched := make([]store.Record, 0, len(records))
	for _, rec := range records {
		if matchesAll(rec, matchers) {
			matched = append(matched, rec)
		}
	}

	if len(q.Sort) > 0 {
		sortRecords(matched, q.Sort, q.Order)
	}

	total := len(matched)
	return window(matched, q), total, nil
}

// FilterOwned keeps the records whose owner field equals ownerID.
func FilterOwned(records []store.Record, ownerField, ownerID string) []store.Record {
	out := make([]store.Record, 0, len(records))
	for _, rec := range records {
		if store.FormatID(lookup(rec, ownerField)) == ownerID && ownerID != "" {
			out = append(out, rec)
		}
	}
	return out
}

type matcher struct {
	field string
	match func(value any, present bool) bool
}

func compileFilters(filters []httputil.Filter) ([]matcher, error) {
	matchers := make([]matcher, 0, len(filters))
	for _, f := range filters {
		values := f.Values
		switch f.Operator {
		case httputil.FilterEq:
			matchers = append(matchers, matcher{f.Field, func(v any, present bool) bool {
				return present && slices.Contains(values, stringValue(v))
			}})
		case httputil.FilterNe:
			matchers = append(matchers, matcher{f.Field, func(v any, present bool) bool {
				return !present || !slices.Contains(values, stringValue(v))
			}})
		case httputil.FilterGte:
			matchers = append(matchers, matcher{f.Field, func(v any, present bool) bool {
				return present && compareAll(v, values, func(c int) bool { return c >= 0 })
			}})
		case httputil.FilterLte:
			matchers = append(matchers, matcher{f.Field, func(v any, present bool) bool {
				return present && compareAll(v, values, func(c int) bool { return c <= 0 })
			}})
		case httputil.FilterLike:
			patterns := make([]*regexp.Regexp, 0, len(values))
			for _, raw := range values {
				re, err := regexp.Compile("(?i)" + raw)
				if err != nil {
					return nil, apperrors.Wrapf(apperrors.ErrInvalidInput, "invalid %s_like pattern", f.Field)
				}
				patterns = append(patterns, re)
			}
			matchers = append(matchers, matcher{f.Field, func(v any, present bool) bool {
				if !present {
					return false
				}
				s := stringValue(v)
				return slices.ContainsFunc(patterns, func(re *regexp.Regexp) bool { return re.MatchString(s) })
			}})
		}
	}
	return matchers, nil
}

func matchesAll(rec store.Record, matchers []matcher) bool {
	for _, m := range matchers {
		v, present := lookupPresent(rec, m.field)
		if !m.match(v, present) {
			return false
		}
	}
	return true
}

func compareAll(v any, values []string, ok func(int) bool) bool {
	for _, want := range values {
		if !ok(compareValue(v, want)) {
			return false
		}
	}
	return true
}

// compareValue compares numerically when both sides are numbers, as strings otherwise.
func compareValue(v any, want string) int {
	if n, isNumber := v.(float64); isNumber {
		if w, err := strconv.ParseFloat(want, 64); err == nil {
			return cmp.Compare(n, w)
		}
	}
	return strings.Compare(stringValue(v), want)
}

func sortRecords(records []store.Record, fields, orders []string) {
	slices.SortStableFunc(records, func(a, b store.Record) int {
		for i, field := range fields {
			c := compareFields(lookup(a, field), lookup(b, field))
			if i < len(orders) && orders[i] == "desc" {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return 0
	})
}

func compareFields(a, b any) int {
	// Missing values sort first.
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}

	an, aNumber := a.(float64)
	bn, bNumber := b.(float64)
	if aNumber && bNumber {
		return cmp.Compare(an, bn)
	}
	return strings.Compare(stringValue(a), stringValue(b))
}

func window(records []store.Record, q httputil.ListQuery) []store.Record {
	total := len(records)
	start, end := 0, total

	switch {
	case q.Sliced():
		if q.Start > 0 {
			start = q.Start
		}
		switch {
		case q.End >= 0:
			end = q.End
		case q.Limit > 0:
			end = start + q.Limit
		}
	case q.Paginated():
		page := max(q.Page, 1)
		start = (page - 1) * q.Limit
		end = start + q.Limit
	}

	start = min(start, total)
	end = min(max(end, start), total)
	return records[start:end]
}

// lookup returns the value at a dotted path such as "author.name".
func lookup(rec store.Record, path string) any {
	v, _ := lookupPresent(rec, path)
	return v
}

func lookupPresent(rec store.Record, path string) (any, bool) {
	var current any = map[string]any(rec)
	for part := range strings.SplitSeq(path, ".") {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = obj[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// stringValue renders a JSON value the way it appears in a query string.
func stringValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(data)
	}
}
