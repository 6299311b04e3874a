package httputil

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// Filter operators understood in list queries. A bare field name means equality.
const (
	FilterEq   = "eq"
	FilterNe   = "ne"
	FilterGte  = "gte"
	FilterLte  = "lte"
	FilterLike = "like"
)

// MaxPageLimit caps the _limit query parameter.
const MaxPageLimit = 1000

// Filter is a single field condition taken from the query string.
type Filter struct {
	Field    string
	Operator string
	Values   []string
}

// ListQuery is the parsed form of a collection listing request.
type ListQuery struct {
	Filters []Filter
	Sort    []string
	Order   []string
	// Page and Limit are zero when pagination was not requested.
	Page  int
	Limit int
	// Start and End are -1 when slicing was not requested.
	Start int
	End   int
}

// Paginated reports whether _page or _limit was supplied.
func (q ListQuery) Paginated() bool {
	return q.Page > 0 || q.Limit > 0
}

// Sliced reports whether _start or _end was supplied.
func (q ListQuery) Sliced() bool {
	return q.Start >= 0 || q.End >= 0
}

// ParseListQuery parses json-server style listing parameters:
// field filters (field, field_ne, field_gte, field_lte, field_like),
// _sort/_order, _page/_limit and _start/_end/_limit.
func ParseListQuery(c *gin.Context) (ListQuery, error) {
	return parseListValues(c.Request.URL.Query())
}

func parseListValues(values url.Values) (ListQuery, error) {
	q := ListQuery{Start: -1, End: -1}

	var err error
	if q.Page, err = optionalInt(values, "_page", 1); err != nil {
		return ListQuery{}, err
	}
	if q.Limit, err = optionalInt(values, "_limit", 1); err != nil {
		return ListQuery{}, err
	}
	if q.Limit > MaxPageLimit {
		return ListQuery{}, fmt.Errorf("invalid _limit parameter: must be at most %d", MaxPageLimit)
	}
	if q.Page > 0 && q.Limit == 0 {
		q.Limit = 10
	}
	if values.Has("_start") {
		if q.Start, err = optionalInt(values, "_start", 0); err != nil {
			return ListQuery{}, err
		}
	}
	if values.Has("_end") {
		if q.End, err = optionalInt(values, "_end", 0); err != nil {
			return ListQuery{}, err
		}
	}

	q.Sort = splitList(values.Get("_sort"))
	q.Order = splitList(values.Get("_order"))
	for _, order := range q.Order {
		if order != "asc" && order != "desc" {
			return ListQuery{}, fmt.Errorf("invalid _order parameter: must be asc or desc")
		}
	}

	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if strings.HasPrefix(key, "_") || key == "" {
			continue
		}
		q.Filters = append(q.Filters, parseFilter(key, values[key]))
	}

	return q, nil
}

func parseFilter(key string, values []string) Filter {
	for _, op := range []string{FilterNe, FilterGte, FilterLte, FilterLike} {
		if field, ok := strings.CutSuffix(key, "_"+op); ok && field != "" {
			return Filter{Field: field, Operator: op, Values: values}
		}
	}
	return Filter{Field: key, Operator: FilterEq, Values: values}
}

func optionalInt(values url.Values, key string, minimum int) (int, error) {
	raw := values.Get(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < minimum {
		return 0, fmt.Errorf("invalid %s parameter: must be an integer >= %d", key, minimum)
	}
	return n, nil
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
