package domain

import (
	"slices"
	"strings"

	validation "github.com/jellydator/validation"

	"github.com/allisson/restgate/internal/errors"
	customValidation "github.com/allisson/restgate/internal/validation"
)

// Rule binds an access mask to a collection.
type Rule struct {
	Collection string
	Mask       AccessMask
	// OwnerField is the record field holding the owning user's id.
	OwnerField string
}

// RuleSet is the immutable mapping from collection name to rule.
type RuleSet struct {
	rules map[string]Rule
}

// NewRuleSet builds a rule set, rejecting duplicate collections.
func NewRuleSet(rules ...Rule) (*RuleSet, error) {
	rs := &RuleSet{rules: make(map[string]Rule, len(rules))}
	for _, rule := range rules {
		if _, exists := rs.rules[rule.Collection]; exists {
			return nil, errors.Wrapf(ErrInvalidRule, "duplicate rule for collection %q", rule.Collection)
		}
		rs.rules[rule.Collection] = rule
	}
	return rs, nil
}

// ParseRules parses a comma-separated list of collection=mask entries such as
// "products=444,orders=660". Every rule uses ownerField except the users
// collection, whose records are owned through their own id.
func ParseRules(raw, ownerField, usersCollection string) (*RuleSet, error) {
	var rules []Rule

	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		collection, code, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, errors.Wrapf(ErrInvalidRule, "%q is not collection=mask", entry)
		}
		collection = strings.TrimSpace(collection)
		code = strings.TrimSpace(code)

		if err := validation.Validate(collection, validation.Required, customValidation.PathSegment); err != nil {
			return nil, errors.Wrapf(ErrInvalidRule, "collection %q: %v", collection, err)
		}
		if err := validation.Validate(code, validation.Required, customValidation.AccessMaskCode); err != nil {
			return nil, errors.Wrapf(ErrInvalidMask, "collection %q: %v", collection, err)
		}

		mask, err := ParseAccessMask(code)
		if err != nil {
			return nil, err
		}

		field := ownerField
		if collection == usersCollection {
			field = "id"
		}

		rules = append(rules, Rule{Collection: collection, Mask: mask, OwnerField: field})
	}

	return NewRuleSet(rules...)
}

// Lookup returns the rule for a collection.
func (rs *RuleSet) Lookup(collection string) (Rule, bool) {
	if rs == nil {
		return Rule{}, false
	}
	rule, ok := rs.rules[collection]
	return rule, ok
}

// Rules returns every rule ordered by collection name.
func (rs *RuleSet) Rules() []Rule {
	if rs == nil {
		return nil
	}
	out := make([]Rule, 0, len(rs.rules))
	for _, rule := range rs.rules {
		out = append(out, rule)
	}
	slices.SortFunc(out, func(a, b Rule) int {
		return strings.Compare(a.Collection, b.Collection)
	})
	return out
}

// Len returns the number of rules.
func (rs *RuleSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.rules)
}
