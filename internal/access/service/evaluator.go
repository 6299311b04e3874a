// Package service implements the permission evaluator that decides collection access.
package service

import (
	accessDomain "github.com/allisson/restgate/internal/access/domain"
)

// Evaluator decides whether a caller may perform a verb on a collection.
// It holds no mutable state and is safe for concurrent use.
type Evaluator struct {
	rules  *accessDomain.RuleSet
	policy accessDomain.UnmaskedPolicy
}

// NewEvaluator creates an evaluator. An empty policy is treated as deny.
func NewEvaluator(rules *accessDomain.RuleSet, policy accessDomain.UnmaskedPolicy) *Evaluator {
	if policy != accessDomain.UnmaskedAllow {
		policy = accessDomain.UnmaskedDeny
	}
	return &Evaluator{rules: rules, policy: policy}
}

// Rules returns the rule set the evaluator decides with.
func (e *Evaluator) Rules() *accessDomain.RuleSet {
	return e.rules
}

// Policy returns the policy applied to collections without a rule.
func (e *Evaluator) Policy() accessDomain.UnmaskedPolicy {
	return e.policy
}

// Rule returns the rule for a collection.
func (e *Evaluator) Rule(collection string) (accessDomain.Rule, bool) {
	return e.rules.Lookup(collection)
}

// Authorize evaluates a request. The result depends only on the request and the
// evaluator configuration.
//
// Decision order:
//  1. Unsupported method → deny (unsupported_verb)
//  2. Collection missing from the store → deny (unknown_collection)
//  3. No rule → unmasked policy (allow or deny no_mask)
//  4. Effective permission of the actor grants the verb → allow
//  5. Authenticated list read granted only by the owner digit → allow scoped to owned records
//  6. Anonymous caller → deny (unauthenticated)
//  7. Otherwise → deny (forbidden)
//
// A grant that depends on the owner bits alone is denied when the request
// reassigns the record to another owner.
func (e *Evaluator) Authorize(req accessDomain.AuthorizationRequest) accessDomain.Decision {
	actor := actorFor(req)

	verb, ok := accessDomain.VerbFromMethod(req.Method)
	if !ok {
		return deny(accessDomain.ReasonUnsupportedVerb, "", actor)
	}

	if !req.CollectionExists {
		return deny(accessDomain.ReasonUnknownCollection, verb, actor)
	}

	rule, ok := e.rules.Lookup(req.Collection)
	if !ok {
		if e.policy == accessDomain.UnmaskedAllow {
			return allow(accessDomain.ReasonUnmasked, accessDomain.ScopeAll, verb, actor, false, "")
		}
		return deny(accessDomain.ReasonNoMask, verb, actor)
	}

	capability := verb.Capability()

	if rule.Mask.Effective(actor).Allows(capability) {
		ownerOnly := actor == accessDomain.ActorOwner &&
			!rule.Mask.Effective(accessDomain.ActorAuthenticated).Allows(capability)
		if ownerOnly && req.OwnerReassigned {
			return deny(accessDomain.ReasonOwnerReassignment, verb, actor)
		}
		return allow(accessDomain.ReasonGranted, accessDomain.ScopeAll, verb, actor, ownerOnly, rule.OwnerField)
	}

	if verb == accessDomain.VerbRead &&
		req.Caller != nil &&
		req.Ownership == accessDomain.OwnershipUndetermined &&
		rule.Mask.Owner.Read {
		return allow(accessDomain.ReasonOwnedOnly, accessDomain.ScopeOwned, verb, actor, true, rule.OwnerField)
	}

	if req.Caller == nil {
		return deny(accessDomain.ReasonUnauthenticated, verb, actor)
	}

	return deny(accessDomain.ReasonForbidden, verb, actor)
}

func actorFor(req accessDomain.AuthorizationRequest) accessDomain.Actor {
	switch {
	case req.Caller == nil:
		return accessDomain.ActorAnonymous
	case req.Ownership == accessDomain.OwnershipOwned:
		return accessDomain.ActorOwner
	default:
		return accessDomain.ActorAuthenticated
	}
}

func allow(
	reason accessDomain.Reason,
	scope accessDomain.Scope,
	verb accessDomain.Verb,
	actor accessDomain.Actor,
	ownerOnly bool,
	ownerField string,
) accessDomain.Decision {
	return accessDomain.Decision{
		Allowed:    true,
		Reason:     reason,
		Scope:      scope,
		Verb:       verb,
		Actor:      actor,
		OwnerOnly:  ownerOnly,
		OwnerField: ownerField,
	}
}

func deny(reason accessDomain.Reason, verb accessDomain.Verb, actor accessDomain.Actor) accessDomain.Decision {
	return accessDomain.Decision{Reason: reason, Verb: verb, Actor: actor}
}
