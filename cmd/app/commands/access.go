package commands

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/tabwriter"

	accessDomain "github.com/allisson/restgate/internal/access/domain"
	accessService "github.com/allisson/restgate/internal/access/service"
	"github.com/allisson/restgate/internal/httputil"
)

// ruleView is the printable form of one rule.
type ruleView struct {
	Collection    string `json:"collection"`
	Mask          string `json:"mask"`
	OwnerField    string `json:"owner_field"`
	Owner         string `json:"owner"`
	Authenticated string `json:"authenticated"`
	Anonymous     string `json:"anonymous"`
}

// permissionString renders a permission as rwd flags, e.g. "rw-".
func permissionString(p accessDomain.Permission) string {
	flags := []byte("---")
	if p.Allows(accessDomain.ReadCapability) {
		flags[0] = 'r'
	}
	if p.Allows(accessDomain.WriteCapability) {
		flags[1] = 'w'
	}
	if p.Allows(accessDomain.DeleteCapability) {
		flags[2] = 'd'
	}
	return string(flags)
}

// RunShowRules prints every access rule with the effective permissions of each actor class.
func RunShowRules(evaluator *accessService.Evaluator, format string, writer io.Writer) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	rules := evaluator.Rules().Rules()
	views := make([]ruleView, 0, len(rules))
	for _, rule := range rules {
		views = append(views, ruleView{
			Collection:    rule.Collection,
			Mask:          rule.Mask.String(),
			OwnerField:    rule.OwnerField,
			Owner:         permissionString(rule.Mask.Effective(accessDomain.ActorOwner)),
			Authenticated: permissionString(rule.Mask.Effective(accessDomain.ActorAuthenticated)),
			Anonymous:     permissionString(rule.Mask.Effective(accessDomain.ActorAnonymous)),
		})
	}

	if format == "json" {
		return writeJSON(writer, map[string]any{
			"rules":           views,
			"unmasked_policy": string(evaluator.Policy()),
		})
	}

	tw := tabwriter.NewWriter(writer, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "COLLECTION\tMASK\tOWNER FIELD\tOWNER\tAUTHENTICATED\tANONYMOUS")
	for _, v := range views {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			v.Collection, v.Mask, v.OwnerField, v.Owner, v.Authenticated, v.Anonymous)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(writer, "\nCollections without a rule: %s\n", evaluator.Policy())
	return err
}

// CheckAccessInput describes one request evaluated offline by RunCheckAccess.
type CheckAccessInput struct {
	Collection string
	Method     string
	// CallerID is empty for anonymous requests.
	CallerID string
	// Ownership is one of owned, not_owned, none or undetermined.
	Ownership         string
	CollectionMissing bool
	OwnerReassigned   bool
}

func parseOwnership(s string) (accessDomain.Ownership, error) {
	switch strings.ToLower(s) {
	case "", "undetermined":
		return accessDomain.OwnershipUndetermined, nil
	case "none":
		return accessDomain.OwnershipNone, nil
	case "owned":
		return accessDomain.OwnershipOwned, nil
	case "not_owned", "not-owned":
		return accessDomain.OwnershipNotOwned, nil
	default:
		return 0, fmt.Errorf("invalid ownership: %s (valid options: owned, not_owned, none, undetermined)", s)
	}
}

// RunCheckAccess evaluates a single authorization request against the configured
// rules without touching the store, and prints the decision.
func RunCheckAccess(
	evaluator *accessService.Evaluator,
	input CheckAccessInput,
	format string,
	writer io.Writer,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	ownership, err := parseOwnership(input.Ownership)
	if err != nil {
		return err
	}

	req := accessDomain.AuthorizationRequest{
		Collection:       input.Collection,
		CollectionExists: !input.CollectionMissing,
		Method:           strings.ToUpper(input.Method),
		Ownership:        ownership,
		OwnerReassigned:  input.OwnerReassigned,
	}
	if input.CallerID != "" {
		req.Caller = &accessDomain.Caller{ID: input.CallerID}
	}

	decision := evaluator.Authorize(req)

	status := http.StatusOK
	if err := decision.Err(); err != nil {
		status, _ = httputil.StatusForError(err)
	}

	if format == "json" {
		return writeJSON(writer, map[string]any{
			"allowed":     decision.Allowed,
			"reason":      decision.Reason,
			"verb":        decision.Verb,
			"actor":       decision.Actor.String(),
			"scope":       decision.Scope,
			"owner_only":  decision.OwnerOnly,
			"owner_field": decision.OwnerField,
			"status":      status,
		})
	}

	verdict := "ALLOW"
	if !decision.Allowed {
		verdict = "DENY"
	}
	_, _ = fmt.Fprintf(writer, "%s %s /%s\n", verdict, req.Method, input.Collection)
	_, _ = fmt.Fprintf(writer, "Actor: %s\n", decision.Actor)
	_, _ = fmt.Fprintf(writer, "Reason: %s\n", decision.Reason)
	if decision.Allowed {
		_, err = fmt.Fprintf(writer, "Scope: %s\n", decision.Scope)
	} else {
		_, err = fmt.Fprintf(writer, "HTTP status: %d\n", status)
	}
	return err
}
