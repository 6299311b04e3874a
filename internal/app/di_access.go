package app

import (
	"fmt"
	"log/slog"
	"sync"

	accessDomain "github.com/allisson/restgate/internal/access/domain"
	accessService "github.com/allisson/restgate/internal/access/service"
)

type accessComponents struct {
	rules         *accessDomain.RuleSet
	evaluator     *accessService.Evaluator
	rulesInit     sync.Once
	evaluatorInit sync.Once
}

// RuleSet returns the access rules parsed from ACCESS_RULES.
func (c *Container) RuleSet() (*accessDomain.RuleSet, error) {
	c.access.rulesInit.Do(func() {
		rules, err := accessDomain.ParseRules(
			c.config.AccessRules,
			c.config.AccessOwnerField,
			c.config.UsersCollection,
		)
		if err != nil {
			c.storeError("rules", fmt.Errorf("invalid ACCESS_RULES: %w", err))
			return
		}
		c.access.rules = rules
	})
	if err := c.loadError("rules"); err != nil {
		return nil, err
	}
	return c.access.rules, nil
}

// Evaluator returns the permission evaluator.
func (c *Container) Evaluator() (*accessService.Evaluator, error) {
	c.access.evaluatorInit.Do(func() {
		rules, err := c.RuleSet()
		if err != nil {
			c.storeError("evaluator", err)
			return
		}

		policy := accessDomain.UnmaskedPolicy(c.config.UnmaskedCollectionPolicy)
		if policy == accessDomain.UnmaskedAllow {
			c.Logger().Warn("collections without an access rule are open to everyone",
				slog.String("policy", string(policy)),
			)
		}
		c.access.evaluator = accessService.NewEvaluator(rules, policy)
	})
	if err := c.loadError("evaluator"); err != nil {
		return nil, err
	}
	return c.access.evaluator, nil
}
