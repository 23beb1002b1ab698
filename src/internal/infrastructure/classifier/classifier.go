// Package classifier matches request paths against the configured
// exempt and service-only pattern lists.
package classifier

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/svcgate/svcgate/src/internal/domain/entity"
)

// A pattern is either an exact path ("/api/health") or a prefix when it
// ends in "*" ("/api/internal/*"). Exact patterns also cover sub-paths
// at segment boundaries, so "/api/audit" matches "/api/audit/recent"
// but not "/api/auditor".
//
// When patterns from both lists match the same path, the one with the
// longest literal prefix wins regardless of which list it came from;
// on equal length the service-only pattern wins. First-match-wins over
// category-ordered lists lets a broad exempt prefix shadow a specific
// service-only rule underneath it, which is exactly the failure mode
// this ordering exists to prevent.

type rule struct {
	literal  string
	prefix   bool
	category entity.PathCategory
}

// ruleSet is an immutable snapshot of compiled rules. Snapshots are
// swapped atomically on reload so in-flight requests always see a
// consistent old-or-new view.
type ruleSet struct {
	rules []rule
}

// Classifier classifies request paths. Safe for concurrent use.
type Classifier struct {
	snap atomic.Pointer[ruleSet]
}

// New compiles the given pattern lists into a Classifier. It returns
// an error for any malformed pattern, or when both lists are empty:
// running without a classification policy is a configuration failure,
// not a default.
func New(exempt, serviceOnly []string) (*Classifier, error) {
	c := &Classifier{}
	if err := c.Reload(exempt, serviceOnly); err != nil {
		return nil, err
	}
	return c, nil
}

// Reload compiles a fresh rule set and swaps it in atomically. On
// error the previous rule set stays active.
func (c *Classifier) Reload(exempt, serviceOnly []string) error {
	if len(exempt) == 0 && len(serviceOnly) == 0 {
		return fmt.Errorf("no path rules configured")
	}

	rules := make([]rule, 0, len(exempt)+len(serviceOnly))
	for _, p := range exempt {
		r, err := compile(p, entity.CategoryExempt)
		if err != nil {
			return err
		}
		rules = append(rules, r)
	}
	for _, p := range serviceOnly {
		r, err := compile(p, entity.CategoryServiceOnly)
		if err != nil {
			return err
		}
		rules = append(rules, r)
	}

	c.snap.Store(&ruleSet{rules: rules})
	return nil
}

// Classify returns the category for a request path. The path must not
// include a query string. Deterministic and side-effect free.
func (c *Classifier) Classify(path string) entity.PathCategory {
	snap := c.snap.Load()

	best := entity.CategoryUnlisted
	bestLen := -1
	for _, r := range snap.rules {
		if !r.matches(path) {
			continue
		}
		n := len(r.literal)
		if n > bestLen || (n == bestLen && r.category == entity.CategoryServiceOnly) {
			best = r.category
			bestLen = n
		}
	}
	return best
}

func (r rule) matches(path string) bool {
	if r.prefix {
		return strings.HasPrefix(path, r.literal)
	}
	return path == r.literal || strings.HasPrefix(path, r.literal+"/")
}

func compile(pattern string, category entity.PathCategory) (rule, error) {
	if pattern == "" {
		return rule{}, fmt.Errorf("empty path pattern")
	}
	if !strings.HasPrefix(pattern, "/") {
		return rule{}, fmt.Errorf("path pattern %q must start with '/'", pattern)
	}

	prefix := strings.HasSuffix(pattern, "*")
	literal := pattern
	if prefix {
		literal = strings.TrimSuffix(pattern, "*")
	}
	if strings.Contains(literal, "*") {
		return rule{}, fmt.Errorf("path pattern %q: '*' is only allowed as a suffix", pattern)
	}

	return rule{literal: literal, prefix: prefix, category: category}, nil
}
