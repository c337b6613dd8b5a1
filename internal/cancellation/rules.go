package cancellation

import (
	"fmt"
	"strings"

	"github.com/richxcame/schoolrun/pkg/models"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Rule is a penalty of Flat plus Percent of the fare, optionally capped
type Rule struct {
	Flat    decimal.Decimal
	Percent decimal.Decimal
	Cap     *decimal.Decimal
}

// ParseRule parses "20", "50%", "10+5%" or "10+5%<=40"
func ParseRule(raw string) (Rule, error) {
	s := strings.ReplaceAll(raw, " ", "")
	if s == "" {
		return Rule{}, fmt.Errorf("empty penalty rule")
	}

	var r Rule
	if i := strings.Index(s, "<="); i >= 0 {
		c, err := decimal.NewFromString(s[i+2:])
		if err != nil || c.IsNegative() {
			return Rule{}, fmt.Errorf("invalid penalty cap in %q", raw)
		}
		r.Cap = &c
		s = s[:i]
	}

	for _, part := range strings.Split(s, "+") {
		if part == "" {
			return Rule{}, fmt.Errorf("invalid penalty rule %q", raw)
		}
		if strings.HasSuffix(part, "%") {
			p, err := decimal.NewFromString(strings.TrimSuffix(part, "%"))
			if err != nil || p.IsNegative() || p.GreaterThan(hundred) {
				return Rule{}, fmt.Errorf("invalid penalty percentage in %q", raw)
			}
			r.Percent = r.Percent.Add(p)
			continue
		}
		f, err := decimal.NewFromString(part)
		if err != nil || f.IsNegative() {
			return Rule{}, fmt.Errorf("invalid flat penalty in %q", raw)
		}
		r.Flat = r.Flat.Add(f)
	}
	return r, nil
}

// Amount applies the rule to fare, rounded to cents
func (r Rule) Amount(fare decimal.Decimal) decimal.Decimal {
	amt := r.Flat.Add(fare.Mul(r.Percent).Div(hundred))
	if r.Cap != nil && amt.GreaterThan(*r.Cap) {
		amt = *r.Cap
	}
	if amt.IsNegative() {
		return decimal.Zero
	}
	return amt.Round(2)
}

// describe renders the rule for penalty messages
func (r Rule) describe() string {
	if r.Percent.IsZero() && r.Cap == nil {
		return "flat fee"
	}
	var parts []string
	if r.Flat.IsPositive() {
		parts = append(parts, "R"+r.Flat.StringFixed(2))
	}
	if r.Percent.IsPositive() {
		parts = append(parts, r.Percent.String()+"% of the fare")
	}
	out := strings.Join(parts, " plus ")
	if r.Cap != nil {
		out += ", capped at R" + r.Cap.StringFixed(2)
	}
	return out
}

type ruleKey struct {
	status models.RideStatus
	role   models.Role
}

// Policy is the penalty rule table keyed by ride status and cancelling party
type Policy struct {
	rules map[ruleKey]Rule
}

// NewPolicy builds a policy from "<status>:<role>" keyed rule strings.
// Missing combinations carry no penalty.
func NewPolicy(raw map[string]string) (*Policy, error) {
	p := &Policy{rules: make(map[ruleKey]Rule, len(raw))}
	for key, value := range raw {
		status, role, ok := strings.Cut(key, ":")
		if !ok {
			return nil, fmt.Errorf("invalid penalty rule key %q", key)
		}
		k := ruleKey{status: models.RideStatus(status), role: models.Role(role)}
		if !k.status.IsActive() {
			return nil, fmt.Errorf("penalty rule %q: status must be scheduled or in_progress", key)
		}
		if !k.role.Valid() {
			return nil, fmt.Errorf("penalty rule %q: unknown role", key)
		}
		rule, err := ParseRule(value)
		if err != nil {
			return nil, err
		}
		p.rules[k] = rule
	}
	return p, nil
}

// DefaultPolicy returns the standard tiers: free while scheduled, then 50%
// of the fare for parents and a flat R20 for drivers once in progress.
func DefaultPolicy() *Policy {
	p, _ := NewPolicy(map[string]string{
		"scheduled:parent":   "0",
		"scheduled:driver":   "0",
		"in_progress:parent": "50%",
		"in_progress:driver": "20",
	})
	return p
}

// Rule returns the rule for a status and role
func (p *Policy) Rule(status models.RideStatus, role models.Role) (Rule, bool) {
	r, ok := p.rules[ruleKey{status: status, role: role}]
	return r, ok
}
