// Package authz is the capability check gating protected UI. Privileges are
// opaque permission tokens extracted from the authenticated user's menu
// payload; no privilege implies deny, and there is no hierarchy.
package authz

import "encoding/json"

// PrivilegeSet is the set of permission tokens granted to the current user.
type PrivilegeSet map[string]struct{}

// NewPrivilegeSet builds a set from the token list in the menu payload.
func NewPrivilegeSet(privileges []string) PrivilegeSet {
	set := make(PrivilegeSet, len(privileges))
	for _, p := range privileges {
		if p == "" {
			continue
		}
		set[p] = struct{}{}
	}
	return set
}

// CanRender reports whether the required privilege is granted. Pure
// membership: an empty requirement is public, an empty set denies everything
// else.
func (s PrivilegeSet) CanRender(requiredPrivilege string) bool {
	if requiredPrivilege == "" {
		return true
	}
	_, ok := s[requiredPrivilege]
	return ok
}

// Merge adds every token of other into the set.
func (s PrivilegeSet) Merge(other PrivilegeSet) {
	for p := range other {
		s[p] = struct{}{}
	}
}

// List returns the tokens in no particular order.
func (s PrivilegeSet) List() []string {
	out := make([]string, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	return out
}

// privilegeCarrier tolerates the backend's historical "privilge" spelling
// alongside the corrected field.
type privilegeCarrier struct {
	Privilege  string `json:"privilege"`
	Privilege2 string `json:"privilge"`
}

func (c privilegeCarrier) value() string {
	if c.Privilege != "" {
		return c.Privilege
	}
	return c.Privilege2
}

// ExtractFromArticles walks an article payload and collects every privilege
// token found on the articles themselves, their categories, topics and
// creators.
func ExtractFromArticles(raw json.RawMessage) PrivilegeSet {
	type article struct {
		privilegeCarrier
		Categories []privilegeCarrier `json:"categories"`
		Topic      *privilegeCarrier  `json:"topic"`
		CreatedBy  *privilegeCarrier  `json:"created_by"`
	}

	set := make(PrivilegeSet)
	var articles []article
	if err := json.Unmarshal(raw, &articles); err != nil {
		return set
	}

	add := func(c privilegeCarrier) {
		if v := c.value(); v != "" {
			set[v] = struct{}{}
		}
	}
	for _, a := range articles {
		add(a.privilegeCarrier)
		for _, c := range a.Categories {
			add(c)
		}
		if a.Topic != nil {
			add(*a.Topic)
		}
		if a.CreatedBy != nil {
			add(*a.CreatedBy)
		}
	}
	return set
}
