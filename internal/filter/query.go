package filter

import "errors"

// ErrUnscoped is returned for a Query that was not built by ForOwner or PublicFor.
var ErrUnscoped = errors.New("query has no owner scope")

// Query is a Plan bound to an owner. Its scope can only be set by ForOwner
// or PublicFor, so a query can never reach storage without one.
type Query struct {
	owner      int
	publicOnly bool
	plan       Plan
}

// ForOwner scopes plan to the items owned by ownerID.
func ForOwner(ownerID int, plan Plan) Query {
	return Query{owner: ownerID, plan: plan}
}

// PublicFor scopes plan to ownerID's items flagged public.
func PublicFor(ownerID int, plan Plan) Query {
	return Query{owner: ownerID, publicOnly: true, plan: plan}
}

func (q Query) Owner() int {
	return q.owner
}

func (q Query) PublicOnly() bool {
	return q.publicOnly
}

func (q Query) Plan() Plan {
	return q.plan
}

// Validate reports ErrUnscoped for a zero or invalid owner.
func (q Query) Validate() error {
	if q.owner < 1 {
		return ErrUnscoped
	}
	return nil
}
