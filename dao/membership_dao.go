// dao/membership_dao.go
package dao

import (
	"context"
	"net/url"

	"github.com/luishdz04/muscleup-gym/model"
)

// MembershipDAO reads membership and plan-restriction rows. Both
// collections are mutated by billing/ops only; this side never writes.
type MembershipDAO struct {
	client *StoreClient
}

func NewMembershipDAO(client *StoreClient) *MembershipDAO {
	return &MembershipDAO{client: client}
}

// LatestMembership returns the most recent membership row by creation
// order for a user regardless of status, or nil when the user has
// none. Status interpretation (frozen, expired) is policy, not query.
func (d *MembershipDAO) LatestMembership(ctx context.Context, userID string) (*model.Membership, error) {
	params := url.Values{}
	params.Set("select", "*, membership_plans!inner(name, id)")
	params.Set("userid", "eq."+userID)
	params.Set("order", "created_at.desc")
	params.Set("limit", "1")

	var memberships []model.Membership
	if err := d.client.Get(ctx, "user_memberships", params, &memberships); err != nil {
		return nil, err
	}
	if len(memberships) == 0 {
		return nil, nil
	}
	return &memberships[0], nil
}

// PlanRestrictions returns the access restrictions attached to a plan,
// or nil when the plan carries none.
func (d *MembershipDAO) PlanRestrictions(ctx context.Context, planID string) (*model.PlanRestriction, error) {
	params := url.Values{}
	params.Set("select", "*")
	params.Set("plan_id", "eq."+planID)

	var restrictions []model.PlanRestriction
	if err := d.client.Get(ctx, "plan_access_restrictions", params, &restrictions); err != nil {
		return nil, err
	}
	if len(restrictions) == 0 {
		return nil, nil
	}
	return &restrictions[0], nil
}
