// dao/policy_store.go
package dao

// PolicyStore bundles the per-table DAOs into the single read surface
// the decision engine consumes. The method sets are disjoint, so plain
// embedding is enough.
type PolicyStore struct {
	*UserDAO
	*MembershipDAO
	*TemporaryAccessDAO
	*AccessDAO
}

func NewPolicyStore(client *StoreClient) *PolicyStore {
	return &PolicyStore{
		UserDAO:            NewUserDAO(client),
		MembershipDAO:      NewMembershipDAO(client),
		TemporaryAccessDAO: NewTemporaryAccessDAO(client),
		AccessDAO:          NewAccessDAO(client),
	}
}
