// dao/enrollment_dao.go
package dao

import (
	"context"
	"net/url"

	"github.com/luishdz04/muscleup-gym/model"
)

// EnrollmentDAO enumerates every store identity with at least one
// registered fingerprint template, annotated with its membership
// activity. Feeds the reconciliation pass.
type EnrollmentDAO struct {
	client *StoreClient
}

func NewEnrollmentDAO(client *StoreClient) *EnrollmentDAO {
	return &EnrollmentDAO{client: client}
}

type enrolledRow struct {
	DeviceUserID string `json:"device_user_id"`
	Template     string `json:"template"`
	FingerIndex  int    `json:"finger_index"`
	User         struct {
		ID          string `json:"id"`
		FirstName   string `json:"firstName"`
		LastName    string `json:"lastName"`
		Memberships []struct {
			Status string `json:"status"`
		} `json:"user_memberships"`
	} `json:"Users"`
}

// EnrolledIdentities returns one entry per enrolled identity. IsActive
// is true iff any membership row carries status "active".
func (d *EnrollmentDAO) EnrolledIdentities(ctx context.Context) ([]model.EnrolledIdentity, error) {
	params := url.Values{}
	params.Set("select", "device_user_id,template,finger_index,Users!inner(id,firstName,lastName,user_memberships!user_memberships_userid_fkey(status))")

	var rows []enrolledRow
	if err := d.client.Get(ctx, "fingerprint_templates", params, &rows); err != nil {
		return nil, err
	}

	identities := make([]model.EnrolledIdentity, 0, len(rows))
	for _, row := range rows {
		active := false
		for _, m := range row.User.Memberships {
			if m.Status == model.MembershipActive {
				active = true
				break
			}
		}
		identities = append(identities, model.EnrolledIdentity{
			User: model.User{
				ID:        row.User.ID,
				FirstName: row.User.FirstName,
				LastName:  row.User.LastName,
			},
			DeviceUserID: row.DeviceUserID,
			FingerIndex:  row.FingerIndex,
			Template:     row.Template,
			IsActive:     active,
		})
	}
	return identities, nil
}
