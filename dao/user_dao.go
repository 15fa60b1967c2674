// dao/user_dao.go
package dao

import (
	"context"
	"net/url"

	access_errors "github.com/luishdz04/muscleup-gym/errors"
	"github.com/luishdz04/muscleup-gym/model"
)

// UserDAO resolves device-local credential ids to store identities.
type UserDAO struct {
	client *StoreClient
}

func NewUserDAO(client *StoreClient) *UserDAO {
	return &UserDAO{client: client}
}

// UserByDeviceCredential maps a device-local credential id to its
// store identity through the enrollment template mapping. Returns
// ErrUserNotFound when the credential is not enrolled; whether the id
// exists on other systems is deliberately not distinguished.
func (d *UserDAO) UserByDeviceCredential(ctx context.Context, deviceUserID string) (*model.User, error) {
	params := url.Values{}
	params.Set("select", "user_id")
	params.Set("device_user_id", "eq."+deviceUserID)
	params.Set("limit", "1")

	var templates []model.FingerprintTemplate
	if err := d.client.Get(ctx, "fingerprint_templates", params, &templates); err != nil {
		return nil, err
	}
	if len(templates) == 0 || templates[0].UserID == "" {
		return nil, access_errors.ErrUserNotFound
	}

	return d.UserByID(ctx, templates[0].UserID)
}

// UserByID fetches one Users row by its UUID.
func (d *UserDAO) UserByID(ctx context.Context, userID string) (*model.User, error) {
	params := url.Values{}
	params.Set("select", "*")
	params.Set("id", "eq."+userID)

	var users []model.User
	if err := d.client.Get(ctx, "Users", params, &users); err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, access_errors.ErrUserNotFound
	}
	return &users[0], nil
}
