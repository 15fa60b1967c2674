// dao/temporary_access_dao.go
package dao

import (
	"context"
	"net/url"
	"time"

	"github.com/luishdz04/muscleup-gym/model"
)

// TemporaryAccessDAO reads temporary grants and advances their usage
// counter. The increment runs as a single server-side operation so two
// terminals can never both redeem the last remaining entry.
type TemporaryAccessDAO struct {
	client *StoreClient
}

func NewTemporaryAccessDAO(client *StoreClient) *TemporaryAccessDAO {
	return &TemporaryAccessDAO{client: client}
}

// ActiveGrant returns the temporary grant whose validity window
// contains now, or nil when none applies.
func (d *TemporaryAccessDAO) ActiveGrant(ctx context.Context, userID string, now time.Time) (*model.TemporaryAccess, error) {
	nowStr := now.Format(time.RFC3339)

	params := url.Values{}
	params.Set("select", "*")
	params.Set("user_id", "eq."+userID)
	params.Set("is_active", "eq.true")
	params.Set("valid_from", "lte."+nowStr)
	params.Set("valid_until", "gte."+nowStr)
	params.Set("limit", "1")

	var grants []model.TemporaryAccess
	if err := d.client.Get(ctx, "temporary_access", params, &grants); err != nil {
		return nil, err
	}
	if len(grants) == 0 {
		return nil, nil
	}
	return &grants[0], nil
}

// IncrementCounter redeems one entry of a temporary grant atomically.
func (d *TemporaryAccessDAO) IncrementCounter(ctx context.Context, grantID string) error {
	return d.client.RPC(ctx, "increment_temp_access_counter", map[string]string{
		"access_id": grantID,
	})
}
