// dao/access_dao.go
package dao

import (
	"context"
	"net/url"
	"time"

	"github.com/luishdz04/muscleup-gym/model"
)

// AccessDAO covers the global access configuration singleton, the
// access_logs collection, and the biometric device registry.
type AccessDAO struct {
	client *StoreClient
}

func NewAccessDAO(client *StoreClient) *AccessDAO {
	return &AccessDAO{client: client}
}

// Config loads the access_control_config singleton.
func (d *AccessDAO) Config(ctx context.Context) (*model.AccessConfig, error) {
	params := url.Values{}
	params.Set("select", "*")
	params.Set("limit", "1")

	var configs []model.AccessConfig
	if err := d.client.Get(ctx, "access_control_config", params, &configs); err != nil {
		return nil, err
	}
	if len(configs) == 0 {
		return nil, nil
	}
	return &configs[0], nil
}

// InsertLog writes one access_logs row.
func (d *AccessDAO) InsertLog(ctx context.Context, row model.AccessLog) error {
	return d.client.Post(ctx, "access_logs", row)
}

// CountDailyEntries counts successful entry events for a user since
// local midnight. Backs the per-plan daily entry cap.
func (d *AccessDAO) CountDailyEntries(ctx context.Context, userID string, dayStart, dayEnd time.Time) (int, error) {
	params := url.Values{}
	params.Set("select", "id")
	params.Set("user_id", "eq."+userID)
	params.Set("access_type", "eq.entry")
	params.Set("success", "eq.true")
	params.Add("created_at", "gte."+dayStart.Format(time.RFC3339))
	params.Add("created_at", "lte."+dayEnd.Format(time.RFC3339))

	var entries []struct {
		ID string `json:"id"`
	}
	if err := d.client.Get(ctx, "access_logs", params, &entries); err != nil {
		return 0, err
	}
	return len(entries), nil
}

// DeviceIDByIP resolves the registered device UUID for a terminal IP,
// or empty when the terminal is not registered.
func (d *AccessDAO) DeviceIDByIP(ctx context.Context, ip string) (string, error) {
	params := url.Values{}
	params.Set("select", "id")
	params.Set("ip_address", "eq."+ip)
	params.Set("is_active", "eq.true")
	params.Set("limit", "1")

	var devices []struct {
		ID string `json:"id"`
	}
	if err := d.client.Get(ctx, "biometric_devices", params, &devices); err != nil {
		return "", err
	}
	if len(devices) == 0 {
		return "", nil
	}
	return devices[0].ID, nil
}
