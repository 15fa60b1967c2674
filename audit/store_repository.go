// audit/store_repository.go
package audit

import (
	"context"
	"time"

	"github.com/luishdz04/muscleup-gym/dao"
	"github.com/luishdz04/muscleup-gym/model"
)

// StoreRepository writes audit entries as access_logs rows in the
// record store. This is the authoritative audit trail; other terminals
// read it back for the per-plan daily entry count.
type StoreRepository struct {
	accessDAO *dao.AccessDAO
	deviceID  string
}

func NewStoreRepository(accessDAO *dao.AccessDAO, deviceID string) *StoreRepository {
	return &StoreRepository{accessDAO: accessDAO, deviceID: deviceID}
}

func (r *StoreRepository) LogAccess(ctx context.Context, entry Entry) error {
	deviceID := entry.DeviceID
	if deviceID == "" {
		deviceID = r.deviceID
	}
	return r.accessDAO.InsertLog(ctx, model.AccessLog{
		UserID:          entry.UserID,
		DeviceID:        deviceID,
		AccessType:      entry.AccessType,
		AccessMethod:    entry.AccessMethod,
		Success:         entry.Granted,
		DenialReason:    entry.DenialReason,
		DeviceTimestamp: entry.Timestamp.Format(time.RFC3339),
	})
}
