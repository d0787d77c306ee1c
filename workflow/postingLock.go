package workflow

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// AcquirePostingLock serializes ledger writes per business with a MySQL
// advisory lock. This is the authoritative serialization; the Redis
// business lock only cuts contention before the transaction starts.
//
// The lock is connection-scoped, so acquire and release must run on the
// same transaction.
func AcquirePostingLock(tx *gorm.DB, businessId string) (release func(), err error) {
	lockName := fmt.Sprintf("ledger_posting_%s", businessId)

	var got int
	if err := tx.Raw("SELECT GET_LOCK(?, 10)", lockName).Scan(&got).Error; err != nil {
		return nil, err
	}
	if got != 1 {
		return nil, errors.New("could not acquire posting lock")
	}
	return func() {
		tx.Exec("SELECT RELEASE_LOCK(?)", lockName)
	}, nil
}
