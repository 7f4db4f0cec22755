package workflow

import (
	"context"
	"database/sql"
	"fmt"

	"gorm.io/gorm"
)

const postingLockWaitSeconds = 30

// BusinessPostingLock holds a MySQL advisory lock on a connection pinned out
// of the pool. GET_LOCK and RELEASE_LOCK are session-scoped, so both must run
// on that same connection; issuing them through the pool hits arbitrary
// sessions and leaks the lock.
type BusinessPostingLock struct {
	conn     *sql.Conn
	lockName string
}

// AcquireBusinessPostingLock serializes ledger posting per business across
// instances. The lock lives on its own pinned connection for the whole
// posting transaction; call Release once the transaction has finished.
func AcquireBusinessPostingLock(ctx context.Context, db *gorm.DB, businessId string) (*BusinessPostingLock, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return nil, err
	}

	lockName := postingLockName(businessId)
	var ok sql.NullInt64
	if err := conn.QueryRowContext(ctx, "SELECT GET_LOCK(?, ?)", lockName, postingLockWaitSeconds).Scan(&ok); err != nil {
		_ = conn.Close()
		return nil, err
	}
	if !ok.Valid || ok.Int64 != 1 {
		_ = conn.Close()
		return nil, fmt.Errorf("could not acquire posting lock for business_id=%s", businessId)
	}
	return &BusinessPostingLock{conn: conn, lockName: lockName}, nil
}

// Release frees the advisory lock and returns the connection to the pool.
// Closing the connection ends its session, which drops the lock even when
// RELEASE_LOCK itself fails, so the lock cannot outlive the handle.
func (l *BusinessPostingLock) Release() {
	if l == nil || l.conn == nil {
		return
	}
	var released sql.NullInt64
	_ = l.conn.QueryRowContext(context.Background(), "SELECT RELEASE_LOCK(?)", l.lockName).Scan(&released)
	_ = l.conn.Close()
	l.conn = nil
}

// postingLockName builds the advisory lock key. MySQL caps lock names at 64
// characters, which the business id prefix stays well under.
func postingLockName(businessId string) string {
	return "posting:" + businessId
}
