package workflow

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/bsm/redislock"
	"github.com/mmdatafocus/trading_backend/models"
	"github.com/mmdatafocus/trading_backend/utils"
	"gorm.io/gorm"
)

const postingLockTimeoutSecs = 30

// PostingLock is a MySQL advisory lock held on its own pinned connection,
// fronted by a best-effort redislock that fails contended acquisitions fast
// instead of queueing on GET_LOCK. GET_LOCK is connection-scoped, so pinning
// lets the lock span the whole posting transaction and release after commit.
type PostingLock struct {
	conn  *sql.Conn
	name  string
	rlock *redislock.Lock
}

func acquirePostingLock(ctx context.Context, db *gorm.DB, scope string) (*PostingLock, error) {
	rlock, err := utils.ObtainPostingLock(ctx, "posting", scope, "workflow", "acquirePostingLock")
	if err != nil {
		return nil, err
	}
	name := "posting:" + scope

	sqlDB, err := db.DB()
	if err != nil {
		utils.ReleasePostingLock(ctx, rlock)
		return nil, err
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		utils.ReleasePostingLock(ctx, rlock)
		return nil, err
	}
	var ok int
	if err := conn.QueryRowContext(ctx, "SELECT GET_LOCK(?, ?)", name, postingLockTimeoutSecs).Scan(&ok); err != nil {
		_ = conn.Close()
		utils.ReleasePostingLock(ctx, rlock)
		return nil, err
	}
	if ok != 1 {
		_ = conn.Close()
		utils.ReleasePostingLock(ctx, rlock)
		return nil, fmt.Errorf("could not acquire posting lock %q", name)
	}
	return &PostingLock{conn: conn, name: name, rlock: rlock}, nil
}

// Release frees the advisory lock and returns the pinned connection to the
// pool. Safe on a nil lock.
func (l *PostingLock) Release(ctx context.Context) {
	if l == nil {
		return
	}
	var ok sql.NullInt64
	_ = l.conn.QueryRowContext(ctx, "SELECT RELEASE_LOCK(?)", l.name).Scan(&ok)
	_ = l.conn.Close()
	utils.ReleasePostingLock(ctx, l.rlock)
}

// AcquireOrderPostingLock serializes posting per order across instances
// using MySQL advisory locks. The lock is not reentrant: a holder must pass
// control down to *Locked variants instead of re-acquiring.
func AcquireOrderPostingLock(ctx context.Context, db *gorm.DB, orderKind models.OrderKind, orderId int) (*PostingLock, error) {
	return acquirePostingLock(ctx, db, fmt.Sprintf("%s:%d", orderKind, orderId))
}

// AcquireProductPostingLock serializes ledger writes per product (intake,
// merges, rebuilds).
func AcquireProductPostingLock(ctx context.Context, db *gorm.DB, productId int) (*PostingLock, error) {
	return acquirePostingLock(ctx, db, fmt.Sprintf("product:%d", productId))
}
