package storage

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/easeaico/memorify/internal/apperr"
)

// classify 将数据库错误映射为 apperr.Kind，在出错处完成分类。
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperr.E(apperr.KindNotFound, op, err)
	case errors.Is(err, context.DeadlineExceeded):
		return apperr.E(apperr.KindTimeout, op, err)
	case errors.Is(err, driver.ErrBadConn):
		return apperr.E(apperr.KindNetwork, op, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case strings.HasPrefix(pgErr.Code, "08"):
			// connection exception
			return apperr.E(apperr.KindNetwork, op, err)
		case strings.HasPrefix(pgErr.Code, "53"), strings.HasPrefix(pgErr.Code, "57"), pgErr.Code == "40001", pgErr.Code == "40P01":
			return apperr.E(apperr.KindServer, op, err)
		case strings.HasPrefix(pgErr.Code, "22"), strings.HasPrefix(pgErr.Code, "23"):
			return apperr.E(apperr.KindValidation, op, err)
		case pgErr.Code == "42501":
			return apperr.E(apperr.KindForbidden, op, err)
		}
		return apperr.E(apperr.KindInternal, op, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return apperr.E(apperr.KindTimeout, op, err)
		}
		return apperr.E(apperr.KindNetwork, op, err)
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return apperr.E(apperr.KindNetwork, op, err)
	}
	return apperr.E(apperr.KindInternal, op, err)
}
