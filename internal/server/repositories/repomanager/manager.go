package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/thriftmarket/internal/dbx"
	"github.com/dmitrijs2005/thriftmarket/internal/server/repositories/activities"
	"github.com/dmitrijs2005/thriftmarket/internal/server/repositories/orders"
	"github.com/dmitrijs2005/thriftmarket/internal/server/repositories/products"
	"github.com/dmitrijs2005/thriftmarket/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/thriftmarket/internal/server/repositories/users"
)

// RepositoryManager hands out repositories bound to either the pool or a
// transaction, so a service can run several of them in one unit of work.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Products(db dbx.DBTX) products.Repository
	Orders(db dbx.DBTX) orders.Repository
	Activities(db dbx.DBTX) activities.Repository
}
