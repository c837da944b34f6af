package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

type Tx interface{}

var NoTX interface{}

// TransactionManager executes a function within a database transaction,
// passing the tx handle to repositories via the Tx argument.
//
// Keeping the tx type opaque keeps use-case interfaces clean: repositories
// detect a concrete tx implementation-side (e.g. pgx.Tx) and must
// gracefully accept nil for the non-transactional path.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
