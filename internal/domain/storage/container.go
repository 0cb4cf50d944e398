package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"pressroom/internal/domain/accesscontrol"
	"pressroom/internal/domain/content"
	"pressroom/internal/domain/identity"
	"pressroom/internal/domain/subscriptions"
)

type Container struct {
	pool          *pgxpool.Pool // kept so the With...Tx units can open transactions
	Users         identity.Store
	AccessControl accesscontrol.Store
	Articles      content.ArticleStore
	Albums        content.AlbumStore
	Media         content.MediaStore
	Subscriptions subscriptions.Store

	slugs *content.SlugEncoder
}

func NewContainer(db *pgxpool.Pool, slugs *content.SlugEncoder) *Container {
	return &Container{
		pool:          db,
		Users:         identity.NewRepository(db),
		AccessControl: accesscontrol.NewRepository(db),
		Articles:      content.NewArticleRepository(db, slugs),
		Albums:        content.NewAlbumRepository(db),
		Media:         content.NewMediaRepository(db),
		Subscriptions: subscriptions.NewRepository(db),
		slugs:         slugs,
	}
}

// ContentTx is a tx-scoped set of content repos so bulk lifecycle operations
// commit or roll back as one batch.
type ContentTx struct {
	Articles content.ArticleStore
	Albums   content.AlbumStore
	Media    content.MediaStore
}

// WithContentTx runs a content unit of work atomically.
func (c *Container) WithContentTx(ctx context.Context, fn func(s *ContentTx) error) error {
	return c.withTx(ctx, func(tx pgx.Tx) error {
		return fn(&ContentTx{
			Articles: content.NewArticleRepository(tx, c.slugs),
			Albums:   content.NewAlbumRepository(tx),
			Media:    content.NewMediaRepository(tx),
		})
	})
}

// AccountsTx spans the users and subscriptions tables: creating a
// subscription and stamping the account's cached premium window must land
// together.
type AccountsTx struct {
	Users         identity.Store
	Subscriptions subscriptions.Store
}

// WithAccountsTx runs an account/subscription unit of work atomically.
func (c *Container) WithAccountsTx(ctx context.Context, fn func(s *AccountsTx) error) error {
	return c.withTx(ctx, func(tx pgx.Tx) error {
		return fn(&AccountsTx{
			Users:         identity.NewRepository(tx),
			Subscriptions: subscriptions.NewRepository(tx),
		})
	})
}

func (c *Container) withTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	if c.pool == nil {
		return fmt.Errorf("storage container pool is nil (did you forget to set pool in NewContainer?)")
	}

	tx, err := c.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}

	defer func() {
		_ = tx.Rollback(ctx) // safe even if already committed
	}()

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
