package mongo

import (
	"context"

	"gymflow/gym-backend/internal/repository"

	"go.mongodb.org/mongo-driver/mongo"
)

// mongoTxRunner implements repository.TxRunner on top of MongoDB sessions.
// Requires a replica set (or standalone started with --replSet) for multi-document
// transactions.
type mongoTxRunner struct {
	client *mongo.Client
}

// NewMongoTxRunner creates a TxRunner backed by MongoDB client sessions.
func NewMongoTxRunner(client *mongo.Client) repository.TxRunner {
	return &mongoTxRunner{client: client}
}

// WithinTx runs fn inside a single MongoDB transaction. The session context is
// passed down so repository calls made with it join the transaction.
func (r *mongoTxRunner) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	session, err := r.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		return nil, fn(sessCtx)
	})
	return err
}
