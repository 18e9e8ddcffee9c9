package uniqueness

import (
	"context"
	"testing"
	"time"

	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sumanshinde/Rpos/internal/aws"
	"github.com/sumanshinde/Rpos/internal/aws/awstest"
)

func newStore(t *testing.T) (*Store, *awstest.Dynamo) {
	t.Helper()
	db := awstest.NewDynamo()
	db.CreateTable("uniques", "unique_key")
	return NewStore(db, "uniques"), db
}

func transact(db *awstest.Dynamo, items ...types.TransactWriteItem) error {
	_, err := db.TransactWriteItems(context.Background(), &dyn.TransactWriteItemsInput{TransactItems: items})
	return err
}

func TestPutItemRejectsSecondOwner(t *testing.T) {
	s, db := newStore(t)
	key := Key(Email, "a@example.com")

	require.NoError(t, transact(db, s.PutItem(key, "u1")))
	err := transact(db, s.PutItem(key, "u2"))
	require.Error(t, err)
	assert.Equal(t, 0, aws.FirstFailedCondition(err))

	owner, err := s.Owner(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, "u1", owner)
}

func TestDeleteItemFreesKey(t *testing.T) {
	s, db := newStore(t)
	key := Key(Phone, "9876543210")
	require.NoError(t, transact(db, s.PutItem(key, "c1")))
	require.NoError(t, transact(db, s.DeleteItem(key)))

	owner, err := s.Owner(context.Background(), key)
	require.NoError(t, err)
	assert.Empty(t, owner)
	require.NoError(t, transact(db, s.PutItem(key, "c2")))
}

func TestExpiredEntryHasNoOwner(t *testing.T) {
	s, _ := newStore(t)
	now := time.Date(2025, 1, 5, 12, 0, 0, 0, time.UTC)
	s.nowFunc = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, s.PutExpiring(ctx, Key(Revoked, "jti-1"), "u1", now.Add(time.Hour)))
	require.NoError(t, s.PutExpiring(ctx, Key(Revoked, "jti-2"), "u1", now.Add(-time.Minute)))

	owner, err := s.Owner(ctx, Key(Revoked, "jti-1"))
	require.NoError(t, err)
	assert.Equal(t, "u1", owner)

	owner, err = s.Owner(ctx, Key(Revoked, "jti-2"))
	require.NoError(t, err)
	assert.Empty(t, owner)
}
