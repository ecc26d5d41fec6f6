package repositories

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dm-service/internal/models"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	db := sqlx.NewDb(raw, "postgres")
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return db, mock
}

func TestMessageRepoMarkReadFlipsOneDirection(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMessageRepo(db)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE messages SET is_read = TRUE WHERE sender_id=$1 AND receiver_id=$2 AND is_read = FALSE`)).
		WithArgs("alice", "bob").
		WillReturnResult(sqlmock.NewResult(0, 3))

	flipped, err := repo.MarkRead(context.Background(), "alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(3), flipped)
}

func TestMessageRepoMarkReadError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMessageRepo(db)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE messages SET is_read = TRUE`)).
		WithArgs("alice", "bob").
		WillReturnError(assert.AnError)

	_, err := repo.MarkRead(context.Background(), "alice", "bob")
	require.ErrorIs(t, err, assert.AnError)
}

func TestMessageRepoUnreadCountsIsOneGroupedQuery(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMessageRepo(db)

	query := regexp.QuoteMeta(`SELECT sender_id, COUNT(*) AS unread FROM messages`) +
		`.+` + regexp.QuoteMeta(`WHERE receiver_id=$1 AND is_read = FALSE`) +
		`.+` + regexp.QuoteMeta(`GROUP BY sender_id`)
	mock.ExpectQuery(query).
		WithArgs("bob").
		WillReturnRows(sqlmock.NewRows([]string{"sender_id", "unread"}).
			AddRow("alice", 2).
			AddRow("carol", 5))

	counts, err := repo.UnreadCounts(context.Background(), "bob")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"alice": 2, "carol": 5}, counts)
}

func TestMessageRepoUnreadCountsEmpty(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMessageRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta(`GROUP BY sender_id`)).
		WithArgs("bob").
		WillReturnRows(sqlmock.NewRows([]string{"sender_id", "unread"}))

	counts, err := repo.UnreadCounts(context.Background(), "bob")
	require.NoError(t, err)
	assert.Empty(t, counts)
}

func TestMessageRepoCreateAndList(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMessageRepo(db)
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	cols := []string{"id", "sender_id", "receiver_id", "text", "image", "is_read", "created_at"}

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO messages (id, sender_id, receiver_id, text, image)`)).
		WithArgs(sqlmock.AnyArg(), "alice", "bob", "hi", "").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("m1", "alice", "bob", "hi", "", false, now))

	msg, err := repo.CreateMessage(context.Background(), models.Message{SenderID: "alice", ReceiverID: "bob", Text: "hi"})
	require.NoError(t, err)
	assert.Equal(t, models.Message{ID: "m1", SenderID: "alice", ReceiverID: "bob", Text: "hi", CreatedAt: now}, msg)

	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY seq ASC`)).
		WithArgs("bob", "alice").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("m1", "alice", "bob", "hi", "", false, now))

	conv, err := repo.ListConversation(context.Background(), "bob", "alice")
	require.NoError(t, err)
	assert.Equal(t, []models.Message{msg}, conv)
}

func TestUserRepoCreateUserDuplicateEmail(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users`)).
		WithArgs(sqlmock.AnyArg(), "Ann", "ann@x.io", "").
		WillReturnError(&pq.Error{Code: "23505"})

	_, err := repo.CreateUser(context.Background(), models.User{FullName: "Ann", Email: "Ann@X.io"})
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestUserRepoGetUserMissing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE id=$1`)).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"id", "full_name", "email", "profile_pic", "created_at"}))

	_, err := repo.GetUser(context.Background(), "ghost")
	require.ErrorIs(t, err, ErrUserNotFound)
}
