package service

import (
	"errors"
	"sync"
	"testing"
	"time"

	"messagely/internal/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserService_RegisterAndAuthenticate(t *testing.T) {
	db := openTestDB(t)
	svc := newTestUserService(db)

	profile, token, err := svc.Register(RegisterInput{
		Username:  "alice",
		Password:  "pw1",
		FirstName: "Alice",
		LastName:  "Adams",
		Phone:     "+15550001",
	})
	require.NoError(t, err)
	assert.Equal(t, "alice", profile.Username)
	assert.Equal(t, "Alice", profile.FirstName)
	assert.NotEmpty(t, token)
	assert.False(t, profile.JoinedAt.IsZero())
	require.NotNil(t, profile.LastLoginAt)

	assert.True(t, svc.Authenticate("alice", "pw1"))
	assert.False(t, svc.Authenticate("alice", "wrong"))
	assert.False(t, svc.Authenticate("nonexistent", "pw1"))
	assert.False(t, svc.Authenticate("nonexistent", ""))
}

func TestUserService_Register_Duplicate(t *testing.T) {
	db := openTestDB(t)
	svc := newTestUserService(db)

	seedUser(t, db, "alice")
	_, _, err := svc.Register(RegisterInput{
		Username:  "alice",
		Password:  "other",
		FirstName: "Other",
		LastName:  "User",
	})
	require.ErrorIs(t, err, ErrUsernameTaken)
}

func TestUserService_Register_Concurrent(t *testing.T) {
	db := openTestDB(t)
	svc := newTestUserService(db)

	// Two racing registrations for the same username: the primary key
	// constraint must let exactly one through.
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, errs[i] = svc.Register(RegisterInput{
				Username:  "alice",
				Password:  "pw1",
				FirstName: "Alice",
				LastName:  "Adams",
			})
		}(i)
	}
	wg.Wait()

	var ok, taken int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrUsernameTaken):
			taken++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, taken)

	users, err := svc.List()
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestUserService_Register_TokenBindsUsername(t *testing.T) {
	db := openTestDB(t)
	svc := newTestUserService(db)

	_, token, err := svc.Register(RegisterInput{
		Username:  "bob",
		Password:  "pw2",
		FirstName: "Bob",
		LastName:  "Brown",
	})
	require.NoError(t, err)

	issuer := auth.NewTokenIssuer("test-secret", 15)
	username, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "bob", username)
}

func TestUserService_Login(t *testing.T) {
	db := openTestDB(t)
	svc := newTestUserService(db)
	seedUser(t, db, "alice")

	token, err := svc.Login("alice", "pw-alice")
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	_, err = svc.Login("alice", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login("nonexistent", "anything")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestUserService_Login_StampsLastLogin(t *testing.T) {
	db := openTestDB(t)
	svc := newTestUserService(db)
	seedUser(t, db, "alice")

	before, err := svc.Get("alice")
	require.NoError(t, err)
	require.NotNil(t, before.LastLoginAt)

	time.Sleep(20 * time.Millisecond)
	_, err = svc.Login("alice", "pw-alice")
	require.NoError(t, err)

	after, err := svc.Get("alice")
	require.NoError(t, err)
	require.NotNil(t, after.LastLoginAt)
	assert.True(t, after.LastLoginAt.After(*before.LastLoginAt), "last_login_at should advance on login")
}

func TestUserService_UpdateLoginTimestamp_NotFound(t *testing.T) {
	db := openTestDB(t)
	svc := newTestUserService(db)

	err := svc.UpdateLoginTimestamp("nonexistent")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUserService_Get(t *testing.T) {
	db := openTestDB(t)
	svc := newTestUserService(db)
	seedUser(t, db, "alice")

	profile, err := svc.Get("alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", profile.Username)
	assert.Equal(t, "+15551234", profile.Phone)

	_, err = svc.Get("nonexistent")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUserService_List_OrderedByUsername(t *testing.T) {
	db := openTestDB(t)
	svc := newTestUserService(db)

	// Insert out of order; listing must come back sorted.
	for _, name := range []string{"charlie", "alice", "bob"} {
		seedUser(t, db, name)
	}

	users, err := svc.List()
	require.NoError(t, err)
	require.Len(t, users, 3)
	assert.Equal(t, "alice", users[0].Username)
	assert.Equal(t, "bob", users[1].Username)
	assert.Equal(t, "charlie", users[2].Username)
}
