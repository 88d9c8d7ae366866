//go:build integration

package postgres_test

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/linkauth/server/internal/model"
	repo "github.com/linkauth/server/internal/repository/postgres"
)

var dsn string

func TestMain(m *testing.M) {
	ctx := context.Background()
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "postgres:15-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "postgres",
				"POSTGRES_PASSWORD": "password",
				"POSTGRES_DB":       "linkauth_test",
			},
			WaitingFor: wait.ForListeningPort("5432/tcp").WithStartupTimeout(2 * time.Minute),
		},
		Started: true,
	})
	if err != nil {
		panic(err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		panic(err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		panic(err)
	}
	dsn = fmt.Sprintf("postgres://postgres:password@%s:%s/linkauth_test?sslmode=disable", host, port.Port())

	code := m.Run()
	_ = container.Terminate(ctx)
	os.Exit(code)
}

func newAccount(email, token string, expiresAt time.Time) model.Account {
	now := time.Now()
	return model.Account{
		ID:             uuid.New(),
		Email:          email,
		DisplayName:    "Tester",
		Token:          &token,
		TokenExpiresAt: &expiresAt,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func TestAccountRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	conn, err := repo.NewConnection(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	accounts := repo.NewAccountRepository(conn)
	now := time.Now()

	created, err := accounts.Create(ctx, newAccount("lifecycle@x.com", "tok-lifecycle-1", now.Add(15*time.Minute)))
	require.NoError(t, err)
	assert.False(t, created.Verified)

	byEmail, err := accounts.GetByEmail(ctx, "lifecycle@x.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)

	byID, err := accounts.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "lifecycle@x.com", byID.Email)

	_, err = accounts.GetByEmail(ctx, "missing@x.com")
	assert.ErrorIs(t, err, model.ErrNotFound)

	// Emails match literally, no case folding.
	_, err = accounts.GetByEmail(ctx, "LIFECYCLE@x.com")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestAccountRepository_ClaimToken_SingleUse(t *testing.T) {
	ctx := context.Background()
	conn, err := repo.NewConnection(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	accounts := repo.NewAccountRepository(conn)
	now := time.Now()

	_, err = accounts.Create(ctx, newAccount("claim@x.com", "tok-claim-1", now.Add(15*time.Minute)))
	require.NoError(t, err)

	claimed, err := accounts.ClaimToken(ctx, "tok-claim-1", now)
	require.NoError(t, err)
	assert.True(t, claimed.Verified)
	assert.Nil(t, claimed.Token)
	assert.Nil(t, claimed.TokenExpiresAt)
	assert.True(t, claimed.TokenConsumed)

	_, err = accounts.ClaimToken(ctx, "tok-claim-1", now)
	assert.ErrorIs(t, err, model.ErrTokenInvalid)
}

func TestAccountRepository_ClaimToken_Expired(t *testing.T) {
	ctx := context.Background()
	conn, err := repo.NewConnection(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	accounts := repo.NewAccountRepository(conn)
	now := time.Now()

	_, err = accounts.Create(ctx, newAccount("expired@x.com", "tok-expired-1", now.Add(15*time.Minute)))
	require.NoError(t, err)

	// Attempt the claim one minute past expiry.
	_, err = accounts.ClaimToken(ctx, "tok-expired-1", now.Add(16*time.Minute))
	assert.ErrorIs(t, err, model.ErrTokenInvalid)
}

func TestAccountRepository_RefreshToken_InvalidatesOld(t *testing.T) {
	ctx := context.Background()
	conn, err := repo.NewConnection(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	accounts := repo.NewAccountRepository(conn)
	now := time.Now()

	created, err := accounts.Create(ctx, newAccount("refresh@x.com", "tok-refresh-old", now.Add(15*time.Minute)))
	require.NoError(t, err)

	name := "Renamed"
	refreshed, err := accounts.RefreshToken(ctx, created.ID, "tok-refresh-new", now.Add(15*time.Minute), &name)
	require.NoError(t, err)
	require.NotNil(t, refreshed.Token)
	assert.Equal(t, "tok-refresh-new", *refreshed.Token)
	assert.Equal(t, "Renamed", refreshed.DisplayName)
	assert.False(t, refreshed.TokenConsumed)

	// The superseded token never verifies even though it has not expired.
	_, err = accounts.ClaimToken(ctx, "tok-refresh-old", now)
	assert.ErrorIs(t, err, model.ErrTokenInvalid)

	claimed, err := accounts.ClaimToken(ctx, "tok-refresh-new", now)
	require.NoError(t, err)
	assert.True(t, claimed.Verified)

	// Nil display name leaves the stored one untouched.
	_, err = accounts.RefreshToken(ctx, created.ID, "tok-refresh-next", now.Add(15*time.Minute), nil)
	require.NoError(t, err)
	kept, err := accounts.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", kept.DisplayName)

	_, err = accounts.RefreshToken(ctx, uuid.New(), "tok-refresh-nobody", now.Add(15*time.Minute), nil)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestAccountRepository_ClaimToken_Concurrent(t *testing.T) {
	ctx := context.Background()
	conn, err := repo.NewConnection(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	accounts := repo.NewAccountRepository(conn)
	now := time.Now()

	_, err = accounts.Create(ctx, newAccount("race@x.com", "tok-race-1", now.Add(15*time.Minute)))
	require.NoError(t, err)

	const callers = 8
	var wg sync.WaitGroup
	results := make(chan error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := accounts.ClaimToken(ctx, "tok-race-1", now)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var successes, failures int
	for err := range results {
		if err == nil {
			successes++
		} else {
			require.ErrorIs(t, err, model.ErrTokenInvalid)
			failures++
		}
	}

	assert.Equal(t, 1, successes)
	assert.Equal(t, callers-1, failures)
}

func TestAccountRepository_TokenCollision(t *testing.T) {
	ctx := context.Background()
	conn, err := repo.NewConnection(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	accounts := repo.NewAccountRepository(conn)
	now := time.Now()

	_, err = accounts.Create(ctx, newAccount("collision-a@x.com", "tok-shared", now.Add(15*time.Minute)))
	require.NoError(t, err)

	// A second account may never hold the same live token.
	_, err = accounts.Create(ctx, newAccount("collision-b@x.com", "tok-shared", now.Add(15*time.Minute)))
	assert.ErrorIs(t, err, model.ErrConflict)

	created, err := accounts.Create(ctx, newAccount("collision-b@x.com", "tok-other", now.Add(15*time.Minute)))
	require.NoError(t, err)

	_, err = accounts.RefreshToken(ctx, created.ID, "tok-shared", now.Add(15*time.Minute), nil)
	assert.ErrorIs(t, err, model.ErrConflict)

	// Duplicate email is a conflict as well.
	_, err = accounts.Create(ctx, newAccount("collision-a@x.com", "tok-unrelated", now.Add(15*time.Minute)))
	assert.ErrorIs(t, err, model.ErrConflict)
}

func TestAccountRepository_SweepExpiredTokens(t *testing.T) {
	ctx := context.Background()
	conn, err := repo.NewConnection(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	accounts := repo.NewAccountRepository(conn)
	now := time.Now()

	stale, err := accounts.Create(ctx, newAccount("sweep-stale@x.com", "tok-sweep-stale", now.Add(-time.Minute)))
	require.NoError(t, err)
	fresh, err := accounts.Create(ctx, newAccount("sweep-fresh@x.com", "tok-sweep-fresh", now.Add(15*time.Minute)))
	require.NoError(t, err)

	// Verified accounts keep their flag through the sweep.
	verified, err := accounts.Create(ctx, newAccount("sweep-verified@x.com", "tok-sweep-verified", now.Add(15*time.Minute)))
	require.NoError(t, err)
	_, err = accounts.ClaimToken(ctx, "tok-sweep-verified", now)
	require.NoError(t, err)
	_, err = accounts.RefreshToken(ctx, verified.ID, "tok-sweep-verified-2", now.Add(-time.Minute), nil)
	require.NoError(t, err)

	swept, err := accounts.SweepExpiredTokens(ctx, now)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, swept, int64(2))

	got, err := accounts.GetByID(ctx, stale.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Token)
	assert.Nil(t, got.TokenExpiresAt)
	assert.False(t, got.TokenConsumed)
	assert.False(t, got.Verified)

	got, err = accounts.GetByID(ctx, fresh.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Token)
	assert.Equal(t, "tok-sweep-fresh", *got.Token)

	got, err = accounts.GetByID(ctx, verified.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Token)
	assert.True(t, got.Verified)
}
