package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/lborres/butaca/adapters/memory"
	"github.com/lborres/butaca/config"
	"github.com/lborres/butaca/core"
	"github.com/lborres/butaca/pkg/crypto"
	"github.com/lborres/butaca/pkg/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_GenSecret(t *testing.T) {
	var stdout, stderr bytes.Buffer

	err := run(context.Background(), []string{"-gen-secret"}, &stdout, &stderr)

	require.NoError(t, err)
	secret := bytes.TrimSpace(stdout.Bytes())
	assert.GreaterOrEqual(t, len(secret), 32)
}

func TestRun_Help(t *testing.T) {
	var stdout, stderr bytes.Buffer

	err := run(context.Background(), []string{"-h"}, &stdout, &stderr)

	assert.NoError(t, err)
	assert.Contains(t, stderr.String(), "-grant-admin")
}

func TestRun_InvalidConfig(t *testing.T) {
	var stdout, stderr bytes.Buffer

	err := run(context.Background(), []string{"-env-file", "", "-store", "memory", "-secret", "short"}, &stdout, &stderr)

	assert.Error(t, err)
}

// Requirement: grant-admin refuses the memory store, where the grant would be
// lost when the command exits.
func TestRun_GrantAdminMemoryStore(t *testing.T) {
	var stdout, stderr bytes.Buffer
	args := []string{
		"-env-file", "",
		"-store", "memory",
		"-secret", "a-secret-that-is-long-enough-for-the-check",
		"-grant-admin", "root@example.com",
	}

	err := run(context.Background(), args, &stdout, &stderr)

	assert.ErrorIs(t, err, errGrantAdminMemory)
}

// Requirement: grant-admin promotes an existing user and fails for an
// unknown one.
func TestGrantAdmin(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	hash, err := crypto.NewBcrypt().Hash("Aa123456!")
	require.NoError(t, err)
	require.NoError(t, store.CreateUser(ctx, &core.User{Email: "root@example.com", PasswordHash: hash}))

	require.NoError(t, grantAdmin(ctx, store, logging.Nop(), "root@example.com"))

	u, err := store.GetUserByEmail(ctx, "root@example.com")
	require.NoError(t, err)
	claims, err := store.GetClaims(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []core.Claim{core.AdminClaim}, claims)

	err = grantAdmin(ctx, store, logging.Nop(), "ghost@example.com")
	assert.ErrorIs(t, err, core.ErrUserNotFound)
}

func TestOpenStore_Memory(t *testing.T) {
	store, closeStore, err := openStore(context.Background(), config.DatabaseConfig{Store: config.StoreMemory}, logging.Nop())
	require.NoError(t, err)
	defer closeStore()

	assert.NoError(t, store.Ping(context.Background()))
}
