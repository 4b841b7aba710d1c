package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reelist.io/reelist/internal/model"
	"reelist.io/reelist/pkg/apperror"
)

type fakeMail struct {
	tasks []EmailTask
}

func (m *fakeMail) Enqueue(ctx context.Context, task EmailTask) error {
	m.tasks = append(m.tasks, task)
	return nil
}

func (m *fakeMail) StartWorker(ctx context.Context) {}

func newAuthFixture(t *testing.T) (*memDB, *fakeMail, AuthService) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("ADMIN_EMAIL", "root@example.com")

	db := newMemDB()
	db.addRole(model.RoleUser, model.PermFollow+","+model.PermCollect)
	db.addRole(model.RoleAdministrator, model.PermAdminister)

	mail := &fakeMail{}
	repos := newTestRegistry(db)
	return db, mail, NewAuthService(repos.Users, mail)
}

func TestRegisterAndLogin(t *testing.T) {
	db, mail, svc := newAuthFixture(t)

	user, err := svc.Register(context.Background(), "alice", "alice@example.com", "hunter2hunter2")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Empty(t, user.PasswordHash, "hash never leaves the service")
	assert.Equal(t, model.RoleUser, user.Role.Name)

	require.Len(t, mail.tasks, 1)
	assert.Equal(t, MailConfirm, mail.tasks[0].Category)
	assert.Equal(t, "alice@example.com", mail.tasks[0].To)
	assert.NotEmpty(t, mail.tasks[0].Token)

	auth, err := svc.Login(context.Background(), "alice", "hunter2hunter2")
	require.NoError(t, err)
	assert.Equal(t, "Bearer", auth.TokenType)
	assert.NotEmpty(t, auth.AccessToken)
	require.NotNil(t, db.users[user.ID].LastLoginAt)

	parsedID, err := svc.ParseToken(auth.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, parsedID)

	// Login by email works too.
	_, err = svc.Login(context.Background(), "alice@example.com", "hunter2hunter2")
	require.NoError(t, err)
}

func TestRegisterDuplicate(t *testing.T) {
	_, _, svc := newAuthFixture(t)

	_, err := svc.Register(context.Background(), "alice", "alice@example.com", "hunter2hunter2")
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), "alice", "other@example.com", "hunter2hunter2")
	assert.ErrorIs(t, err, apperror.ErrAlreadyExists)

	_, err = svc.Register(context.Background(), "other", "alice@example.com", "hunter2hunter2")
	assert.ErrorIs(t, err, apperror.ErrAlreadyExists)
}

func TestRegisterAdminEmailGetsAdminRole(t *testing.T) {
	_, _, svc := newAuthFixture(t)

	user, err := svc.Register(context.Background(), "root", "root@example.com", "hunter2hunter2")
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdministrator, user.Role.Name)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	_, _, svc := newAuthFixture(t)

	_, err := svc.Register(context.Background(), "alice", "alice@example.com", "hunter2hunter2")
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), "alice", "wrong-password")
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)

	_, err = svc.Login(context.Background(), "nobody", "hunter2hunter2")
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
}

func TestConfirmEmail(t *testing.T) {
	db, mail, svc := newAuthFixture(t)

	user, err := svc.Register(context.Background(), "alice", "alice@example.com", "hunter2hunter2")
	require.NoError(t, err)
	assert.False(t, db.users[user.ID].EmailConfirmed)

	require.NoError(t, svc.ConfirmEmail(context.Background(), mail.tasks[0].Token))
	assert.True(t, db.users[user.ID].EmailConfirmed)
}

func TestConfirmTokenIsNotAnAuthToken(t *testing.T) {
	_, mail, svc := newAuthFixture(t)

	_, err := svc.Register(context.Background(), "alice", "alice@example.com", "hunter2hunter2")
	require.NoError(t, err)

	// A confirm token must not open the API.
	_, err = svc.ParseToken(mail.tasks[0].Token)
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
}

func TestPasswordResetFlow(t *testing.T) {
	_, mail, svc := newAuthFixture(t)

	_, err := svc.Register(context.Background(), "alice", "alice@example.com", "hunter2hunter2")
	require.NoError(t, err)

	require.NoError(t, svc.RequestPasswordReset(context.Background(), "alice@example.com"))
	require.Len(t, mail.tasks, 2)
	resetTask := mail.tasks[1]
	assert.Equal(t, MailResetPassword, resetTask.Category)

	require.NoError(t, svc.ResetPassword(context.Background(), resetTask.Token, "correct-horse-battery"))

	_, err = svc.Login(context.Background(), "alice", "hunter2hunter2")
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
	_, err = svc.Login(context.Background(), "alice", "correct-horse-battery")
	require.NoError(t, err)
}

func TestPasswordResetUnknownEmailIsSilent(t *testing.T) {
	_, mail, svc := newAuthFixture(t)

	require.NoError(t, svc.RequestPasswordReset(context.Background(), "nobody@example.com"))
	assert.Empty(t, mail.tasks)
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	_, _, svc := newAuthFixture(t)

	_, err := svc.ParseToken("not-a-token")
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
}
