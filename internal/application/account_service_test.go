package application

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-auth-core/internal/domain/apperr"
	"github.com/oksasatya/go-auth-core/internal/domain/entity"
	"github.com/oksasatya/go-auth-core/internal/infrastructure/memory"
	"github.com/oksasatya/go-auth-core/pkg/helpers"
	"github.com/oksasatya/go-auth-core/pkg/mailer"
)

type fakeIndex struct {
	mu        sync.Mutex
	indexed   map[string]*entity.Account
	removed   []string
	searchErr error
}

func newFakeIndex() *fakeIndex { return &fakeIndex{indexed: map[string]*entity.Account{}} }

func (f *fakeIndex) Index(_ context.Context, a *entity.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *a
	f.indexed[a.ID] = &cp
	return nil
}

func (f *fakeIndex) IndexAll(ctx context.Context, accounts []*entity.Account) error {
	for _, a := range accounts {
		_ = f.Index(ctx, a)
	}
	return nil
}

func (f *fakeIndex) Remove(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.indexed, id)
	f.removed = append(f.removed, id)
	return nil
}

func (f *fakeIndex) Search(_ context.Context, q string, _ int) ([]*entity.Account, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	q = strings.ToLower(q)
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*entity.Account, 0, len(f.indexed))
	for _, a := range f.indexed {
		if strings.Contains(strings.ToLower(a.Username), q) || strings.Contains(strings.ToLower(a.Email), q) {
			out = append(out, a)
		}
	}
	return out, nil
}

type fakePublisher struct {
	jobs []mailer.EmailJob
	err  error
}

func (f *fakePublisher) PublishJSON(_ context.Context, body any) error {
	if f.err != nil {
		return f.err
	}
	f.jobs = append(f.jobs, body.(mailer.EmailJob))
	return nil
}

type fakeMedia struct {
	err   error
	paths []string
}

func (f *fakeMedia) Upload(_ context.Context, objectPath, _ string, r io.Reader) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	_, _ = io.Copy(io.Discard, r)
	f.paths = append(f.paths, objectPath)
	return "https://cdn.example.com/" + objectPath, nil
}

type memRevocations struct {
	mu      sync.Mutex
	revoked map[string]time.Time
}

func (m *memRevocations) IsRevoked(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.revoked[id]
	return ok, nil
}

func (m *memRevocations) Revoke(_ context.Context, id string, until time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[id] = until
	return nil
}

type fixture struct {
	svc    *Service
	repo   *memory.AccountRepository
	tokens *helpers.JWTManager
	index  *fakeIndex
	events *fakePublisher
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	tokens, err := helpers.NewJWTManager("test-secret", time.Hour)
	require.NoError(t, err)
	tokens.WithRevocations(&memRevocations{revoked: map[string]time.Time{}})

	f := &fixture{
		repo:   memory.NewAccountRepository(),
		tokens: tokens,
		index:  newFakeIndex(),
		events: &fakePublisher{},
	}
	opts = append([]Option{WithIndex(f.index), WithEvents(f.events), WithAppName("Auth Core")}, opts...)
	f.svc = NewService(f.repo, helpers.NewPasswordHasher(helpers.HashBcrypt, 4), tokens, time.Hour, helpers.NewNopLogger(), opts...)
	return f
}

func (f *fixture) signup(t *testing.T, username, email, password string) AccountView {
	t.Helper()
	v, err := f.svc.Signup(context.Background(), SignupInput{Username: username, Email: email, Password: password})
	require.NoError(t, err)
	return v
}

func (f *fixture) admin(t *testing.T) *entity.Identity {
	t.Helper()
	v, err := f.svc.Provision(context.Background(), ProvisionInput{
		Username: "root", Email: "root@example.com", Password: "rootpw", IsAdmin: true,
	})
	require.NoError(t, err)
	return &entity.Identity{SubjectID: v.ID, IsAdmin: true}
}

func strPtr(s string) *string { return &s }

func TestSignup_Succeeds(t *testing.T) {
	f := newFixture(t)

	v := f.signup(t, "anna", "anna@example.com", "s3cret")
	assert.NotEmpty(t, v.ID)
	assert.Equal(t, "anna", v.Username)
	assert.False(t, v.IsAdmin)
	assert.Empty(t, v.ProfilePicture)

	b, err := json.Marshal(v)
	require.NoError(t, err)
	assert.NotContains(t, strings.ToLower(string(b)), "password")

	stored, err := f.repo.FindByID(context.Background(), v.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", stored.PasswordHash)

	require.Len(t, f.events.jobs, 1)
	assert.Equal(t, "anna@example.com", f.events.jobs[0].To)
	assert.Equal(t, "welcome", f.events.jobs[0].Template)
	assert.Contains(t, f.index.indexed, v.ID)
}

func TestSignup_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []SignupInput{
		{Username: "ann a", Email: "anna@example.com", Password: "pw"},
		{Username: "   ", Email: "anna@example.com", Password: "pw"},
		{Username: "anna", Email: "anna@example.com", Password: "p w"},
		{Username: "anna", Email: "anna@example.com", Password: "   "},
		{Username: "anna", Email: "not-an-email", Password: "pw"},
		{Username: "", Email: "anna@example.com", Password: "pw"},
		{Username: "anna", Email: "anna@example.com", Password: ""},
	}
	for _, in := range cases {
		_, err := f.svc.Signup(ctx, in)
		assert.ErrorIs(t, err, apperr.ErrValidation, "%+v", in)
	}
	list, err := f.repo.FindMany(ctx, entity.AccountFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSignup_PasswordTooLongIsValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Signup(context.Background(), SignupInput{
		Username: "anna", Email: "anna@example.com", Password: strings.Repeat("x", 80),
	})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestSignup_Conflicts(t *testing.T) {
	f := newFixture(t)
	f.signup(t, "anna", "anna@example.com", "pw")

	_, err := f.svc.Signup(context.Background(), SignupInput{Username: "other", Email: "anna@example.com", Password: "pw"})
	assert.ErrorIs(t, err, apperr.ErrEmailInUse)

	_, err = f.svc.Signup(context.Background(), SignupInput{Username: "anna", Email: "other@example.com", Password: "pw"})
	assert.ErrorIs(t, err, apperr.ErrUsernameInUse)

	// email is checked before username
	_, err = f.svc.Signup(context.Background(), SignupInput{Username: "anna", Email: "anna@example.com", Password: "pw"})
	assert.ErrorIs(t, err, apperr.ErrEmailInUse)
}

// racingRepo hides existing accounts from the pre-checks so the insert hits the unique constraint.
type racingRepo struct {
	*memory.AccountRepository
}

func (r racingRepo) FindByEmail(context.Context, string) (*entity.Account, error) {
	return nil, apperr.ErrAccountNotFound
}

func (r racingRepo) FindByUsername(context.Context, string) (*entity.Account, error) {
	return nil, apperr.ErrAccountNotFound
}

func TestSignup_StoreConflictIsConflict(t *testing.T) {
	f := newFixture(t)
	f.signup(t, "anna", "anna@example.com", "pw")

	svc := NewService(racingRepo{f.repo}, helpers.NewPasswordHasher(helpers.HashBcrypt, 4), f.tokens, time.Hour, nil)
	_, err := svc.Signup(context.Background(), SignupInput{Username: "bob", Email: "anna@example.com", Password: "pw"})
	assert.ErrorIs(t, err, apperr.ErrEmailInUse)
}

// lateEmailRepo misses the account on the first email lookup, as if a concurrent login
// inserted it between the lookup and our insert.
type lateEmailRepo struct {
	*memory.AccountRepository
	lookups int
}

func (r *lateEmailRepo) FindByEmail(ctx context.Context, email string) (*entity.Account, error) {
	r.lookups++
	if r.lookups == 1 {
		return nil, apperr.ErrAccountNotFound
	}
	return r.AccountRepository.FindByEmail(ctx, email)
}

func TestFederatedLogin_LosesEmailRace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	winner, err := f.svc.Provision(ctx, ProvisionInput{Username: "anna", Email: "anna@example.com", Password: "pw", IsAdmin: true})
	require.NoError(t, err)

	events := &fakePublisher{}
	r := &lateEmailRepo{AccountRepository: f.repo}
	svc := NewService(r, helpers.NewPasswordHasher(helpers.HashBcrypt, 4), f.tokens, time.Hour, nil, WithEvents(events))

	sess, err := svc.FederatedLogin(ctx, FederatedInput{Email: "anna@example.com", Name: "Anna"})
	require.NoError(t, err)
	assert.Equal(t, winner.ID, sess.Account.ID)
	assert.Equal(t, 2, r.lookups)

	claims, err := f.tokens.Verify(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, winner.ID, claims.Subject)
	assert.True(t, claims.IsAdmin)

	list, err := f.repo.FindMany(ctx, entity.AccountFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Empty(t, events.jobs)
}

type failingRepo struct {
	*memory.AccountRepository
}

func (failingRepo) FindByEmail(context.Context, string) (*entity.Account, error) {
	return nil, apperr.StoreUnavailable(errors.New("connection refused"))
}

func TestSignup_StoreUnavailablePropagates(t *testing.T) {
	svc := NewService(failingRepo{memory.NewAccountRepository()}, helpers.NewPasswordHasher(helpers.HashBcrypt, 4), nil, time.Hour, nil)

	_, err := svc.Signup(context.Background(), SignupInput{Username: "anna", Email: "anna@example.com", Password: "pw"})
	assert.ErrorIs(t, err, apperr.ErrStoreUnavailable)

	_, err = svc.Signin(context.Background(), SigninInput{Email: "anna@example.com", Password: "pw"})
	assert.ErrorIs(t, err, apperr.ErrStoreUnavailable)
}

func TestSignin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.signup(t, "anna", "anna@example.com", "s3cret")

	_, err := f.svc.Signin(ctx, SigninInput{Email: "nobody@example.com", Password: "s3cret"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.svc.Signin(ctx, SigninInput{Email: "anna@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, apperr.ErrInvalidCredentials)

	_, err = f.svc.Signin(ctx, SigninInput{Email: "anna@example.com"})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	sess, err := f.svc.Signin(ctx, SigninInput{Email: "anna@example.com", Password: "s3cret"})
	require.NoError(t, err)
	assert.Equal(t, v.ID, sess.Account.ID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), sess.ExpiresAt, 5*time.Second)

	claims, err := f.tokens.Verify(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, v.ID, claims.Subject)
	assert.False(t, claims.IsAdmin)
}

func TestSignin_AdminFlagInToken(t *testing.T) {
	f := newFixture(t)
	f.admin(t)

	sess, err := f.svc.Signin(context.Background(), SigninInput{Email: "root@example.com", Password: "rootpw"})
	require.NoError(t, err)
	claims, err := f.tokens.Verify(context.Background(), sess.Token)
	require.NoError(t, err)
	assert.True(t, claims.IsAdmin)
}

func TestFederatedLogin_ExistingAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.admin(t)

	for i := 0; i < 2; i++ {
		sess, err := f.svc.FederatedLogin(ctx, FederatedInput{Email: "root@example.com", Name: "Someone Else", Photo: "https://p/x.png"})
		require.NoError(t, err)
		assert.Equal(t, admin.SubjectID, sess.Account.ID)

		claims, err := f.tokens.Verify(ctx, sess.Token)
		require.NoError(t, err)
		assert.True(t, claims.IsAdmin)
	}

	list, err := f.repo.FindMany(ctx, entity.AccountFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, "root", list[0].Username)
}

func TestFederatedLogin_Provisions(t *testing.T) {
	f := newFixture(t, withSuffix(func() int { return 7 }), withPasswordSource(func() (string, error) { return "throwaway", nil }))
	ctx := context.Background()

	sess, err := f.svc.FederatedLogin(ctx, FederatedInput{Email: "anna@example.com", Name: "Anna Smith", Photo: "https://p/anna.png"})
	require.NoError(t, err)
	assert.Equal(t, "annasmith7", sess.Account.Username)
	assert.Equal(t, "https://p/anna.png", sess.Account.ProfilePicture)
	assert.False(t, sess.Account.IsAdmin)
	assert.NotEmpty(t, sess.Token)

	stored, err := f.repo.FindByEmail(ctx, "anna@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, "throwaway", stored.PasswordHash)
	assert.Len(t, f.events.jobs, 1)
}

func TestFederatedLogin_RetriesUsernameCollision(t *testing.T) {
	suffixes := []int{1, 1, 2}
	next := func() int {
		n := suffixes[0]
		suffixes = suffixes[1:]
		return n
	}
	f := newFixture(t, withSuffix(next))
	ctx := context.Background()
	f.signup(t, "anna1", "first@example.com", "pw")

	_, err := f.svc.FederatedLogin(ctx, FederatedInput{Email: "anna@example.com", Name: "anna"})
	require.NoError(t, err)

	stored, err := f.repo.FindByEmail(ctx, "anna@example.com")
	require.NoError(t, err)
	assert.Equal(t, "anna2", stored.Username)
}

func TestFederatedLogin_GivesUpAfterAttempts(t *testing.T) {
	f := newFixture(t, withSuffix(func() int { return 1 }))
	f.signup(t, "anna1", "first@example.com", "pw")

	_, err := f.svc.FederatedLogin(context.Background(), FederatedInput{Email: "anna@example.com", Name: "anna"})
	assert.ErrorIs(t, err, apperr.ErrUsernameInUse)
}

func TestFederatedLogin_RequiresEmail(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.FederatedLogin(context.Background(), FederatedInput{Name: "anna"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestSignout_RevokesToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signup(t, "anna", "anna@example.com", "pw")
	sess, err := f.svc.Signin(ctx, SigninInput{Email: "anna@example.com", Password: "pw"})
	require.NoError(t, err)

	f.svc.Signout(ctx, sess.Token)
	_, err = f.tokens.Verify(ctx, sess.Token)
	assert.ErrorIs(t, err, helpers.ErrInvalidToken)

	f.svc.Signout(ctx, "garbage")
	f.svc.Signout(ctx, "")
}

func TestUpdateAccount_Authorization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	anna := f.signup(t, "anna", "anna@example.com", "pw")
	bob := f.signup(t, "bob", "bob@example.com", "pw")

	_, err := f.svc.UpdateAccount(ctx, nil, anna.ID, UpdateInput{Username: strPtr("x")})
	assert.ErrorIs(t, err, apperr.ErrLoginRequired)

	_, err = f.svc.UpdateAccount(ctx, &entity.Identity{SubjectID: bob.ID}, anna.ID, UpdateInput{Username: strPtr("hacked")})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	admin := f.admin(t)
	v, err := f.svc.UpdateAccount(ctx, admin, anna.ID, UpdateInput{Username: strPtr("anna2")})
	require.NoError(t, err)
	assert.Equal(t, "anna2", v.Username)
}

func TestUpdateAccount_AuthorizationBeforeValidation(t *testing.T) {
	f := newFixture(t)
	anna := f.signup(t, "anna", "anna@example.com", "pw")

	_, err := f.svc.UpdateAccount(context.Background(), &entity.Identity{SubjectID: "someone"}, anna.ID, UpdateInput{Username: strPtr("a b")})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestUpdateAccount_Fields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	anna := f.signup(t, "anna", "anna@example.com", "pw")
	self := &entity.Identity{SubjectID: anna.ID}

	_, err := f.svc.UpdateAccount(ctx, self, anna.ID, UpdateInput{Username: strPtr("an na")})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = f.svc.UpdateAccount(ctx, self, anna.ID, UpdateInput{Password: strPtr("   ")})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = f.svc.UpdateAccount(ctx, self, anna.ID, UpdateInput{Email: strPtr("nope")})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	v, err := f.svc.UpdateAccount(ctx, self, anna.ID, UpdateInput{
		Username:       strPtr(""),
		Email:          strPtr("anna@new.example.com"),
		ProfilePicture: strPtr("https://p/a.png"),
		Password:       strPtr("newpw"),
	})
	require.NoError(t, err)
	assert.Equal(t, "anna", v.Username)
	assert.Equal(t, "anna@new.example.com", v.Email)
	assert.Equal(t, "https://p/a.png", v.ProfilePicture)
	assert.False(t, v.IsAdmin)
	assert.Equal(t, "anna@new.example.com", f.index.indexed[anna.ID].Email)

	_, err = f.svc.Signin(ctx, SigninInput{Email: "anna@new.example.com", Password: "pw"})
	assert.ErrorIs(t, err, apperr.ErrInvalidCredentials)
	_, err = f.svc.Signin(ctx, SigninInput{Email: "anna@new.example.com", Password: "newpw"})
	assert.NoError(t, err)
}

func TestUpdateAccount_ConflictAndMissing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	anna := f.signup(t, "anna", "anna@example.com", "pw")
	f.signup(t, "bob", "bob@example.com", "pw")
	admin := f.admin(t)

	_, err := f.svc.UpdateAccount(ctx, &entity.Identity{SubjectID: anna.ID}, anna.ID, UpdateInput{Email: strPtr("bob@example.com")})
	assert.ErrorIs(t, err, apperr.ErrEmailInUse)

	_, err = f.svc.UpdateAccount(ctx, admin, "missing", UpdateInput{Username: strPtr("ghost")})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.svc.UpdateAccount(ctx, admin, "missing", UpdateInput{})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestDeleteAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	anna := f.signup(t, "anna", "anna@example.com", "pw")
	bob := f.signup(t, "bob", "bob@example.com", "pw")

	err := f.svc.DeleteAccount(ctx, &entity.Identity{SubjectID: bob.ID}, anna.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	require.NoError(t, f.svc.DeleteAccount(ctx, &entity.Identity{SubjectID: anna.ID}, anna.ID))
	assert.Contains(t, f.index.removed, anna.ID)

	err = f.svc.DeleteAccount(ctx, &entity.Identity{SubjectID: anna.ID}, anna.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestAdminOperations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	anna := f.signup(t, "anna", "anna@example.com", "pw")
	user := &entity.Identity{SubjectID: anna.ID}
	admin := f.admin(t)

	_, err := f.svc.ListAccounts(ctx, user, entity.AccountFilter{})
	assert.ErrorIs(t, err, apperr.ErrAdminRequired)
	_, err = f.svc.GetAccount(ctx, user, anna.ID)
	assert.ErrorIs(t, err, apperr.ErrAdminRequired)
	_, err = f.svc.CreateAccount(ctx, user, ProvisionInput{Username: "x", Email: "x@example.com", Password: "pw", IsAdmin: true})
	assert.ErrorIs(t, err, apperr.ErrAdminRequired)

	list, err := f.svc.ListAccounts(ctx, admin, entity.AccountFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	got, err := f.svc.GetAccount(ctx, admin, anna.ID)
	require.NoError(t, err)
	assert.Equal(t, "anna", got.Username)

	created, err := f.svc.CreateAccount(ctx, admin, ProvisionInput{Username: "ops", Email: "ops@example.com", Password: "pw", IsAdmin: true})
	require.NoError(t, err)
	assert.True(t, created.IsAdmin)

	_, err = f.svc.CreateAccount(ctx, admin, ProvisionInput{Username: "ops", Email: "ops2@example.com", Password: "pw"})
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestListAccounts_FallsBackToStore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.admin(t)
	f.signup(t, "anna", "anna@example.com", "pw")
	f.signup(t, "bob", "bob@example.com", "pw")
	f.index.searchErr = errors.New("es down")

	list, err := f.svc.ListAccounts(ctx, admin, entity.AccountFilter{Query: "ANN"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "anna", list[0].Username)
}

func TestListAccounts_StoreIsAuthority(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.admin(t)
	// Created while the index was unavailable: present in the store only.
	require.NoError(t, f.repo.Insert(ctx, &entity.Account{Username: "late", Email: "late@example.com", PasswordHash: "x"}))

	list, err := f.svc.ListAccounts(ctx, admin, entity.AccountFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	list, err = f.svc.ListAccounts(ctx, admin, entity.AccountFilter{Query: "late"})
	require.NoError(t, err)
	assert.Empty(t, list, "text search is served by the index")

	n, err := f.svc.RebuildIndex(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	list, err = f.svc.ListAccounts(ctx, admin, entity.AccountFilter{Query: "late"})
	require.NoError(t, err)
	assert.NotEmpty(t, list)
}

func TestRebuildIndex_Pages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < maxListSize+5; i++ {
		require.NoError(t, f.repo.Insert(ctx, &entity.Account{
			Username: "u" + strconv.Itoa(i), Email: "u" + strconv.Itoa(i) + "@example.com", PasswordHash: "x",
		}))
	}

	n, err := f.svc.RebuildIndex(ctx)
	require.NoError(t, err)
	assert.Equal(t, maxListSize+5, n)
	assert.Len(t, f.index.indexed, maxListSize+5)
}

func TestRebuildIndex_WithoutIndex(t *testing.T) {
	svc := NewService(memory.NewAccountRepository(), helpers.NewPasswordHasher(helpers.HashBcrypt, 4), nil, time.Hour, nil)
	n, err := svc.RebuildIndex(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestProfilePictureMustBeURL(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.admin(t)
	anna := f.signup(t, "anna", "anna@example.com", "pw")

	_, err := f.svc.UpdateAccount(ctx, &entity.Identity{SubjectID: anna.ID}, anna.ID, UpdateInput{ProfilePicture: strPtr("not a url")})
	var ae *apperr.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, apperr.KindValidation, ae.Kind)
	assert.Equal(t, "profilePicture", ae.Field)

	_, err = f.svc.CreateAccount(ctx, admin, ProvisionInput{Username: "bob", Email: "bob@example.com", Password: "pw", ProfilePicture: "javascript"})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	sess, err := f.svc.FederatedLogin(ctx, FederatedInput{Email: "carol@example.com", Name: "Carol", Photo: "::bad"})
	require.NoError(t, err)
	assert.Empty(t, sess.Account.ProfilePicture)
}

func TestUploadAvatar(t *testing.T) {
	media := &fakeMedia{}
	f := newFixture(t, WithMedia(media))
	ctx := context.Background()
	anna := f.signup(t, "anna", "anna@example.com", "pw")
	self := &entity.Identity{SubjectID: anna.ID}

	up := func(ct string, size int64) AvatarUpload {
		return AvatarUpload{Filename: "me.PNG", ContentType: ct, Size: size, Body: strings.NewReader("img")}
	}

	_, err := f.svc.UploadAvatar(ctx, &entity.Identity{SubjectID: "other"}, anna.ID, up("image/png", 3))
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = f.svc.UploadAvatar(ctx, self, anna.ID, up("text/plain", 3))
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = f.svc.UploadAvatar(ctx, self, anna.ID, up("image/png", MaxAvatarBytes+1))
	assert.ErrorIs(t, err, apperr.ErrValidation)

	v, err := f.svc.UploadAvatar(ctx, self, anna.ID, up("image/png", 3))
	require.NoError(t, err)
	require.Len(t, media.paths, 1)
	assert.True(t, strings.HasPrefix(media.paths[0], "avatars/"+anna.ID+"/"))
	assert.True(t, strings.HasSuffix(media.paths[0], ".png"))
	assert.Equal(t, "https://cdn.example.com/"+media.paths[0], v.ProfilePicture)

	media.err = errors.New("bucket gone")
	_, err = f.svc.UploadAvatar(ctx, self, anna.ID, up("image/png", 3))
	assert.ErrorIs(t, err, apperr.ErrUploadFailed)
}

func TestUploadAvatar_NoBackend(t *testing.T) {
	f := newFixture(t)
	anna := f.signup(t, "anna", "anna@example.com", "pw")

	_, err := f.svc.UploadAvatar(context.Background(), &entity.Identity{SubjectID: anna.ID}, anna.ID, AvatarUpload{ContentType: "image/png", Size: 1})
	assert.ErrorIs(t, err, apperr.ErrMediaDisabled)
}

func TestMe(t *testing.T) {
	f := newFixture(t)
	anna := f.signup(t, "anna", "anna@example.com", "pw")

	v, err := f.svc.Me(context.Background(), &entity.Identity{SubjectID: anna.ID})
	require.NoError(t, err)
	assert.Equal(t, anna.ID, v.ID)

	_, err = f.svc.Me(context.Background(), nil)
	assert.ErrorIs(t, err, apperr.ErrLoginRequired)
}

func TestWelcomeFailureDoesNotFailSignup(t *testing.T) {
	f := newFixture(t)
	f.events.err = errors.New("amqp closed")

	_, err := f.svc.Signup(context.Background(), SignupInput{Username: "anna", Email: "anna@example.com", Password: "pw"})
	assert.NoError(t, err)
}
