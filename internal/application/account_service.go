package application

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-auth-core/internal/domain/apperr"
	"github.com/oksasatya/go-auth-core/internal/domain/entity"
	repo "github.com/oksasatya/go-auth-core/internal/domain/repository"
	"github.com/oksasatya/go-auth-core/pkg/helpers"
	"github.com/oksasatya/go-auth-core/pkg/mailer"
	mailtpl "github.com/oksasatya/go-auth-core/pkg/mailer/templates"
)

const (
	// MaxAvatarBytes caps avatar uploads.
	MaxAvatarBytes = 5 << 20

	provisionAttempts = 3
	maxListSize       = 100
	sideEffectTimeout = 5 * time.Second
)

var stats = expvar.NewMap("accounts")

// Service implements account provisioning, sign-in and account administration.
type Service struct {
	repo    repo.AccountRepository
	hasher  PasswordHasher
	tokens  TokenCodec
	ttl     time.Duration
	logger  *logrus.Logger
	appName string

	media  MediaUploader
	index  AccountIndex
	events EventPublisher

	suffix      func() int
	newPassword func() (string, error)
}

type Option func(*Service)

func WithMedia(m MediaUploader) Option   { return func(s *Service) { s.media = m } }
func WithIndex(x AccountIndex) Option    { return func(s *Service) { s.index = x } }
func WithEvents(p EventPublisher) Option { return func(s *Service) { s.events = p } }
func WithAppName(name string) Option     { return func(s *Service) { s.appName = name } }
func withSuffix(fn func() int) Option    { return func(s *Service) { s.suffix = fn } }
func withPasswordSource(fn func() (string, error)) Option {
	return func(s *Service) { s.newPassword = fn }
}

func NewService(r repo.AccountRepository, hasher PasswordHasher, tokens TokenCodec, ttl time.Duration, logger *logrus.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = helpers.NewNopLogger()
	}
	s := &Service{
		repo:        r,
		hasher:      hasher,
		tokens:      tokens,
		ttl:         ttl,
		logger:      logger,
		suffix:      randomSuffix,
		newPassword: helpers.RandomPassword,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type SignupInput struct {
	Username string
	Email    string
	Password string
}

type SigninInput struct {
	Email    string
	Password string
}

// FederatedInput is an identity asserted by an external provider.
type FederatedInput struct {
	Email string
	Name  string
	Photo string
}

// UpdateInput is a self-service partial update. Nil or empty fields are left untouched.
type UpdateInput struct {
	Username       *string
	Email          *string
	ProfilePicture *string
	Password       *string
}

// ProvisionInput creates an account through the privileged path.
type ProvisionInput struct {
	Username       string
	Email          string
	Password       string
	IsAdmin        bool
	ProfilePicture string
}

// Signup creates a regular account. It does not sign the caller in.
func (s *Service) Signup(ctx context.Context, in SignupInput) (AccountView, error) {
	a, err := s.provision(ctx, ProvisionInput{Username: in.Username, Email: in.Email, Password: in.Password})
	if err != nil {
		return AccountView{}, err
	}
	stats.Add("signup", 1)
	s.logger.WithField("account_id", a.ID).Info("account signed up")
	return ToView(a), nil
}

// Provision creates an account with an explicit admin flag. Only seeders and admin handlers call it.
func (s *Service) Provision(ctx context.Context, in ProvisionInput) (AccountView, error) {
	a, err := s.provision(ctx, in)
	if err != nil {
		return AccountView{}, err
	}
	stats.Add("provisioned", 1)
	s.logger.WithFields(logrus.Fields{"account_id": a.ID, "is_admin": a.IsAdmin}).Info("account provisioned")
	return ToView(a), nil
}

func (s *Service) provision(ctx context.Context, in ProvisionInput) (*entity.Account, error) {
	if err := checkNewAccount(in.Username, in.Email, in.Password); err != nil {
		return nil, err
	}
	if err := checkPicture(in.ProfilePicture); err != nil {
		return nil, err
	}
	if err := s.ensureFree(ctx, in.Email, in.Username); err != nil {
		return nil, err
	}
	hash, err := s.hash(in.Password)
	if err != nil {
		return nil, err
	}
	a := &entity.Account{
		Username:       in.Username,
		Email:          in.Email,
		PasswordHash:   hash,
		IsAdmin:        in.IsAdmin,
		ProfilePicture: in.ProfilePicture,
	}
	// The unique constraints decide races the pre-checks above cannot see.
	if err := s.repo.Insert(ctx, a); err != nil {
		return nil, err
	}
	s.afterCreate(ctx, a)
	return a, nil
}

func (s *Service) ensureFree(ctx context.Context, email, username string) error {
	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return apperr.ErrEmailInUse
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return err
	}
	if _, err := s.repo.FindByUsername(ctx, username); err == nil {
		return apperr.ErrUsernameInUse
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return err
	}
	return nil
}

// Signin checks an email and password and mints a token from the stored admin flag.
func (s *Service) Signin(ctx context.Context, in SigninInput) (*Session, error) {
	if in.Email == "" {
		return nil, apperr.Validation("email", "is required")
	}
	if in.Password == "" {
		return nil, apperr.Validation("password", "is required")
	}
	if err := checkToken("password", in.Password); err != nil {
		return nil, err
	}
	a, err := s.repo.FindByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if !s.hasher.Verify(in.Password, a.PasswordHash) {
		stats.Add("signin_failed", 1)
		s.logger.WithField("account_id", a.ID).Info("signin rejected")
		return nil, apperr.ErrInvalidCredentials
	}
	stats.Add("signin", 1)
	return s.session(a)
}

// FederatedLogin signs in the account owning the asserted email, creating it on first use.
func (s *Service) FederatedLogin(ctx context.Context, in FederatedInput) (*Session, error) {
	if in.Email == "" {
		return nil, apperr.Validation("email", "is required")
	}
	if err := checkEmail(in.Email); err != nil {
		return nil, err
	}
	a, err := s.repo.FindByEmail(ctx, in.Email)
	switch {
	case err == nil:
		stats.Add("federated_signin", 1)
		return s.session(a)
	case !errors.Is(err, apperr.ErrNotFound):
		return nil, err
	}

	a, err = s.provisionFederated(ctx, in)
	if err != nil {
		return nil, err
	}
	return s.session(a)
}

func (s *Service) provisionFederated(ctx context.Context, in FederatedInput) (*entity.Account, error) {
	pw, err := s.newPassword()
	if err != nil {
		return nil, apperr.Internal(err)
	}
	hash, err := s.hash(pw)
	if err != nil {
		return nil, err
	}

	// The photo comes from the identity provider; a malformed one is dropped, not fatal.
	photo := in.Photo
	if checkPicture(photo) != nil {
		photo = ""
	}
	for attempt := 1; ; attempt++ {
		a := &entity.Account{
			Username:       deriveUsername(in.Name, in.Email, s.suffix()),
			Email:          in.Email,
			PasswordHash:   hash,
			ProfilePicture: photo,
		}
		err := s.repo.Insert(ctx, a)
		switch {
		case err == nil:
			stats.Add("federated_provisioned", 1)
			s.logger.WithField("account_id", a.ID).Info("federated account provisioned")
			s.afterCreate(ctx, a)
			return a, nil
		case errors.Is(err, apperr.ErrEmailInUse):
			// A concurrent login created it first.
			return s.repo.FindByEmail(ctx, in.Email)
		case errors.Is(err, apperr.ErrUsernameInUse) && attempt < provisionAttempts:
			s.logger.WithField("attempt", attempt).Debug("derived username taken, retrying")
			continue
		default:
			return nil, err
		}
	}
}

// Signout revokes a presented token until it expires. Invalid tokens are ignored.
func (s *Service) Signout(ctx context.Context, token string) {
	if token == "" {
		return
	}
	claims, err := s.tokens.Verify(ctx, token)
	if err != nil {
		return
	}
	if err := s.tokens.Revoke(ctx, claims); err != nil {
		s.logger.WithError(err).WithField("account_id", claims.Subject).Warn("token revoke failed")
		return
	}
	stats.Add("signout", 1)
}

// Me returns the caller's own account.
func (s *Service) Me(ctx context.Context, id *entity.Identity) (AccountView, error) {
	if id == nil {
		return AccountView{}, apperr.ErrLoginRequired
	}
	a, err := s.repo.FindByID(ctx, id.SubjectID)
	if err != nil {
		return AccountView{}, err
	}
	return ToView(a), nil
}

// UpdateAccount applies a partial update to targetID for its owner or an admin.
func (s *Service) UpdateAccount(ctx context.Context, id *entity.Identity, targetID string, in UpdateInput) (AccountView, error) {
	if err := AuthorizeOwnerOrAdmin(id, targetID); err != nil {
		return AccountView{}, err
	}
	patch, err := s.buildPatch(in)
	if err != nil {
		return AccountView{}, err
	}
	if patch.IsEmpty() {
		a, err := s.repo.FindByID(ctx, targetID)
		if err != nil {
			return AccountView{}, err
		}
		return ToView(a), nil
	}
	a, err := s.repo.UpdateFields(ctx, targetID, patch)
	if err != nil {
		return AccountView{}, err
	}
	stats.Add("update", 1)
	s.logger.WithFields(logrus.Fields{"account_id": a.ID, "actor_id": id.SubjectID}).Info("account updated")
	s.reindex(ctx, a)
	return ToView(a), nil
}

func present(p *string) bool { return p != nil && *p != "" }

func (s *Service) buildPatch(in UpdateInput) (entity.AccountPatch, error) {
	var patch entity.AccountPatch
	if present(in.Username) {
		if err := checkToken("username", *in.Username); err != nil {
			return patch, err
		}
		patch.Username = in.Username
	}
	if present(in.Password) {
		if err := checkToken("password", *in.Password); err != nil {
			return patch, err
		}
	}
	if present(in.Email) {
		if err := checkEmail(*in.Email); err != nil {
			return patch, err
		}
		patch.Email = in.Email
	}
	if present(in.ProfilePicture) {
		if err := checkPicture(*in.ProfilePicture); err != nil {
			return patch, err
		}
		patch.ProfilePicture = in.ProfilePicture
	}
	if present(in.Password) {
		hash, err := s.hash(*in.Password)
		if err != nil {
			return patch, err
		}
		patch.PasswordHash = &hash
	}
	return patch, nil
}

// DeleteAccount removes targetID for its owner or an admin.
func (s *Service) DeleteAccount(ctx context.Context, id *entity.Identity, targetID string) error {
	if err := AuthorizeOwnerOrAdmin(id, targetID); err != nil {
		return err
	}
	if err := s.repo.DeleteByID(ctx, targetID); err != nil {
		return err
	}
	stats.Add("delete", 1)
	s.logger.WithFields(logrus.Fields{"account_id": targetID, "actor_id": id.SubjectID}).Info("account deleted")
	if s.index != nil {
		c, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
		defer cancel()
		if err := s.index.Remove(c, targetID); err != nil {
			s.logger.WithError(err).WithField("account_id", targetID).Warn("search index remove failed")
		}
	}
	return nil
}

// ListAccounts returns accounts matching f, newest first. Admins only.
func (s *Service) ListAccounts(ctx context.Context, id *entity.Identity, f entity.AccountFilter) ([]AccountView, error) {
	if err := AuthorizeAdminOnly(id); err != nil {
		return nil, err
	}
	if f.Limit <= 0 || f.Limit > maxListSize {
		f.Limit = maxListSize
	}
	// The store is the record of truth; the index only answers text searches.
	if s.index != nil && f.Offset == 0 && strings.TrimSpace(f.Query) != "" {
		list, err := s.index.Search(ctx, f.Query, f.Limit)
		if err == nil {
			return toViews(list), nil
		}
		s.logger.WithError(err).Warn("search index query failed, falling back to store")
	}
	list, err := s.repo.FindMany(ctx, f)
	if err != nil {
		return nil, err
	}
	return toViews(list), nil
}

// GetAccount returns one account. Admins only.
func (s *Service) GetAccount(ctx context.Context, id *entity.Identity, targetID string) (AccountView, error) {
	if err := AuthorizeAdminOnly(id); err != nil {
		return AccountView{}, err
	}
	a, err := s.repo.FindByID(ctx, targetID)
	if err != nil {
		return AccountView{}, err
	}
	return ToView(a), nil
}

// CreateAccount is the admin-facing privileged provisioning path.
func (s *Service) CreateAccount(ctx context.Context, id *entity.Identity, in ProvisionInput) (AccountView, error) {
	if err := AuthorizeAdminOnly(id); err != nil {
		return AccountView{}, err
	}
	return s.Provision(ctx, in)
}

// AvatarUpload is an image file sent for an account's profile picture.
type AvatarUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// UploadAvatar stores an image through the media backend and sets it as targetID's profile picture.
func (s *Service) UploadAvatar(ctx context.Context, id *entity.Identity, targetID string, up AvatarUpload) (AccountView, error) {
	if err := AuthorizeOwnerOrAdmin(id, targetID); err != nil {
		return AccountView{}, err
	}
	if s.media == nil {
		return AccountView{}, apperr.ErrMediaDisabled
	}
	if !strings.HasPrefix(strings.ToLower(up.ContentType), "image/") {
		return AccountView{}, apperr.Validation("file", "must be an image")
	}
	if up.Size <= 0 || up.Size > MaxAvatarBytes {
		return AccountView{}, apperr.Validation("file", "must be at most 5 MiB")
	}
	if _, err := s.repo.FindByID(ctx, targetID); err != nil {
		return AccountView{}, err
	}

	objectPath := path.Join("avatars", targetID, uuid.NewString()+strings.ToLower(path.Ext(up.Filename)))
	url, err := s.media.Upload(ctx, objectPath, up.ContentType, up.Body)
	if err != nil {
		s.logger.WithError(err).WithField("account_id", targetID).Error("avatar upload failed")
		return AccountView{}, apperr.ErrUploadFailed
	}

	a, err := s.repo.UpdateFields(ctx, targetID, entity.AccountPatch{ProfilePicture: &url})
	if err != nil {
		return AccountView{}, err
	}
	stats.Add("avatar_upload", 1)
	s.reindex(ctx, a)
	return ToView(a), nil
}

func (s *Service) hash(plain string) (string, error) {
	h, err := s.hasher.Hash(plain)
	if errors.Is(err, helpers.ErrPasswordTooLong) {
		return "", apperr.Validation("password", "is too long")
	}
	if err != nil {
		return "", apperr.Internal(err)
	}
	return h, nil
}

func (s *Service) session(a *entity.Account) (*Session, error) {
	token, exp, err := s.tokens.Issue(a.ID, a.IsAdmin, s.ttl)
	if err != nil {
		s.logger.WithError(err).WithField("account_id", a.ID).Error("issue token failed")
		return nil, apperr.Internal(err)
	}
	return &Session{Account: ToView(a), Token: token, ExpiresAt: exp}, nil
}

// afterCreate mirrors a new account and queues its welcome email. Failures are logged only.
func (s *Service) afterCreate(ctx context.Context, a *entity.Account) {
	s.reindex(ctx, a)
	if s.events == nil {
		return
	}
	c, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()
	job := mailer.EmailJob{
		To:       a.Email,
		Template: mailtpl.Welcome,
		Data:     mailtpl.NewWelcomeData(s.appName, a.Username, a.Email, a.CreatedAt),
	}
	if err := s.events.PublishJSON(c, job); err != nil {
		s.logger.WithError(err).WithField("account_id", a.ID).Warn("publish welcome email failed")
	}
}

// RebuildIndex copies every stored account into the search index, one page at a time.
// It repairs documents missed while the index was down or not yet configured.
func (s *Service) RebuildIndex(ctx context.Context) (int, error) {
	if s.index == nil {
		return 0, nil
	}
	total := 0
	for offset := 0; ; offset += maxListSize {
		page, err := s.repo.FindMany(ctx, entity.AccountFilter{Limit: maxListSize, Offset: offset})
		if err != nil {
			return total, err
		}
		if len(page) == 0 {
			return total, nil
		}
		if err := s.index.IndexAll(ctx, page); err != nil {
			return total, fmt.Errorf("index accounts %d-%d: %w", offset, offset+len(page), err)
		}
		total += len(page)
		if len(page) < maxListSize {
			return total, nil
		}
	}
}

func (s *Service) reindex(ctx context.Context, a *entity.Account) {
	if s.index == nil {
		return
	}
	c, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()
	if err := s.index.Index(c, a); err != nil {
		s.logger.WithError(err).WithField("account_id", a.ID).Warn("search index update failed")
	}
}
