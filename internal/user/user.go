// Package user はユーザー登録・ログイン・コーチによる会員管理を扱う。
package user

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/fitcoach/coachapi/internal/apperr"
	"github.com/fitcoach/coachapi/internal/eventbus"
	"github.com/fitcoach/coachapi/internal/notification"
	"github.com/fitcoach/coachapi/internal/store"
	"github.com/fitcoach/coachapi/pkg/auth"
	"github.com/fitcoach/coachapi/pkg/event"
)

// Config はトークン発行とコーチ認証の設定。
type Config struct {
	JWTSecret     string
	TokenTTL      time.Duration
	CoachUsername string
	CoachPassword string
	// HashCost はbcryptのコスト。0の場合はbcrypt.DefaultCost。
	HashCost int
}

// RegisterRequest はユーザー登録の入力。
type RegisterRequest struct {
	Name     string
	Phone    string
	Password string
}

// Session はログイン結果。
type Session struct {
	Token string
	User  store.User
}

// Service はユーザーに関する操作を提供する。
type Service struct {
	db        *sql.DB
	q         *store.Queries
	cfg       Config
	publisher eventbus.Publisher
	log       *slog.Logger
	now       func() time.Time
}

// NewService は新しいServiceを生成する。
func NewService(db *sql.DB, cfg Config, publisher eventbus.Publisher, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	if cfg.HashCost == 0 {
		cfg.HashCost = bcrypt.DefaultCost
	}
	return &Service{
		db:        db,
		q:         store.New(db),
		cfg:       cfg,
		publisher: publisher,
		log:       log,
		now:       time.Now,
	}
}

var errPhoneTaken = apperr.New(apperr.KindConflict, "phone number already registered")

// Register はユーザーを登録する。電話番号が既に使われている場合はKindConflict。
func (s *Service) Register(ctx context.Context, req RegisterRequest) (store.User, error) {
	name := strings.TrimSpace(req.Name)
	phone := strings.TrimSpace(req.Phone)
	if name == "" || phone == "" || req.Password == "" {
		return store.User{}, apperr.Validation("name, phone and password are required")
	}
	// 同時登録は後段の一意制約で弾く
	if _, err := s.q.GetUserByPhone(ctx, phone); err == nil {
		return store.User{}, errPhoneTaken
	} else if !store.IsNotFound(err) {
		return store.User{}, apperr.Storage("failed to look up user", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cfg.HashCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return store.User{}, apperr.Validation("password is too long")
		}
		return store.User{}, apperr.Wrap(apperr.KindInternal, "failed to hash password", err)
	}

	u, err := s.q.CreateUser(ctx, store.CreateUserParams{
		Name:         name,
		Phone:        phone,
		PasswordHash: string(hash),
		CreatedAt:    s.now(),
	})
	if err != nil {
		if store.IsUniqueViolation(err) {
			return store.User{}, errPhoneTaken
		}
		return store.User{}, apperr.Storage("failed to create user", err)
	}

	s.log.InfoContext(ctx, "ユーザーを登録", slog.Int64("user_id", u.ID))
	eventbus.Emit(ctx, s.publisher, s.log, event.UserRef(u.ID), event.TypeUserRegistered,
		event.UserRegisteredData{Name: u.Name, Phone: u.Phone})
	return u, nil
}

// Login は電話番号とパスワードで認証し、ユーザートークンを発行する。
func (s *Service) Login(ctx context.Context, phone, password string) (*Session, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" || password == "" {
		return nil, apperr.Validation("phone and password are required")
	}

	u, err := s.q.GetUserByPhone(ctx, phone)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, apperr.New(apperr.KindUnauthenticated, "invalid phone or password")
		}
		return nil, apperr.Storage("failed to load user", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, apperr.New(apperr.KindUnauthenticated, "invalid phone or password")
	}

	token, err := auth.GenerateToken(s.cfg.JWTSecret, auth.UserIdentity(u.ID), s.cfg.TokenTTL)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to issue token", err)
	}
	return &Session{Token: token, User: u}, nil
}

// CoachLogin は設定されたコーチの資格情報で認証し、コーチトークンを発行する。
func (s *Service) CoachLogin(ctx context.Context, username, password string) (string, error) {
	if username == "" || password == "" {
		return "", apperr.Validation("username and password are required")
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.cfg.CoachUsername)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(s.cfg.CoachPassword)) == 1
	if !userOK || !passOK {
		s.log.WarnContext(ctx, "コーチのログインに失敗")
		return "", apperr.New(apperr.KindUnauthenticated, "invalid credentials")
	}

	token, err := auth.GenerateToken(s.cfg.JWTSecret, auth.CoachIdentity(), s.cfg.TokenTTL)
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, "failed to issue token", err)
	}
	return token, nil
}

// Me は認証中のユーザーを返す。
func (s *Service) Me(ctx context.Context, id auth.Identity) (store.User, error) {
	userID, ok := id.UserID()
	if !ok {
		return store.User{}, apperr.Forbidden("user authorization required")
	}
	return s.get(ctx, userID)
}

// SaveDeviceToken は認証中のユーザーのデバイストークンを上書き保存する。
func (s *Service) SaveDeviceToken(ctx context.Context, id auth.Identity, token string) error {
	userID, ok := id.UserID()
	if !ok {
		return apperr.Forbidden("user authorization required")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return apperr.Validation("fcm_token is required")
	}

	n, err := s.q.UpdateUserDeviceToken(ctx, store.UpdateUserDeviceTokenParams{
		ID:          userID,
		DeviceToken: store.NullString(token),
	})
	if err != nil {
		return apperr.Storage("failed to save device token", err)
	}
	if n == 0 {
		return apperr.NotFound("user not found")
	}
	return nil
}

// List はコーチ向けに全ユーザーを返す。
func (s *Service) List(ctx context.Context, id auth.Identity) ([]store.User, error) {
	if !id.IsCoach() {
		return nil, apperr.Forbidden("coach authorization required")
	}
	users, err := s.q.ListUsers(ctx)
	if err != nil {
		return nil, apperr.Storage("failed to list users", err)
	}
	return users, nil
}

// SetPaid はユーザーの有料会員フラグを更新する。
func (s *Service) SetPaid(ctx context.Context, id auth.Identity, userID int64, paid bool) (store.User, error) {
	if !id.IsCoach() {
		return store.User{}, apperr.Forbidden("coach authorization required")
	}
	n, err := s.q.UpdateUserPaid(ctx, store.UpdateUserPaidParams{ID: userID, IsPaid: paid})
	if err != nil {
		return store.User{}, apperr.Storage("failed to update user", err)
	}
	if n == 0 {
		return store.User{}, apperr.NotFound("user not found")
	}

	eventbus.Emit(ctx, s.publisher, s.log, event.UserRef(userID), event.TypeUserPaidChanged,
		event.UserPaidChangedData{IsPaid: paid})
	return s.get(ctx, userID)
}

// Delete はユーザーと、そのユーザー宛ての通知を同一トランザクションで削除する。
// 戻り値は削除した通知の件数。
func (s *Service) Delete(ctx context.Context, id auth.Identity, userID int64) (int64, error) {
	if !id.IsCoach() {
		return 0, apperr.Forbidden("coach authorization required")
	}

	var removed int64
	err := store.RunInTx(ctx, s.db, func(tq *store.Queries) error {
		n, err := notification.NewSQLStore(tq).DeleteForUser(ctx, userID)
		if err != nil {
			return err
		}
		removed = n

		deleted, err := tq.DeleteUser(ctx, userID)
		if err != nil {
			return err
		}
		if deleted == 0 {
			return apperr.NotFound("user not found")
		}
		return nil
	})
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return 0, err
		}
		return 0, apperr.Storage("failed to delete user", err)
	}

	s.log.InfoContext(ctx, "ユーザーを削除",
		slog.Int64("user_id", userID),
		slog.Int64("removed_notifications", removed),
	)
	eventbus.Emit(ctx, s.publisher, s.log, event.UserRef(userID), event.TypeUserDeleted,
		event.UserDeletedData{RemovedNotifications: removed})
	return removed, nil
}

func (s *Service) get(ctx context.Context, userID int64) (store.User, error) {
	u, err := s.q.GetUserByID(ctx, userID)
	if err != nil {
		if store.IsNotFound(err) {
			return store.User{}, apperr.NotFound("user not found")
		}
		return store.User{}, apperr.Storage("failed to load user", err)
	}
	return u, nil
}
