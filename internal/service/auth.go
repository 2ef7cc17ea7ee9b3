package service

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/Skotchmaster/deen_api/internal/apperr"
	"github.com/Skotchmaster/deen_api/internal/auth"
	"github.com/Skotchmaster/deen_api/internal/models"
	"github.com/Skotchmaster/deen_api/internal/mykafka"
	"github.com/Skotchmaster/deen_api/pkg/logging"
)

const DefaultUserTopic = "user_events"

type UserStore interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	UpdateUserFields(ctx context.Context, id string, fields map[string]any) (*models.User, error)
}

type UserEvent struct {
	Type   string    `json:"type"`
	UserID string    `json:"user_id"`
	Email  string    `json:"email"`
	At     time.Time `json:"at"`
}

type AuthService struct {
	Issuer auth.Issuer
	Users  UserStore
	Events mykafka.Publisher
	Topic  string
}

func (s *AuthService) Register(ctx context.Context, email, password, name string) (*auth.Result, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	res, err := s.Issuer.Register(ctx, email, password, name)
	if err != nil {
		logFailure(l, "register_failed", err)
		return nil, err
	}

	s.publish(ctx, "user_registered", &res.User)
	l.Info("register_success", "user_id", res.User.ID)
	return res, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*auth.Result, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login")

	res, err := s.Issuer.Login(ctx, email, password)
	if err != nil {
		logFailure(l, "login_failed", err)
		return nil, err
	}

	s.publish(ctx, "user_logged_in", &res.User)
	l.Info("login_success", "user_id", res.User.ID)
	return res, nil
}

func (s *AuthService) Profile(ctx context.Context, id string) (*models.User, error) {
	return s.Users.GetUserByID(ctx, id)
}

// SetAdmin flips the capability flag; it takes effect on the target's next
// admin-gated request.
func (s *AuthService) SetAdmin(ctx context.Context, id string, isAdmin bool) (*models.User, error) {
	u, err := s.Users.UpdateUserFields(ctx, id, map[string]any{"is_admin": isAdmin})
	if err != nil {
		return nil, err
	}
	logging.FromContext(ctx).Info("admin_flag_changed", "user_id", id, "is_admin", isAdmin)
	return u, nil
}

// publish never fails the caller; the identity is already committed.
func (s *AuthService) publish(ctx context.Context, typ string, u *models.User) {
	if s.Events == nil {
		return
	}
	topic := s.Topic
	if topic == "" {
		topic = DefaultUserTopic
	}
	ev := UserEvent{Type: typ, UserID: u.ID, Email: u.Email, At: time.Now().UTC()}
	if err := s.Events.PublishEvent(ctx, topic, u.ID, ev); err != nil {
		logging.FromContext(ctx).Error("event_publish_failed", "type", typ, "user_id", u.ID, "error", err)
	}
}

func logFailure(l *slog.Logger, msg string, err error) {
	status := apperr.StatusCode(err)
	if status >= http.StatusInternalServerError {
		l.Error(msg, "status", status, "error", err)
		return
	}
	l.Warn(msg, "status", status, "reason", apperr.PublicMessage(err))
}
