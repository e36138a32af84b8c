package application

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/igormartsekha/saas-starter-kit/internal/domain"
	"github.com/igormartsekha/saas-starter-kit/internal/validation"
)

type JoinInput struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	Team        string `json:"team,omitempty"`
	InviteToken string `json:"inviteToken,omitempty"`
}

// BootstrapAdmin creates the first user and a personal team on an empty
// database. It is a no-op once any user exists.
func (s *Service) BootstrapAdmin(ctx context.Context, email, password string) error {
	if strings.TrimSpace(email) == "" || strings.TrimSpace(password) == "" {
		return errors.New("bootstrap admin email and password are required")
	}

	count, err := s.repo.CountUsers(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := hashPassword(password)
	if err != nil {
		return err
	}

	name := email
	if at := strings.Index(email, "@"); at > 0 {
		name = email[:at]
	}
	u, err := s.repo.CreateUser(ctx, domain.User{Name: name, Email: email, PasswordHash: hash})
	if err != nil {
		return err
	}

	team, err := s.createTeam(ctx, u, "Admin")
	if err != nil {
		return err
	}

	s.WriteAudit(ctx, &u.ID, &team.ID, "auth.bootstrap_admin", "user", idString(u.ID), "initial admin created")
	return nil
}

// Join registers a user. With an invite token the user joins that team,
// otherwise a new team named in.Team is created when given.
func (s *Service) Join(ctx context.Context, in JoinInput) (domain.User, error) {
	if err := validate(validation.Join, in); err != nil {
		return domain.User{}, err
	}
	if !s.emailAllowed(in.Email) {
		return domain.User{}, domain.BadRequest("Please use your work email.")
	}
	if _, err := s.repo.GetUserByEmail(ctx, in.Email); err == nil {
		return domain.User{}, domain.BadRequest("An user with this email already exists.")
	} else if !errors.Is(err, domain.ErrNotFound) {
		return domain.User{}, err
	}

	var invitation *domain.Invitation
	if strings.TrimSpace(in.InviteToken) != "" {
		inv, err := s.validInvitation(ctx, in.InviteToken)
		if err != nil {
			return domain.User{}, err
		}
		if err := invitationAllows(inv, in.Email); err != nil {
			return domain.User{}, err
		}
		invitation = &inv
	} else if strings.TrimSpace(in.Team) != "" {
		slug := Slugify(in.Team)
		if slug == "" {
			return domain.User{}, validation.Errors{"team": "Team name must contain letters or digits"}
		}
		exists, err := s.repo.SlugExists(ctx, slug)
		if err != nil {
			return domain.User{}, err
		}
		if exists {
			return domain.User{}, domain.BadRequest("A team with the slug already exists.")
		}
	}

	hash, err := hashPassword(in.Password)
	if err != nil {
		return domain.User{}, err
	}
	u, err := s.repo.CreateUser(ctx, domain.User{Name: in.Name, Email: in.Email, PasswordHash: hash})
	if err != nil {
		return domain.User{}, err
	}
	s.WriteAudit(ctx, &u.ID, nil, "user.join", "user", idString(u.ID), nil)

	switch {
	case invitation != nil:
		if _, err := s.acceptInvitation(ctx, u, *invitation); err != nil {
			return domain.User{}, err
		}
	case strings.TrimSpace(in.Team) != "":
		if _, err := s.createTeam(ctx, u, in.Team); err != nil {
			return domain.User{}, err
		}
	}
	return u, nil
}

func (s *Service) LoginWithSession(ctx context.Context, email, password string) (domain.User, string, error) {
	u, err := s.authenticateEmailPassword(ctx, email, password)
	if err != nil {
		return domain.User{}, "", err
	}

	plain, hash, err := newTokenPair()
	if err != nil {
		return domain.User{}, "", err
	}

	_, err = s.repo.CreateSession(ctx, domain.AuthSession{
		UserID:    u.ID,
		TokenHash: hash,
		ExpiresAt: s.now().Add(s.settings.SessionTTL),
	})
	if err != nil {
		return domain.User{}, "", err
	}

	s.WriteAudit(ctx, &u.ID, nil, "auth.login.session", "user", idString(u.ID), "session login")
	return u, plain, nil
}

func (s *Service) LoginWithAPIToken(ctx context.Context, email, password, tokenName string, ttl *time.Duration) (domain.User, string, error) {
	u, err := s.authenticateEmailPassword(ctx, email, password)
	if err != nil {
		return domain.User{}, "", err
	}

	plain, hash, err := newTokenPair()
	if err != nil {
		return domain.User{}, "", err
	}

	var expiresAt *time.Time
	if ttl != nil {
		t := s.now().Add(*ttl)
		expiresAt = &t
	}

	_, err = s.repo.CreateAPIToken(ctx, domain.APIToken{
		UserID:    u.ID,
		Name:      defaultString(tokenName, "cli"),
		TokenHash: hash,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return domain.User{}, "", err
	}

	s.WriteAudit(ctx, &u.ID, nil, "auth.login.api_token", "user", idString(u.ID), "api token issued")
	return u, plain, nil
}

func (s *Service) AuthenticateSession(ctx context.Context, token string) (domain.Identity, error) {
	hash := hashToken(token)
	session, err := s.repo.GetSessionByTokenHash(ctx, hash)
	if err != nil {
		return domain.Identity{}, domain.Unauthorized()
	}
	if session.ExpiresAt.Before(s.now()) {
		_ = s.repo.DeleteSessionByTokenHash(ctx, hash)
		return domain.Identity{}, domain.Unauthorized()
	}
	return s.identityByUserID(ctx, session.UserID)
}

func (s *Service) AuthenticateBearerToken(ctx context.Context, token string) (domain.Identity, error) {
	apit, err := s.repo.GetAPITokenByTokenHash(ctx, hashToken(token))
	if err != nil {
		return domain.Identity{}, domain.Unauthorized()
	}
	if apit.ExpiresAt != nil && apit.ExpiresAt.Before(s.now()) {
		return domain.Identity{}, domain.Unauthorized()
	}
	return s.identityByUserID(ctx, apit.UserID)
}

func (s *Service) LogoutSession(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return nil
	}
	return s.repo.DeleteSessionByTokenHash(ctx, hashToken(token))
}

func (s *Service) authenticateEmailPassword(ctx context.Context, email, password string) (domain.User, error) {
	u, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return domain.User{}, domain.NewAPIError(http.StatusUnauthorized, "Invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return domain.User{}, domain.NewAPIError(http.StatusUnauthorized, "Invalid email or password")
	}
	return u, nil
}

func (s *Service) identityByUserID(ctx context.Context, userID uint) (domain.Identity, error) {
	u, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return domain.Identity{}, domain.Unauthorized()
	}
	return domain.Identity{User: u}, nil
}
