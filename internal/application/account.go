package application

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/igormartsekha/saas-starter-kit/internal/domain"
	"github.com/igormartsekha/saas-starter-kit/internal/validation"
)

type PasswordInput struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (s *Service) CurrentUser(ctx context.Context, identity domain.Identity) (domain.ClientUser, error) {
	u, err := s.repo.GetUserByID(ctx, identity.User.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ClientUser{}, domain.Unauthorized()
		}
		return domain.ClientUser{}, err
	}
	return u.Client(), nil
}

// UpdateAccount applies a partial update of name, email and image. Any
// request carrying an email is subject to the email-change rules, even when
// the address is unchanged.
func (s *Service) UpdateAccount(ctx context.Context, identity domain.Identity, in domain.UserUpdate) (domain.User, error) {
	if err := validate(validation.UpdateAccount, in); err != nil {
		return domain.User{}, err
	}

	if in.Email != nil {
		if !s.settings.AllowEmailChange {
			return domain.User{}, domain.BadRequest("Email change is not allowed.")
		}
		if !s.emailAllowed(*in.Email) {
			return domain.User{}, domain.BadRequest("Please use your work email.")
		}
		other, err := s.repo.GetUserByEmail(ctx, *in.Email)
		switch {
		case err == nil && other.ID != identity.User.ID:
			return domain.User{}, domain.BadRequest("Email already in use.")
		case err != nil && !errors.Is(err, domain.ErrNotFound):
			return domain.User{}, err
		}
	}

	u, err := s.repo.UpdateUser(ctx, identity.User.ID, in)
	if err != nil {
		return domain.User{}, err
	}

	fields := make([]string, 0, 3)
	if in.Name != nil {
		fields = append(fields, "name")
	}
	if in.Email != nil {
		fields = append(fields, "email")
	}
	if in.Image != nil {
		fields = append(fields, "image")
	}
	s.WriteAudit(ctx, &u.ID, nil, "user.update", "user", idString(u.ID), strings.Join(fields, ","))
	return u, nil
}

// UpdatePassword checks the current password, stores the new hash and signs
// out every other session of the user.
func (s *Service) UpdatePassword(ctx context.Context, identity domain.Identity, in PasswordInput, keepSessionToken string) error {
	if err := validate(validation.UpdatePassword, in); err != nil {
		return err
	}
	u, err := s.repo.GetUserByID(ctx, identity.User.ID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.CurrentPassword)); err != nil {
		return domain.BadRequest("Your current password is incorrect.")
	}
	hash, err := hashPassword(in.NewPassword)
	if err != nil {
		return err
	}
	if err := s.repo.UpdatePasswordHash(ctx, u.ID, hash); err != nil {
		return err
	}
	if err := s.repo.DeleteSessionsByUserID(ctx, u.ID); err != nil {
		s.logger.Warn("revoke sessions after password change", "user_id", u.ID, "err", err)
	}
	if keepSessionToken != "" {
		if _, err := s.repo.CreateSession(ctx, domain.AuthSession{
			UserID:    u.ID,
			TokenHash: hashToken(keepSessionToken),
			ExpiresAt: s.now().Add(s.settings.SessionTTL),
		}); err != nil {
			s.logger.Warn("restore current session", "user_id", u.ID, "err", err)
		}
	}
	s.WriteAudit(ctx, &u.ID, nil, "user.password.update", "user", idString(u.ID), nil)
	return nil
}
