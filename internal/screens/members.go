package screens

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/igormartsekha/saas-starter-kit/internal/domain"
	"github.com/igormartsekha/saas-starter-kit/internal/form"
	"github.com/igormartsekha/saas-starter-kit/internal/mutation"
	"github.com/igormartsekha/saas-starter-kit/internal/resource"
	"github.com/igormartsekha/saas-starter-kit/internal/ui"
	"github.com/igormartsekha/saas-starter-kit/internal/validation"
)

type Members struct {
	deps Deps
	slug string
}

func NewMembers(deps Deps, slug string) *Members {
	return &Members{deps: deps, slug: slug}
}

func (s *Members) List(ctx context.Context) ([]domain.TeamMember, error) {
	return resource.Load[[]domain.TeamMember](ctx, s.deps.Store, MembersKey(s.slug))
}

// Remove deletes a member after confirmation.
func (s *Members) Remove(ctx context.Context, member domain.TeamMember) error {
	dialog := NewConfirmationDialog(s.deps.Confirmer, "Remove member",
		"Are you sure you want to remove "+member.User.Email+" from the team?")
	return dialog.Run(ctx, func(ctx context.Context) error {
		path := MembersKey(s.slug) + "?" + url.Values{"memberId": {strconv.FormatUint(uint64(member.UserID), 10)}}.Encode()
		if _, err := s.deps.mutate(ctx, mutation.Request{Method: http.MethodDelete, Path: path}); err != nil {
			return err
		}
		s.deps.success(ui.MsgMemberDeleted)
		s.deps.invalidate(ctx, MembersKey(s.slug))
		return nil
	})
}

func (s *Members) UpdateRole(ctx context.Context, memberID uint, role domain.Role) error {
	body := map[string]any{"memberId": memberID, "role": role}
	if _, err := s.deps.mutate(ctx, mutation.Request{Method: http.MethodPatch, Path: MembersKey(s.slug), Body: body}); err != nil {
		return err
	}
	s.deps.success(ui.MsgMemberRoleUpdated)
	s.deps.invalidate(ctx, MembersKey(s.slug))
	return nil
}

// PendingInvitations lists the invitations sent by email that were not
// accepted yet.
type PendingInvitations struct {
	deps Deps
	slug string
}

func NewPendingInvitations(deps Deps, slug string) *PendingInvitations {
	return &PendingInvitations{deps: deps, slug: slug}
}

func (s *PendingInvitations) List(ctx context.Context) ([]domain.Invitation, error) {
	return resource.Load[[]domain.Invitation](ctx, s.deps.Store, PendingInvitationsKey(s.slug))
}

func (s *PendingInvitations) Delete(ctx context.Context, inv domain.Invitation) error {
	dialog := NewConfirmationDialog(s.deps.Confirmer, "Delete invitation",
		"Are you sure you want to delete the invitation for "+inv.Email+"?")
	return dialog.Run(ctx, func(ctx context.Context) error {
		path := TeamKey(s.slug) + "/invitations?" + url.Values{"id": {inv.ID}}.Encode()
		if _, err := s.deps.mutate(ctx, mutation.Request{Method: http.MethodDelete, Path: path}); err != nil {
			return err
		}
		s.deps.success(ui.MsgInvitationDeleted)
		s.deps.invalidate(ctx, PendingInvitationsKey(s.slug))
		return nil
	})
}

type InviteValues struct {
	Email        string      `json:"email"`
	Role         domain.Role `json:"role"`
	SentViaEmail bool        `json:"sentViaEmail"`
}

// InviteViaEmail sends an invitation and refreshes the pending list.
type InviteViaEmail struct {
	Form *form.Controller[InviteValues]
}

func NewInviteViaEmail(deps Deps, slug string) *InviteViaEmail {
	initial := InviteValues{Role: domain.RoleMember, SentViaEmail: true}
	return &InviteViaEmail{Form: form.New(initial, form.Options[InviteValues]{
		Validate: func(v InviteValues) validation.Errors { return validation.Invitation.Validate(v) },
		Submit: func(ctx context.Context, v InviteValues) error {
			return deps.Client.Do(ctx, mutation.Request{Method: http.MethodPost, Path: TeamKey(slug) + "/invitations", Body: v}).AsError()
		},
		Notifier:       deps.Notifier,
		SuccessMessage: ui.MsgInvitationSent,
		ResetOnSuccess: true,
		OnSuccess: func(ctx context.Context, _ InviteValues) {
			deps.invalidate(ctx, PendingInvitationsKey(slug))
		},
	})}
}

type LinkValues struct {
	Role           domain.Role `json:"role"`
	AllowedDomains []string    `json:"allowedDomains,omitempty"`
	SentViaEmail   bool        `json:"sentViaEmail"`
}

// InviteViaLink manages the team's shareable invitation link. The role starts
// empty so creating a link is always a deliberate choice.
type InviteViaLink struct {
	deps Deps
	slug string
	Form *form.Controller[LinkValues]
}

func NewInviteViaLink(deps Deps, slug string) *InviteViaLink {
	s := &InviteViaLink{deps: deps, slug: slug}
	s.Form = form.New(LinkValues{}, form.Options[LinkValues]{
		Validate: func(v LinkValues) validation.Errors { return validation.Invitation.Validate(v) },
		Submit: func(ctx context.Context, v LinkValues) error {
			return deps.Client.Do(ctx, mutation.Request{Method: http.MethodPost, Path: TeamKey(slug) + "/invitations", Body: v}).AsError()
		},
		Notifier:       deps.Notifier,
		SuccessMessage: ui.MsgInviteLinkCreated,
		ResetOnSuccess: true,
		OnSuccess: func(ctx context.Context, _ LinkValues) {
			deps.invalidate(ctx, LinkInvitationKey(slug))
		},
	})
	return s
}

// Current returns the team's link, or nil when none was created.
func (s *InviteViaLink) Current(ctx context.Context) (*domain.Invitation, error) {
	links, err := resource.Load[[]domain.Invitation](ctx, s.deps.Store, LinkInvitationKey(s.slug))
	if err != nil || len(links) == 0 {
		return nil, err
	}
	return &links[0], nil
}

// URL is the address to share, empty when the team has no link.
func (s *InviteViaLink) URL(ctx context.Context) (string, error) {
	inv, err := s.Current(ctx)
	if err != nil || inv == nil {
		return "", err
	}
	return inv.URL(s.deps.Client.Server()), nil
}

func (s *InviteViaLink) Delete(ctx context.Context, inv domain.Invitation) error {
	dialog := NewConfirmationDialog(s.deps.Confirmer, "Delete invitation link",
		"Are you sure you want to delete the invitation link? Anyone holding it will no longer be able to join.")
	return dialog.Run(ctx, func(ctx context.Context) error {
		path := TeamKey(s.slug) + "/invitations?" + url.Values{"id": {inv.ID}}.Encode()
		if _, err := s.deps.mutate(ctx, mutation.Request{Method: http.MethodDelete, Path: path}); err != nil {
			return err
		}
		s.deps.success(ui.MsgInvitationDeleted)
		s.deps.invalidate(ctx, LinkInvitationKey(s.slug))
		return nil
	})
}
