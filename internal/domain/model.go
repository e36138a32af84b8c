package domain

import (
	"net/url"
	"strings"
	"time"
)

type Role string

const (
	RoleOwner  Role = "OWNER"
	RoleAdmin  Role = "ADMIN"
	RoleMember Role = "MEMBER"
)

// AvailableRoles is ordered from the default invitation role to the most privileged.
var AvailableRoles = []Role{RoleMember, RoleAdmin, RoleOwner}

func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleMember:
		return true
	}
	return false
}

type User struct {
	ID           uint      `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Image        string    `json:"image"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// ClientUser is the subset of User returned to the session's owner.
type ClientUser struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Image string `json:"image"`
}

func (u User) Client() ClientUser {
	return ClientUser{ID: u.ID, Name: u.Name, Email: u.Email, Image: u.Image}
}

type UserUpdate struct {
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty"`
	Image *string `json:"image,omitempty"`
}

type Team struct {
	ID          uint      `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Domain      string    `json:"domain"`
	MemberCount int       `json:"memberCount"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type TeamMember struct {
	ID        uint       `json:"id"`
	TeamID    uint       `json:"teamId"`
	UserID    uint       `json:"userId"`
	Role      Role       `json:"role"`
	User      ClientUser `json:"user"`
	CreatedAt time.Time  `json:"createdAt"`
}

type Invitation struct {
	ID           string `json:"id"`
	TeamID       uint   `json:"teamId"`
	Email        string `json:"email"`
	Role         Role   `json:"role"`
	Token        string `json:"token"`
	InvitedBy    uint   `json:"invitedBy"`
	SentViaEmail bool   `json:"sentViaEmail"`

	// AllowedDomains restricts who may join through a link invitation.
	// Empty means anyone with the link.
	AllowedDomains []string  `json:"allowedDomains"`
	ExpiresAt      time.Time `json:"expiresAt"`
	CreatedAt      time.Time `json:"createdAt"`
}

func (i Invitation) Expired(now time.Time) bool {
	return !i.ExpiresAt.IsZero() && i.ExpiresAt.Before(now)
}

// AllowsEmail reports whether email may use a link invitation.
func (i Invitation) AllowsEmail(email string) bool {
	if len(i.AllowedDomains) == 0 {
		return true
	}
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return false
	}
	host := strings.ToLower(strings.TrimSpace(email[at+1:]))
	for _, d := range i.AllowedDomains {
		if strings.EqualFold(host, d) {
			return true
		}
	}
	return false
}

// URL is the sign in page of server preloaded with the invitation token.
func (i Invitation) URL(server string) string {
	return strings.TrimRight(server, "/") + "/login?" + url.Values{"invite": {i.Token}}.Encode()
}

type APIKey struct {
	ID         string     `json:"id"`
	TeamID     uint       `json:"teamId"`
	Name       string     `json:"name"`
	HashedKey  string     `json:"-"`
	ExpiresAt  *time.Time `json:"expiresAt"`
	LastUsedAt *time.Time `json:"lastUsedAt"`
	CreatedAt  time.Time  `json:"createdAt"`
}

type AuthSession struct {
	ID        uint
	UserID    uint
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}

type APIToken struct {
	ID        uint
	UserID    uint
	Name      string
	TokenHash string
	ExpiresAt *time.Time
	CreatedAt time.Time
}

type AuditLog struct {
	ID          uint
	ActorUserID *uint
	TeamID      *uint
	Action      string
	TargetType  string
	TargetID    string
	Metadata    string
	CreatedAt   time.Time
}

type Identity struct {
	User User
}

type AuditRecord struct {
	ID             uint      `json:"id"`
	ActorUserID    *uint     `json:"actorUserId"`
	ActorUserEmail string    `json:"actorUserEmail"`
	TeamID         *uint     `json:"teamId"`
	Action         string    `json:"action"`
	TargetType     string    `json:"targetType"`
	TargetID       string    `json:"targetId"`
	Metadata       string    `json:"metadata"`
	CreatedAt      time.Time `json:"createdAt"`
}

// AuditFilter narrows an audit listing. Nil fields do not filter.
type AuditFilter struct {
	TeamID      *uint
	ActorUserID *uint
	Limit       int
}
