package sqlite

import "time"

type UserModel struct {
	ID           uint   `gorm:"primaryKey"`
	Name         string `gorm:"not null;default:''"`
	Email        string `gorm:"not null;uniqueIndex"`
	Image        string `gorm:"not null;default:''"`
	PasswordHash string `gorm:"not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (UserModel) TableName() string { return "users" }

type SessionModel struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    uint   `gorm:"not null;index"`
	TokenHash string `gorm:"not null;uniqueIndex"`
	ExpiresAt time.Time
	CreatedAt time.Time
}

func (SessionModel) TableName() string { return "sessions" }

type APITokenModel struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    uint   `gorm:"not null;index"`
	Name      string `gorm:"not null"`
	TokenHash string `gorm:"not null;uniqueIndex"`
	ExpiresAt *time.Time
	CreatedAt time.Time
}

func (APITokenModel) TableName() string { return "api_tokens" }

type TeamModel struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"not null"`
	Slug      string `gorm:"not null;uniqueIndex"`
	Domain    string `gorm:"not null;default:''"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (TeamModel) TableName() string { return "teams" }

type TeamMemberModel struct {
	ID        uint   `gorm:"primaryKey"`
	TeamID    uint   `gorm:"not null;index:idx_team_member,unique"`
	UserID    uint   `gorm:"not null;index:idx_team_member,unique"`
	Role      string `gorm:"not null;default:'MEMBER'"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (TeamMemberModel) TableName() string { return "team_members" }

type InvitationModel struct {
	ID           string `gorm:"primaryKey"`
	TeamID       uint   `gorm:"not null;index:idx_invitation_team_email,unique"`
	Email        string `gorm:"not null;index:idx_invitation_team_email,unique"`
	Role         string `gorm:"not null;default:'MEMBER'"`
	Token        string `gorm:"not null;uniqueIndex"`
	InvitedBy    uint   `gorm:"not null"`
	SentViaEmail bool   `gorm:"not null"`

	// Comma separated, lower case.
	AllowedDomains string `gorm:"not null;default:''"`
	ExpiresAt      time.Time
	CreatedAt      time.Time
}

func (InvitationModel) TableName() string { return "invitations" }

type APIKeyModel struct {
	ID         string `gorm:"primaryKey"`
	TeamID     uint   `gorm:"not null;index"`
	Name       string `gorm:"not null"`
	HashedKey  string `gorm:"not null;uniqueIndex"`
	ExpiresAt  *time.Time
	LastUsedAt *time.Time
	CreatedAt  time.Time
}

func (APIKeyModel) TableName() string { return "api_keys" }

type AuditLogModel struct {
	ID          uint `gorm:"primaryKey"`
	ActorUserID *uint
	TeamID      *uint  `gorm:"index"`
	Action      string `gorm:"not null;index"`
	TargetType  string `gorm:"not null"`
	TargetID    string `gorm:"not null;default:''"`
	Metadata    string
	CreatedAt   time.Time
}

func (AuditLogModel) TableName() string { return "audit_logs" }
