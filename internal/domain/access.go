package domain

const (
	ResourceTeam           = "team"
	ResourceTeamMember     = "team_member"
	ResourceTeamInvitation = "team_invitation"
	ResourceTeamAPIKey     = "team_api_key"
)

const (
	ActionCreate = "create"
	ActionRead   = "read"
	ActionUpdate = "update"
	ActionDelete = "delete"
	ActionLeave  = "leave"
)

var allActions = []string{ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionLeave}

var rolePermissions = map[Role]map[string][]string{
	RoleOwner: {
		ResourceTeam:           allActions,
		ResourceTeamMember:     allActions,
		ResourceTeamInvitation: allActions,
		ResourceTeamAPIKey:     allActions,
	},
	RoleAdmin: {
		ResourceTeam:           {ActionRead, ActionUpdate, ActionLeave},
		ResourceTeamMember:     allActions,
		ResourceTeamInvitation: allActions,
		ResourceTeamAPIKey:     allActions,
	},
	RoleMember: {
		ResourceTeam:       {ActionRead, ActionLeave},
		ResourceTeamMember: {ActionRead, ActionLeave},
	},
}

func (r Role) Can(resource, action string) bool {
	for _, a := range rolePermissions[r][resource] {
		if a == action {
			return true
		}
	}
	return false
}
