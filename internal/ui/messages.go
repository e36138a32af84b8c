package ui

// Toast texts shown after a successful mutation, shared by the web pages and
// the client screens.
const (
	MsgUpdated           = "Successfully updated"
	MsgTeamCreated       = "Team created"
	MsgTeamRemoved       = "Team removed successfully"
	MsgLeftTeam          = "You have left the team"
	MsgMemberDeleted     = "Member deleted"
	MsgMemberRoleUpdated = "Member role updated"
	MsgInvitationSent    = "Invitation sent"
	MsgInvitationDeleted = "Invitation deleted"
	MsgInviteLinkCreated = "Invitation link created"
	MsgAPIKeyCreated     = "API key created"
	MsgAPIKeyDeleted     = "API key deleted"
)
