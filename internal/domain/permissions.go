package domain

import "sort"

type Permission string

const (
	PermChatSend         Permission = "chat.send"
	PermPollVote         Permission = "poll.vote"
	PermPollManage       Permission = "poll.manage"
	PermPollSeeResults   Permission = "poll.results"
	PermRoomsManage      Permission = "rooms.manage"
	PermRolesAssign      Permission = "roles.assign"
	PermMediaPublish     Permission = "media.publish"
	PermConferenceClose  Permission = "conference.close"
	PermWhiteboardEdit   Permission = "whiteboard.edit"
	PermWhiteboardManage Permission = "whiteboard.manage"
)

var rolePermissions = map[Role][]Permission{
	RoleParticipant: {PermChatSend, PermPollVote, PermMediaPublish, PermWhiteboardEdit},
	RoleModerator: {
		PermChatSend, PermPollVote, PermMediaPublish, PermWhiteboardEdit,
		PermPollManage, PermPollSeeResults, PermRoomsManage, PermRolesAssign, PermConferenceClose,
		PermWhiteboardManage,
	},
}

// PermissionsOf returns the permissions of a role, sorted.
func PermissionsOf(r Role) []Permission {
	perms := append([]Permission(nil), rolePermissions[r]...)
	sort.Slice(perms, func(i, j int) bool { return perms[i] < perms[j] })
	return perms
}

func (r Role) Has(perm Permission) bool {
	for _, p := range rolePermissions[r] {
		if p == perm {
			return true
		}
	}
	return false
}
