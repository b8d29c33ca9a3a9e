package rbac

type Role string
type Permission string

const (
	RoleViewer    Role = "viewer"
	RoleCommenter Role = "commenter"
	RoleEditor    Role = "editor"
	RoleAdmin     Role = "admin"
)

const (
	PermCardEdit         Permission = "CARD_EDIT"
	PermCardComment      Permission = "CARD_COMMENT"
	PermCardAssignMember Permission = "CARD_ASSIGN_MEMBER"
)

func Can(role Role, perm Permission) bool {
	switch role {
	case RoleAdmin:
		return true
	case RoleEditor:
		return perm == PermCardEdit || perm == PermCardComment || perm == PermCardAssignMember
	case RoleCommenter:
		return perm == PermCardComment
	case RoleViewer:
		return false
	default:
		return false
	}
}

func Normalize(role string) Role {
	switch Role(role) {
	case RoleViewer, RoleCommenter, RoleEditor, RoleAdmin:
		return Role(role)
	default:
		return RoleViewer
	}
}

func Valid(role string) bool {
	switch Role(role) {
	case RoleViewer, RoleCommenter, RoleEditor, RoleAdmin:
		return true
	default:
		return false
	}
}
