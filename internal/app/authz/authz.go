package authz

import "strings"

// Role is a closed set shared by global (user-level) and board-level roles.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
	RoleViewer Role = "viewer"
)

func ParseRole(raw string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleOwner:
		return RoleOwner, true
	case RoleAdmin:
		return RoleAdmin, true
	case RoleMember:
		return RoleMember, true
	case RoleViewer:
		return RoleViewer, true
	default:
		return "", false
	}
}

// Action is a board-scoped operation subject to the permission table.
type Action string

const (
	ActionViewBoard     Action = "viewBoard"
	ActionEditBoard     Action = "editBoard"
	ActionDeleteBoard   Action = "deleteBoard"
	ActionManageMembers Action = "manageMembers"
	ActionCreateList    Action = "createList"
	ActionDeleteList    Action = "deleteList"
	ActionCreateTask    Action = "createTask"
	ActionEditTask      Action = "editTask"
	ActionDeleteTask    Action = "deleteTask"
)

// User is the authorization view of a requester.
type User struct {
	ID         string
	GlobalRole Role
}

// Member is one entry of a board's membership list.
type Member struct {
	UserID string
	Role   Role
}

// Board is the authorization view of a board.
type Board struct {
	OwnerID string
	Members []Member
}

// rules maps each action to its minimum allowed roles. deleteBoard appears
// here for completeness but is governed by CanDeleteBoard, which overrides
// this entry with owner-identity-aware checks.
var rules = map[Action][]Role{
	ActionViewBoard:     {RoleOwner, RoleAdmin, RoleMember, RoleViewer},
	ActionEditBoard:     {RoleOwner, RoleAdmin},
	ActionDeleteBoard:   {RoleOwner, RoleAdmin},
	ActionManageMembers: {RoleOwner},
	ActionCreateList:    {RoleOwner, RoleAdmin},
	ActionDeleteList:    {RoleOwner, RoleAdmin},
	ActionCreateTask:    {RoleOwner, RoleAdmin, RoleMember},
	ActionEditTask:      {RoleOwner, RoleAdmin, RoleMember},
	ActionDeleteTask:    {RoleOwner, RoleAdmin, RoleMember},
}

// EffectiveRole resolves the role a user holds on a board, first match wins:
// global admin/owner override everything, then board ownership, then the
// membership entry (defaulting to member for legacy rows), then viewer.
func EffectiveRole(u User, b Board) Role {
	if u.GlobalRole == RoleAdmin {
		return RoleAdmin
	}
	if u.GlobalRole == RoleOwner {
		return RoleOwner
	}
	if b.OwnerID != "" && b.OwnerID == u.ID {
		return RoleOwner
	}
	for _, m := range b.Members {
		if m.UserID == u.ID {
			if m.Role == "" {
				return RoleMember
			}
			return m.Role
		}
	}
	return RoleViewer
}

// CanPerform reports whether the user's effective role on the board is in the
// allowed set for the action. It is a pure function of its inputs.
func CanPerform(u User, b Board, action Action) bool {
	allowed, ok := rules[action]
	if !ok {
		return false
	}
	role := EffectiveRole(u, b)
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}

// CanDeleteBoard implements the delete-board policy, which looks only at
// global roles and board creatorship:
//   - a global owner may delete boards they created, and any board whose
//     creator's global role is admin;
//   - a global admin may delete only boards they created themselves;
//   - everyone else is denied.
//
// boardOwnerGlobal must be resolved fresh from the user store, not taken from
// a cached claim.
func CanDeleteBoard(requesterID string, requesterGlobal Role, boardOwnerID string, boardOwnerGlobal Role) bool {
	switch requesterGlobal {
	case RoleOwner:
		if requesterID != "" && requesterID == boardOwnerID {
			return true
		}
		return boardOwnerGlobal == RoleAdmin
	case RoleAdmin:
		return requesterID != "" && requesterID == boardOwnerID
	default:
		return false
	}
}

// BoardVisible implements the board listing filter. Owners and members always
// see their boards; global owners see everything; global admins see
// everything except boards created by a global owner.
func BoardVisible(u User, b Board, ownerGlobal Role) bool {
	if b.OwnerID == u.ID {
		return true
	}
	for _, m := range b.Members {
		if m.UserID == u.ID {
			return true
		}
	}
	if u.GlobalRole == RoleOwner {
		return true
	}
	if u.GlobalRole == RoleAdmin {
		return ownerGlobal != RoleOwner
	}
	return false
}
