package authz

import "testing"

func TestEffectiveRoleResolutionOrder(t *testing.T) {
	board := Board{
		OwnerID: "owner-1",
		Members: []Member{
			{UserID: "m1", Role: RoleViewer},
			{UserID: "m2"}, // legacy row without a role
		},
	}

	cases := []struct {
		name string
		user User
		want Role
	}{
		{"global admin overrides membership", User{ID: "m1", GlobalRole: RoleAdmin}, RoleAdmin},
		{"global owner overrides membership", User{ID: "m1", GlobalRole: RoleOwner}, RoleOwner},
		{"board owner", User{ID: "owner-1", GlobalRole: RoleMember}, RoleOwner},
		{"member entry role", User{ID: "m1", GlobalRole: RoleMember}, RoleViewer},
		{"legacy member defaults to member", User{ID: "m2", GlobalRole: RoleMember}, RoleMember},
		{"stranger is viewer", User{ID: "nobody", GlobalRole: RoleMember}, RoleViewer},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := EffectiveRole(tc.user, board); got != tc.want {
				t.Fatalf("EffectiveRole = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestCanPerformIsPure(t *testing.T) {
	u := User{ID: "m1", GlobalRole: RoleMember}
	b := Board{OwnerID: "o", Members: []Member{{UserID: "m1", Role: RoleMember}}}
	first := CanPerform(u, b, ActionCreateTask)
	second := CanPerform(u, b, ActionCreateTask)
	if first != second || !first {
		t.Fatalf("CanPerform not stable: %v then %v", first, second)
	}
}

func TestViewerCannotCreateTask(t *testing.T) {
	// Board owned by O (global member); V has global viewer and no membership.
	board := Board{OwnerID: "O"}
	v := User{ID: "V", GlobalRole: RoleViewer}
	if CanPerform(v, board, ActionCreateTask) {
		t.Fatal("viewer without membership must not create tasks")
	}
	if !CanPerform(v, board, ActionViewBoard) {
		t.Fatal("viewBoard allows viewers")
	}
}

func TestPermissionTable(t *testing.T) {
	board := Board{OwnerID: "o", Members: []Member{
		{UserID: "adm", Role: RoleAdmin},
		{UserID: "mem", Role: RoleMember},
		{UserID: "vie", Role: RoleViewer},
	}}
	cases := []struct {
		userID string
		action Action
		want   bool
	}{
		{"o", ActionEditBoard, true},
		{"adm", ActionEditBoard, true},
		{"mem", ActionEditBoard, false},
		{"o", ActionManageMembers, true},
		{"adm", ActionManageMembers, false},
		{"adm", ActionCreateList, true},
		{"mem", ActionCreateList, false},
		{"mem", ActionCreateTask, true},
		{"mem", ActionEditTask, true},
		{"mem", ActionDeleteTask, true},
		{"vie", ActionCreateTask, false},
		{"vie", ActionViewBoard, true},
	}
	for _, tc := range cases {
		u := User{ID: tc.userID, GlobalRole: RoleMember}
		if got := CanPerform(u, board, tc.action); got != tc.want {
			t.Fatalf("CanPerform(%s, %s) = %v, want %v", tc.userID, tc.action, got, tc.want)
		}
	}
}

func TestCanDeleteBoard(t *testing.T) {
	// Board X created by admin U.
	if !CanDeleteBoard("P", RoleOwner, "U", RoleAdmin) {
		t.Fatal("global owner may delete an admin-created board")
	}
	if CanDeleteBoard("Q", RoleAdmin, "U", RoleAdmin) {
		t.Fatal("admin may only delete boards they created")
	}
	if !CanDeleteBoard("U", RoleAdmin, "U", RoleAdmin) {
		t.Fatal("admin may delete their own board")
	}
	if !CanDeleteBoard("P", RoleOwner, "P", RoleOwner) {
		t.Fatal("owner may delete their own board")
	}
	if CanDeleteBoard("P", RoleOwner, "W", RoleOwner) {
		t.Fatal("owner may not delete another owner's board")
	}
	if CanDeleteBoard("M", RoleMember, "M", RoleMember) {
		t.Fatal("member may never delete boards")
	}
	if CanDeleteBoard("V", RoleViewer, "U", RoleAdmin) {
		t.Fatal("viewer may never delete boards")
	}
}

func TestBoardVisible(t *testing.T) {
	board := Board{OwnerID: "creator", Members: []Member{{UserID: "m1", Role: RoleMember}}}

	cases := []struct {
		name        string
		user        User
		ownerGlobal Role
		want        bool
	}{
		{"owner sees own board", User{ID: "creator", GlobalRole: RoleMember}, RoleMember, true},
		{"member sees board", User{ID: "m1", GlobalRole: RoleMember}, RoleMember, true},
		{"stranger blind", User{ID: "x", GlobalRole: RoleMember}, RoleMember, false},
		{"global owner sees all", User{ID: "x", GlobalRole: RoleOwner}, RoleOwner, true},
		{"global admin sees member-created", User{ID: "x", GlobalRole: RoleAdmin}, RoleMember, true},
		{"global admin blind to owner-created", User{ID: "x", GlobalRole: RoleAdmin}, RoleOwner, false},
		{"viewer blind", User{ID: "x", GlobalRole: RoleViewer}, RoleMember, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := BoardVisible(tc.user, board, tc.ownerGlobal); got != tc.want {
				t.Fatalf("BoardVisible = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestParseRole(t *testing.T) {
	if r, ok := ParseRole(" Admin "); !ok || r != RoleAdmin {
		t.Fatalf("ParseRole(Admin) = %q, %v", r, ok)
	}
	if _, ok := ParseRole("superuser"); ok {
		t.Fatal("unknown role must not parse")
	}
}
