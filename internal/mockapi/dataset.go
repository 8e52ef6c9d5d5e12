package mockapi

import (
	"time"

	"github.com/matheus3301/schoolchat/internal/api"
)

// Well-known ids in the demo dataset.
const (
	DemoTeacher   = "u-teacher-1"
	DemoPrincipal = "u-principal"
	DemoParentA   = "u-parent-a"
	DemoParentB   = "u-parent-b"
	DemoParentC   = "u-parent-c"
)

// Demo returns a small school: one teacher, a principal and three parents.
// Parent A already talks to the teacher, the staff group exists, the others
// have no thread yet. Message times are relative to now.
func Demo(now time.Time) Dataset {
	ds := Dataset{
		PrincipalID: DemoPrincipal,
		Users: []User{
			{ID: DemoTeacher, FullName: "Ana Souza", Role: api.RoleTeacher, Email: "ana@school.test"},
			{ID: DemoPrincipal, FullName: "Helena Prado", Role: api.RolePrincipal, Email: "head@school.test"},
			{ID: DemoParentA, FullName: "Carlos Lima", Role: api.RoleParent, Email: "carlos@mail.test"},
			{ID: DemoParentB, FullName: "Beatriz Rocha", Role: api.RoleParent, Email: "bia@mail.test"},
			{ID: DemoParentC, FullName: "Diego Alves", Role: api.RoleParent},
		},
		Links: []Link{
			{TeacherID: DemoTeacher, ParentID: DemoParentA, Students: []api.LinkedStudent{
				{ID: "s-1", FullName: "Lucas Lima", ClassName: "3A", Relationship: "father"},
			}},
			{TeacherID: DemoTeacher, ParentID: DemoParentB, Students: []api.LinkedStudent{
				{ID: "s-2", FullName: "Julia Rocha", ClassName: "3A", Relationship: "mother"},
				{ID: "s-3", FullName: "Pedro Rocha", ClassName: "1B", Relationship: "mother"},
			}},
			{TeacherID: DemoTeacher, ParentID: DemoParentC, Students: []api.LinkedStudent{
				{ID: "s-4", FullName: "Marina Alves", ClassName: "3A"},
			}},
		},
		Threads: []api.Thread{
			{
				ID: "th-a", ThreadType: api.ThreadDirect, CreatedAt: now.Add(-72 * time.Hour).UTC(),
				Participants: []api.Participant{
					{UserID: DemoTeacher, Role: api.RoleTeacher},
					{UserID: DemoParentA, Role: api.RoleParent},
				},
			},
			{
				ID: "th-staff", ThreadType: api.ThreadGroup, Title: "Staff room", CreatedAt: now.Add(-96 * time.Hour).UTC(),
				Participants: []api.Participant{
					{UserID: DemoPrincipal, Role: api.RolePrincipal},
					{UserID: DemoTeacher, Role: api.RoleTeacher},
				},
			},
		},
	}
	ds.Messages = []api.Message{
		{ID: "m-1", ThreadID: "th-a", SenderID: DemoParentA, Content: "Good morning! Lucas will be late tomorrow.", CreatedAt: now.Add(-49 * time.Hour).UTC(), Status: "read"},
		{ID: "m-2", ThreadID: "th-a", SenderID: DemoTeacher, Content: "Thanks for letting me know.", CreatedAt: now.Add(-48 * time.Hour).UTC(), Status: "read"},
		{ID: "m-3", ThreadID: "th-a", SenderID: DemoParentA, Content: "Is there homework this week?", CreatedAt: now.Add(-2 * time.Hour).UTC(), Status: "delivered"},
		{ID: "m-4", ThreadID: "th-staff", SenderID: DemoPrincipal, Content: "Staff meeting moved to Friday.", CreatedAt: now.Add(-26 * time.Hour).UTC(), Status: "read"},
	}
	return ds
}
