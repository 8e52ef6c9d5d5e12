package chat

import (
	"strconv"
	"strings"
	"time"
)

// Kind is the variant of a contact.
type Kind string

const (
	KindParent    Kind = "parent"
	KindPrincipal Kind = "principal"
	KindTeacher   Kind = "teacher"
	KindGroup     Kind = "group"
)

const principalPrefix = "principal-"

// PrincipalContactID returns the synthetic contact id for a principal user.
func PrincipalContactID(userID string) string {
	return principalPrefix + userID
}

// Student is a child linked to a parent contact.
type Student struct {
	Name      string
	ClassName string
}

// ParentInfo is populated for KindParent contacts.
type ParentInfo struct {
	UserID   string
	FullName string
	Email    string
	Phone    string
	Students []Student
}

// PrincipalInfo is populated for KindPrincipal contacts.
type PrincipalInfo struct {
	UserID   string
	FullName string
}

// TeacherInfo is populated for KindTeacher contacts.
type TeacherInfo struct {
	UserID   string
	FullName string
}

// Contact is one addressable chat target in the contact list. Exactly one of
// Parent, Principal, Teacher or GroupMembers is set, according to Kind.
// LinkedThreadID is a weak reference: the thread itself is looked up in the
// ThreadIndex when needed.
type Contact struct {
	ID          string
	DisplayName string
	Kind        Kind

	LastMessagePreview string
	LastMessageLabel   string
	LastMessageAt      time.Time
	UnreadCount        int

	LinkedThreadID string

	Parent       *ParentInfo
	Principal    *PrincipalInfo
	Teacher      *TeacherInfo
	GroupMembers []Participant
}

// CounterpartID returns the user id a direct thread with this contact is
// keyed on. Groups have none.
func (c Contact) CounterpartID() string {
	switch c.Kind {
	case KindParent:
		if c.Parent != nil {
			return c.Parent.UserID
		}
	case KindPrincipal:
		if c.Principal != nil {
			return c.Principal.UserID
		}
	case KindTeacher:
		if c.Teacher != nil {
			return c.Teacher.UserID
		}
	}
	return ""
}

// Subtitle is the secondary line shown under a contact: linked students for
// parents, the member count for groups.
func (c Contact) Subtitle() string {
	switch c.Kind {
	case KindParent:
		if c.Parent == nil || len(c.Parent.Students) == 0 {
			return "Parent"
		}
		parts := make([]string, 0, len(c.Parent.Students))
		for _, s := range c.Parent.Students {
			if s.ClassName != "" {
				parts = append(parts, s.Name+" ("+s.ClassName+")")
			} else {
				parts = append(parts, s.Name)
			}
		}
		return "Parent of " + strings.Join(parts, ", ")
	case KindPrincipal:
		return "Principal"
	case KindTeacher:
		return "Teacher"
	case KindGroup:
		if len(c.GroupMembers) == 1 {
			return "1 member"
		}
		return strconv.Itoa(len(c.GroupMembers)) + " members"
	}
	return ""
}
