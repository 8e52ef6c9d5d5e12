package chat

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/matheus3301/schoolchat/internal/api"
)

const previewRunes = 60

// Directory is the merged, de-duplicated contact list. Merges are idempotent:
// contacts are keyed by id, existing contacts keep their position and only
// have their derived fields refreshed, and principals are kept first.
type Directory struct {
	contacts []Contact
	index    map[string]int
}

// NewDirectory creates an empty directory.
func NewDirectory() *Directory {
	return &Directory{index: make(map[string]int)}
}

// Len returns the number of contacts.
func (d *Directory) Len() int { return len(d.contacts) }

// Contacts returns a copy of the ordered list.
func (d *Directory) Contacts() []Contact {
	out := make([]Contact, len(d.contacts))
	copy(out, d.contacts)
	return out
}

// Get returns the contact with the given id.
func (d *Directory) Get(id string) (Contact, bool) {
	i, ok := d.index[id]
	if !ok {
		return Contact{}, false
	}
	return d.contacts[i], true
}

// FindByThread returns the contact linked to threadID.
func (d *Directory) FindByThread(threadID string) (Contact, bool) {
	if threadID == "" {
		return Contact{}, false
	}
	for _, c := range d.contacts {
		if c.LinkedThreadID == threadID {
			return c, true
		}
	}
	return Contact{}, false
}

// Update applies fn to the contact with the given id in place.
func (d *Directory) Update(id string, fn func(*Contact)) bool {
	i, ok := d.index[id]
	if !ok {
		return false
	}
	fn(&d.contacts[i])
	return true
}

// Merge appends contacts whose id is not yet present and refreshes the
// derived fields of the ones that are. It returns how many were appended.
func (d *Directory) Merge(incoming []Contact) int {
	added := 0
	for _, c := range incoming {
		if c.ID == "" {
			continue
		}
		if i, ok := d.index[c.ID]; ok {
			refresh(&d.contacts[i], c)
			continue
		}
		d.index[c.ID] = len(d.contacts)
		d.contacts = append(d.contacts, c)
		added++
	}
	d.hoistPrincipals()
	return added
}

// hoistPrincipals moves principal contacts to the front, keeping the
// relative order of everything else.
func (d *Directory) hoistPrincipals() {
	head := make([]Contact, 0, 1)
	rest := make([]Contact, 0, len(d.contacts))
	for _, c := range d.contacts {
		if c.Kind == KindPrincipal {
			head = append(head, c)
		} else {
			rest = append(rest, c)
		}
	}
	if len(head) == 0 {
		return
	}
	d.contacts = append(head, rest...)
	for i, c := range d.contacts {
		d.index[c.ID] = i
	}
}

// refresh copies derived, non-authoritative fields from src into dst.
// Identity and position of dst are never changed.
func refresh(dst *Contact, src Contact) {
	if dst.DisplayName == "" {
		dst.DisplayName = src.DisplayName
	}
	if dst.LinkedThreadID == "" {
		dst.LinkedThreadID = src.LinkedThreadID
	}
	if !src.LastMessageAt.IsZero() && !src.LastMessageAt.Before(dst.LastMessageAt) {
		dst.LastMessageAt = src.LastMessageAt
		dst.LastMessagePreview = src.LastMessagePreview
		dst.LastMessageLabel = src.LastMessageLabel
	}
	switch dst.Kind {
	case KindParent:
		if src.Parent != nil && (dst.Parent == nil || (len(dst.Parent.Students) == 0 && len(src.Parent.Students) > 0)) {
			p := *src.Parent
			dst.Parent = &p
		}
	case KindPrincipal:
		if dst.Principal == nil && src.Principal != nil {
			p := *src.Principal
			dst.Principal = &p
		}
	case KindTeacher:
		if dst.Teacher == nil && src.Teacher != nil {
			t := *src.Teacher
			dst.Teacher = &t
		}
	case KindGroup:
		if len(src.GroupMembers) > 0 {
			dst.GroupMembers = src.GroupMembers
		}
	}
}

// ContactsFromLinked turns the linked-parents payload into contacts: the
// principal first (when present), then the parents in server order.
func ContactsFromLinked(resp *api.LinkedParentsResponse) []Contact {
	if resp == nil {
		return nil
	}
	out := make([]Contact, 0, len(resp.LinkedParents)+1)
	if p := resp.Principal; p != nil && p.ID != "" {
		out = append(out, Contact{
			ID:          PrincipalContactID(p.ID),
			DisplayName: p.FullName,
			Kind:        KindPrincipal,
			Principal:   &PrincipalInfo{UserID: p.ID, FullName: p.FullName},
		})
	}
	for _, lp := range resp.LinkedParents {
		if lp.ParentID == "" {
			continue
		}
		info := &ParentInfo{
			UserID:   lp.ParentID,
			FullName: lp.FullName,
			Email:    lp.Email,
			Phone:    lp.PhoneNumber,
		}
		for _, s := range lp.LinkedStudents {
			info.Students = append(info.Students, Student{Name: s.FullName, ClassName: s.ClassName})
		}
		c := Contact{
			ID:          lp.ParentID,
			DisplayName: lp.FullName,
			Kind:        KindParent,
			Parent:      info,
		}
		if lp.ChatInfo.HasThread {
			c.LinkedThreadID = lp.ChatInfo.ThreadID
		}
		out = append(out, c)
	}
	return out
}

// ContactsFromThreads turns threads into contacts. Direct threads become a
// contact for the counterpart (keyed like the linked-parents contacts so
// they de-duplicate); group threads are keyed by thread id.
func ContactsFromThreads(threads []Thread, me string, now time.Time, loc *time.Location) []Contact {
	out := make([]Contact, 0, len(threads))
	for _, t := range threads {
		c, ok := contactFromThread(t, me)
		if !ok {
			continue
		}
		if m, ok := t.Latest(); ok {
			applyPreview(&c, m, now, loc)
		}
		out = append(out, c)
	}
	return out
}

func contactFromThread(t Thread, me string) (Contact, bool) {
	if t.ID == "" {
		return Contact{}, false
	}
	if t.Type == ThreadGroup {
		members := make([]Participant, len(t.Participants))
		copy(members, t.Participants)
		return Contact{
			ID:             t.ID,
			DisplayName:    t.Name(me),
			Kind:           KindGroup,
			LinkedThreadID: t.ID,
			GroupMembers:   members,
		}, true
	}

	p, ok := t.Counterpart(me)
	if !ok {
		return Contact{}, false
	}
	name := t.Name(me)
	c := Contact{DisplayName: name, LinkedThreadID: t.ID}
	switch p.Role {
	case api.RoleParent:
		c.ID = p.UserID
		c.Kind = KindParent
		c.Parent = &ParentInfo{UserID: p.UserID, FullName: p.Name}
	case api.RolePrincipal:
		c.ID = PrincipalContactID(p.UserID)
		c.Kind = KindPrincipal
		c.Principal = &PrincipalInfo{UserID: p.UserID, FullName: p.Name}
	default:
		c.ID = p.UserID
		c.Kind = KindTeacher
		c.Teacher = &TeacherInfo{UserID: p.UserID, FullName: p.Name}
	}
	return c, true
}

func applyPreview(c *Contact, m Message, now time.Time, loc *time.Location) {
	c.LastMessageAt = m.CreatedAt
	c.LastMessagePreview = previewText(m.Content)
	c.LastMessageLabel = PreviewLabel(m.CreatedAt, now, loc)
}

func previewText(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= previewRunes {
		return s
	}
	r := []rune(s)
	return string(r[:previewRunes-1]) + "…"
}
