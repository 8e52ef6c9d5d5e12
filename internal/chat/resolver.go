package chat

// ThreadFinder is the read side of the authoritative thread collection.
type ThreadFinder interface {
	// Lookup returns the thread with the given id.
	Lookup(id string) (Thread, bool)
	// FindDirectWith scans for the first direct thread userID takes part in.
	FindDirectWith(userID string) (Thread, bool)
}

// lastMessagesCap bounds the per-thread suffix kept for previews.
const lastMessagesCap = 20

// ThreadIndex holds every thread loaded for the signed-in user, in server order.
type ThreadIndex struct {
	order []string
	byID  map[string]Thread
}

// NewThreadIndex creates an empty index.
func NewThreadIndex() *ThreadIndex {
	return &ThreadIndex{byID: make(map[string]Thread)}
}

// Upsert adds or replaces a thread. New threads go last.
func (x *ThreadIndex) Upsert(t Thread) {
	if t.ID == "" {
		return
	}
	if _, ok := x.byID[t.ID]; !ok {
		x.order = append(x.order, t.ID)
	}
	x.byID[t.ID] = t
}

// UpsertAll upserts every thread in order.
func (x *ThreadIndex) UpsertAll(threads []Thread) {
	for _, t := range threads {
		x.Upsert(t)
	}
}

// AppendMessage records m in the embedded suffix of its thread. known is
// false when the thread is not indexed; added is false when m was already
// recorded.
func (x *ThreadIndex) AppendMessage(m Message) (known, added bool) {
	t, ok := x.byID[m.ThreadID]
	if !ok {
		return false, false
	}
	for i, existing := range t.LastMessages {
		if existing.ID == m.ID {
			t.LastMessages[i] = m
			return true, false
		}
	}
	t.LastMessages = append(t.LastMessages, m)
	if n := len(t.LastMessages); n > lastMessagesCap {
		t.LastMessages = t.LastMessages[n-lastMessagesCap:]
	}
	x.byID[t.ID] = t
	return true, true
}

// Len returns the number of threads.
func (x *ThreadIndex) Len() int { return len(x.order) }

// All returns the threads in order.
func (x *ThreadIndex) All() []Thread {
	out := make([]Thread, 0, len(x.order))
	for _, id := range x.order {
		out = append(out, x.byID[id])
	}
	return out
}

// Lookup implements ThreadFinder.
func (x *ThreadIndex) Lookup(id string) (Thread, bool) {
	t, ok := x.byID[id]
	return t, ok
}

// FindDirectWith implements ThreadFinder. When several direct threads match,
// the first in server order wins.
func (x *ThreadIndex) FindDirectWith(userID string) (Thread, bool) {
	if userID == "" {
		return Thread{}, false
	}
	for _, id := range x.order {
		t := x.byID[id]
		if t.Type == ThreadDirect && t.HasParticipant(userID) {
			return t, true
		}
	}
	return Thread{}, false
}

// DuplicateDirect groups the ids of direct threads that share a counterpart
// with me, keyed by the counterpart user id. The server is expected to keep
// one direct thread per pair; callers only report violations.
func (x *ThreadIndex) DuplicateDirect(me string) map[string][]string {
	seen := make(map[string][]string)
	for _, id := range x.order {
		t := x.byID[id]
		if t.Type != ThreadDirect {
			continue
		}
		if p, ok := t.Counterpart(me); ok {
			seen[p.UserID] = append(seen[p.UserID], id)
		}
	}
	for uid, ids := range seen {
		if len(ids) < 2 {
			delete(seen, uid)
		}
	}
	return seen
}

// Rule names which precedence rule produced a resolution.
type Rule int

const (
	RuleNone Rule = iota
	RuleLinked
	RuleParentScan
	RulePrincipalScan
)

func (r Rule) String() string {
	switch r {
	case RuleLinked:
		return "linked"
	case RuleParentScan:
		return "parent_scan"
	case RulePrincipalScan:
		return "principal_scan"
	default:
		return "none"
	}
}

// Resolution is the thread backing a contact. ThreadID is empty when the
// contact has no thread yet.
type Resolution struct {
	ThreadID string
	Rule     Rule
}

// ResolveThread finds the thread backing c. An embedded LinkedThreadID is
// used as is, without touching threads. Parents and the principal are then
// matched by scanning for a direct thread with their user id.
func ResolveThread(c Contact, threads ThreadFinder) Resolution {
	if c.LinkedThreadID != "" {
		return Resolution{ThreadID: c.LinkedThreadID, Rule: RuleLinked}
	}
	if threads == nil {
		return Resolution{}
	}
	switch {
	case c.Kind == KindParent && c.Parent != nil:
		if t, ok := threads.FindDirectWith(c.Parent.UserID); ok {
			return Resolution{ThreadID: t.ID, Rule: RuleParentScan}
		}
	case c.Kind == KindPrincipal && c.Principal != nil:
		if t, ok := threads.FindDirectWith(c.Principal.UserID); ok {
			return Resolution{ThreadID: t.ID, Rule: RulePrincipalScan}
		}
	}
	return Resolution{}
}
