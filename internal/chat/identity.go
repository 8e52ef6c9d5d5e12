package chat

// Identity is the signed-in user as seen by the chat core. It is passed in
// explicitly; nothing in this package reads ambient auth state.
type Identity struct {
	UserID string
	Role   string
	Name   string
	Token  string
}

// CanSend reports whether the identity carries the credentials needed to
// talk to the chat endpoints.
func (i Identity) CanSend() bool {
	return i.UserID != "" && i.Token != ""
}
