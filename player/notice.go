package player

// NoticeKind classifies user facing notices.
type NoticeKind string

const (
	NoticeSuccess NoticeKind = "success"
	NoticeInfo    NoticeKind = "info"
	NoticeError   NoticeKind = "error"
)

// Notice is the user facing outcome of an action.
type Notice struct {
	Kind        NoticeKind `json:"kind"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
}

// IsError reports whether the action failed.
func (n Notice) IsError() bool {
	return n.Kind == NoticeError
}
