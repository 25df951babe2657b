package domain

// Profile limits.
const (
	MaxNicknameLength    = 50
	MaxDescriptionLength = 500
	MaxAvatarBytes       = 5 * 1024 * 1024
)

// Profile is the editable identity of the session's single user.
// Avatar holds an embedded data URL and may be empty.
type Profile struct {
	Avatar      string
	Nickname    string
	Description string
}
