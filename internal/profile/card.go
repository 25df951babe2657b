package profile

import (
	"html/template"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/spec-kit/profile-support/internal/domain"
)

// Card is the read-only profile view.
type Card struct {
	Nickname    string
	Description string
	// AvatarSrc is set only for embedded image data URLs.
	AvatarSrc template.URL
	Initial   string
	ShopURL   string
}

// NewCard renders p together with the outbound shop link.
func NewCard(p domain.Profile, shopURL string) Card {
	card := Card{
		Nickname:    p.Nickname,
		Description: p.Description,
		Initial:     initial(p.Nickname),
		ShopURL:     shopURL,
	}
	if strings.HasPrefix(p.Avatar, "data:image/") {
		card.AvatarSrc = template.URL(p.Avatar)
	}
	return card
}

// HasAvatar reports whether an avatar image should be shown.
func (c Card) HasAvatar() bool {
	return c.AvatarSrc != ""
}

func initial(nickname string) string {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		return "?"
	}
	r, _ := utf8.DecodeRuneInString(nickname)
	return string(unicode.ToUpper(r))
}
