package handlers

import "regexp"

var nicknameChars = regexp.MustCompile(`^[a-zA-Z0-9._]+$`)

// ValidateNickname checks a nickname: 3-20 characters, alphanumeric plus '_'
// and '.', which may neither lead, trail, nor repeat. Returns an empty string
// when valid, an error message otherwise.
func ValidateNickname(nickname string) string {
	if len(nickname) < 3 {
		return "nickname too short"
	}
	if len(nickname) > 20 {
		return "nickname too long"
	}
	if !nicknameChars.MatchString(nickname) {
		return "nickname may only contain letters, digits, '_' and '.'"
	}
	if isSeparator(nickname[0]) || isSeparator(nickname[len(nickname)-1]) {
		return "nickname may not start or end with '_' or '.'"
	}
	for i := 1; i < len(nickname); i++ {
		if isSeparator(nickname[i]) && isSeparator(nickname[i-1]) {
			return "nickname may not contain consecutive '_' or '.'"
		}
	}
	return ""
}

func isSeparator(b byte) bool {
	return b == '_' || b == '.'
}
