package storage

import "strings"

// friendCursorSep separates the two key components inside a friend-page
// cursor. NUL cannot occur in an email address or a member id, so the
// encoding stays unambiguous even for quoted local parts containing "|" or
// other punctuation.
const friendCursorSep = "\x00"

// EncodeFriendCursor builds a ListFriendsPage cursor from a row key.
func EncodeFriendCursor(ownerEmail, memberID string) string {
	return ownerEmail + friendCursorSep + memberID
}

// DecodeFriendCursor splits a cursor back into its key components. The empty
// cursor decodes to empty components, meaning "from the beginning".
func DecodeFriendCursor(cursor string) (ownerEmail, memberID string) {
	ownerEmail, memberID, _ = strings.Cut(cursor, friendCursorSep)
	return ownerEmail, memberID
}
