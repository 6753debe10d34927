package social

import (
	"errors"
	"fmt"
)

// Domain errors of the social graph.
var (
	ErrUserNotFound         = errors.New("user not found")
	ErrEmailTaken           = errors.New("email already registered")
	ErrInvitationNotFound   = errors.New("invitation not found")
	ErrSelfInvitation       = errors.New("cannot invite yourself")
	ErrAlreadyInvited       = errors.New("invitation has been already sent")
	ErrAlreadyFriends       = errors.New("users are already friends")
	ErrNotReceiver          = errors.New("only the receiver can decide on an invitation")
	ErrNotFriends           = errors.New("users are not friends")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrSelfMessage          = errors.New("cannot message yourself")
)

// Error codes carried over the service container, so callers can still use errors.Is.
var errorCodes = map[string]error{
	"user_not_found":         ErrUserNotFound,
	"email_taken":            ErrEmailTaken,
	"invitation_not_found":   ErrInvitationNotFound,
	"self_invitation":        ErrSelfInvitation,
	"already_invited":        ErrAlreadyInvited,
	"already_friends":        ErrAlreadyFriends,
	"not_receiver":           ErrNotReceiver,
	"not_friends":            ErrNotFriends,
	"conversation_not_found": ErrConversationNotFound,
	"self_message":           ErrSelfMessage,
}

// codeOf returns the wire code of a domain error.
func codeOf(err error) (string, bool) {
	for code, target := range errorCodes {
		if errors.Is(err, target) {
			return code, true
		}
	}
	return "", false
}

// errorFromCode restores the domain error for a wire code.
func errorFromCode(code string) error {
	if err, ok := errorCodes[code]; ok {
		return err
	}
	return fmt.Errorf("social: unknown error code %q", code)
}
