package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithfKeepsIdentity(t *testing.T) {
	err := ErrRequestNotFound.Withf("id=%d", 7)

	assert.True(t, errors.Is(err, ErrRequestNotFound))
	assert.False(t, errors.Is(err, ErrUserNotFound))
	assert.Equal(t, "request not found: id=7", err.Error())
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.Equal(t, "request_not_found", CodeOf(err))
}

func TestWrapAndKindOf(t *testing.T) {
	cause := errors.New("connection reset")
	err := fmt.Errorf("accept: %w", ErrAlreadyProcessed.Wrap(cause))

	assert.True(t, errors.Is(err, ErrAlreadyProcessed))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, KindInvalidState, KindOf(err))

	assert.Equal(t, Kind(""), KindOf(cause))
	assert.Equal(t, "", CodeOf(nil))
}

func TestGuardCodesAreDistinct(t *testing.T) {
	all := []*Error{
		ErrUserNotFound, ErrRequestNotFound, ErrCommunityNotFound, ErrPostNotFound, ErrNotificationNotFound,
		ErrSelfRequest, ErrAlreadyFriends, ErrDuplicatePending, ErrBlocked, ErrNotAuthorized, ErrAlreadyProcessed, ErrNotFriends,
		ErrNameTaken, ErrPrivateCommunity, ErrPublicCommunity, ErrAlreadyMember, ErrAlreadyPending, ErrNotMember,
		ErrCannotRemoveSuperAdmin, ErrNotSuperAdmin, ErrNotCommunityAdmin, ErrInvalidTransferTarget, ErrMembersOnly,
		ErrSelfBlock, ErrAlreadyBlocked, ErrNotBlocked,
		ErrUserExists, ErrInvalidCredentials, ErrPrivateAccount, ErrNotAuthor, ErrInvalidArgument,
	}
	seen := make(map[string]bool, len(all))
	for _, e := range all {
		assert.False(t, seen[e.Code], "duplicate code %s", e.Code)
		seen[e.Code] = true
	}
}
