// Package membership decides whether a username may be added to a chat or a contact list.
// Nothing here touches the store.
package membership

import (
	"chatspace/contract"
	"chatspace/domain"
	"chatspace/errors"
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// Validate checks target against the membership rules, in this order:
// self-reference, existence, duplicate. The first failing rule is returned.
// members is the current participant set of the chat (nil for contacts and DMs),
// staged the invites already collected in the pending batch.
func Validate(actor, target string, members, staged []string, known contract.KnownUsers) error {
	target = strings.TrimSpace(target)
	if target == "" {
		return errors.ErrEmptyInput
	}
	if domain.SameUser(actor, target) {
		return fmt.Errorf("%w: %s", errors.ErrSelfReference, target)
	}
	if known == nil || !known.Exists(target) {
		return fmt.Errorf("%w: %s", errors.ErrUnknownUser, target)
	}
	if containsUser(members, target) || containsUser(staged, target) {
		return fmt.Errorf("%w: %s", errors.ErrDuplicateMember, target)
	}
	return nil
}

// MergeParticipants appends the staged usernames missing from current.
// Each username appears once, current order first.
func MergeParticipants(current, staged []string) []string {
	merged := append([]string(nil), current...)
	for _, name := range staged {
		if !containsUser(merged, name) {
			merged = append(merged, name)
		}
	}
	return merged
}

func containsUser(list []string, username string) bool {
	return lo.ContainsBy(list, func(item string) bool {
		return domain.SameUser(item, username)
	})
}
