package task

import (
	"regexp"
	"strings"

	"go-taskboard/internal/features/user"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// mentionToken captures "@word" optionally followed by a second word, so
// both "@ana" and "@ana kovac" are seen as one candidate token.
var mentionToken = regexp.MustCompile(`@([\p{L}\d_.-]+)(?:[ \t]+([\p{L}\d_.-]+))?`)

// ResolveMentions extracts @mention tokens from a comment body and matches
// them against the user directory. Matching tiers, in order:
//
//  1. exact full name ("firstname lastname"), first directory match wins
//  2. first name only
//  3. last name only
//
// A single-name token matching more than one directory user is ambiguous
// and resolves nobody rather than silently picking one. The result set is
// deduplicated, preserving first-mention order.
func ResolveMentions(body string, directory []user.User) []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]struct{})
	var resolved []primitive.ObjectID

	add := func(id primitive.ObjectID) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		resolved = append(resolved, id)
	}

	for _, m := range mentionToken.FindAllStringSubmatch(body, -1) {
		first, second := m[1], m[2]

		if second != "" {
			if u, ok := matchFullName(first+" "+second, directory); ok {
				add(u.ID)
				continue
			}
		}

		if u, ok := matchSingleName(first, directory); ok {
			add(u.ID)
		}
	}

	return resolved
}

func matchFullName(name string, directory []user.User) (user.User, bool) {
	for _, u := range directory {
		if strings.EqualFold(u.FullName(), name) {
			return u, true
		}
	}
	return user.User{}, false
}

// matchSingleName tries the first-name tier, then the last-name tier.
// A tier with multiple hits is ambiguous: it neither resolves nor falls
// through to the next tier, since the writer clearly meant one of those
// users and we cannot tell which.
func matchSingleName(name string, directory []user.User) (user.User, bool) {
	var hits []user.User
	for _, u := range directory {
		if strings.EqualFold(u.FirstName, name) {
			hits = append(hits, u)
		}
	}
	if len(hits) == 1 {
		return hits[0], true
	}
	if len(hits) > 1 {
		return user.User{}, false
	}

	for _, u := range directory {
		if strings.EqualFold(u.LastName, name) {
			hits = append(hits, u)
		}
	}
	if len(hits) == 1 {
		return hits[0], true
	}
	return user.User{}, false
}
