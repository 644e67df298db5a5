package policy

import (
	"fmt"

	"github.com/cppla/blogicum/models"
)

// Outcome tags a Decision.
type Outcome int

const (
	// Allowed lets the mutation proceed.
	Allowed Outcome = iota
	// DeniedRedirect sends the actor back to a read-only view instead of failing hard.
	DeniedRedirect
)

// Decision is the result of an ownership check: either Allowed, or a denial carrying the redirect target.
type Decision struct {
	Outcome  Outcome
	Redirect string
}

// IsAllowed reports whether the mutation may proceed.
func (d Decision) IsAllowed() bool { return d.Outcome == Allowed }

func allow() Decision { return Decision{Outcome: Allowed} }

// DeniedRedirectTo builds a denial that sends the actor to target.
func DeniedRedirectTo(target string) Decision {
	return Decision{Outcome: DeniedRedirect, Redirect: target}
}

// PostDetailPath is the read view every denial bounces back to.
func PostDetailPath(postID uint) string {
	return fmt.Sprintf("/api/v1/posts/%d", postID)
}

// CanMutate reports whether actor authored the resource. Anonymous actors never can.
func CanMutate(authorID uint, actor *Actor) bool {
	return actor.Is(authorID)
}

// GuardPost gates editing or deleting post.
func GuardPost(post *models.Post, actor *Actor) Decision {
	if CanMutate(post.AuthorID, actor) {
		return allow()
	}
	return DeniedRedirectTo(PostDetailPath(post.ID))
}

// GuardComment gates editing or deleting comment; denial returns to the parent post.
func GuardComment(comment *models.Comment, actor *Actor) Decision {
	if CanMutate(comment.AuthorID, actor) {
		return allow()
	}
	return DeniedRedirectTo(PostDetailPath(comment.PostID))
}
