package domain

import "time"

// Reaction transitions for a review. Each transition checks its membership
// precondition, keeps the counters equal to the set sizes and keeps the two
// sets disjoint. Callers persist the review afterwards; on a version conflict
// they reload and re-apply.

// Like adds the user to the liked-by set. A user who previously disliked the
// review is moved over in the same transition so the sets never overlap.
func (r *Review) Like(userID string) error {
	if r.HasLiked(userID) {
		return ErrAlreadyReacted
	}

	if r.HasDisliked(userID) {
		r.DislikedBy = remove(r.DislikedBy, userID)
		r.DislikeCount = floorDecrement(r.DislikeCount)
	}

	r.LikedBy = append(r.LikedBy, userID)
	r.LikeCount++
	r.UpdatedAt = time.Now()
	return nil
}

// Dislike adds the user to the disliked-by set, moving them out of the
// liked-by set when present.
func (r *Review) Dislike(userID string) error {
	if r.HasDisliked(userID) {
		return ErrAlreadyReacted
	}

	if r.HasLiked(userID) {
		r.LikedBy = remove(r.LikedBy, userID)
		r.LikeCount = floorDecrement(r.LikeCount)
	}

	r.DislikedBy = append(r.DislikedBy, userID)
	r.DislikeCount++
	r.UpdatedAt = time.Now()
	return nil
}

// Unlike removes the user from the liked-by set. The dislike side is not
// touched.
func (r *Review) Unlike(userID string) error {
	if !r.HasLiked(userID) {
		return ErrNotReacted
	}

	r.LikedBy = remove(r.LikedBy, userID)
	r.LikeCount = floorDecrement(r.LikeCount)
	r.UpdatedAt = time.Now()
	return nil
}

// Undislike removes the user from the disliked-by set
func (r *Review) Undislike(userID string) error {
	if !r.HasDisliked(userID) {
		return ErrNotReacted
	}

	r.DislikedBy = remove(r.DislikedBy, userID)
	r.DislikeCount = floorDecrement(r.DislikeCount)
	r.UpdatedAt = time.Now()
	return nil
}

func remove(list []string, value string) []string {
	out := list[:0]
	for _, v := range list {
		if v != value {
			out = append(out, v)
		}
	}
	return out
}

// floorDecrement guards against counter drift if a count was ever put out of
// sync with its set by an external write
func floorDecrement(count int) int {
	if count <= 0 {
		return 0
	}
	return count - 1
}
