package widget

import (
	"strings"

	"talkatv/internal/markdown"
	"talkatv/internal/remote"
	"talkatv/internal/views"
)

const replyExcerptChars = 80

func (c *Controller) submit() {
	switch c.state {
	case StateSubmitting:
		c.log.Debug().Err(ErrSubmitInFlight).Msg("ignoring submit")
		return
	case StateCanComment:
	default:
		c.reject(ErrNotAuthenticated, "You need to log in before posting a comment.")
		return
	}

	text := c.surface.CommentText()
	if strings.TrimSpace(text) == "" {
		c.reject(ErrEmptyComment, "Write something before posting.")
		return
	}
	if c.item.IsZero() {
		c.reject(ErrNoItem, "Comments are still loading, try again in a moment.")
		return
	}

	submission := remote.Submission{Comment: text, Item: c.item}
	if c.replyTo != nil {
		parent := c.replyTo.ID
		submission.ReplyTo = &parent
	}

	c.state = StateSubmitting
	c.surface.SetBusy(true)
	c.surface.ClearMessages()
	c.log.Info().
		Str("item", c.item.String()).
		Bool("reply", submission.ReplyTo != nil).
		Msg("posting comment")
	c.dispatch(remote.PostCommentRequest(submission), c.finishSubmission)
}

func (c *Controller) reject(err error, message string) {
	c.log.Info().Err(err).Msg("submit rejected")
	c.flash(views.FlashError, message)
}

// finishSubmission treats any 2xx as accepted, including acknowledgements
// that are not JSON.
func (c *Controller) finishSubmission(result remote.Result) {
	c.state = StateCanComment
	c.surface.SetBusy(false)

	switch result.Kind() {
	case remote.KindTransport, remote.KindApplication:
		c.log.Warn().Err(result.Err).Int("status", result.Status).Msg("posting comment failed")
		c.flash(views.FlashError, "Could not post your comment: "+result.Message())
		return
	case remote.KindDecode:
		c.log.Info().Int("status", result.Status).Msg("comment accepted with a non-JSON acknowledgement")
	}

	c.surface.ClearCommentText()
	c.clearReplyTarget()
	c.fetchComments()
}

func (c *Controller) setReplyTarget(commentID string) {
	if c.state != StateCanComment || c.feed == nil {
		return
	}

	comment, ok := findComment(c.feed.Comments, commentID)
	if !ok {
		c.log.Debug().Str("comment", commentID).Msg("reply target not in current list")
		return
	}

	c.replyTo = &comment
	c.surface.ShowReplyTarget(views.ReplyTarget(views.ReplyTargetView{
		Username: comment.Username,
		Excerpt:  markdown.Excerpt(comment.Text, replyExcerptChars),
	}))
}

func (c *Controller) clearReplyTarget() {
	if c.replyTo == nil {
		return
	}
	c.replyTo = nil
	c.surface.ShowReplyTarget(nil)
}
