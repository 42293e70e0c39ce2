package widget

import (
	"talkatv/internal/remote"
	"talkatv/internal/views"
)

// fetchComments requests the thread for the page as it is right now. Each
// fetch is numbered; responses older than the last applied one are dropped
// whether they succeeded or not.
func (c *Controller) fetchComments() {
	c.feedSeq++
	seq := c.feedSeq
	identity := c.page.Identity()

	c.dispatch(remote.FetchCommentsRequest(identity), func(result remote.Result) {
		c.applyFeed(seq, identity, result)
	})
}

func (c *Controller) applyFeed(seq uint64, identity remote.PageIdentity, result remote.Result) {
	if seq < c.appliedSeq {
		c.log.Debug().
			Uint64("seq", seq).
			Uint64("applied", c.appliedSeq).
			Msg("discarding stale comment list")
		return
	}

	var feed remote.Feed
	err := result.Into(&feed)
	if err == nil {
		if invalid := feed.Validate(); invalid != nil {
			err = &remote.Error{Kind: remote.KindDecode, Status: result.Status, Err: invalid}
		}
	}
	if err != nil {
		c.log.Warn().Err(err).Str("url", identity.URL).Msg("loading comments failed")
		c.flash(views.FlashError, "Could not load comments: "+failureMessage(result, err))
		return
	}

	c.appliedSeq = seq
	c.item = feed.Item.ID
	c.feed = &feed
	c.feedPage = identity
	c.applyIdentity(feed.LoggedInAs)
	c.renderComments()
}

// applyIdentity follows the username the feed reports for the session. The
// login probe alone decides whether the form is shown.
func (c *Controller) applyIdentity(name string) {
	if name == c.loggedInAs {
		return
	}
	c.loggedInAs = name
	if c.state == StateCanComment || c.state == StateSubmitting {
		c.surface.ShowSignedIn(views.SignedInAs(name))
	}
}

// renderComments redraws the applied list; it is a no-op until one arrives.
func (c *Controller) renderComments() {
	if c.feed == nil {
		return
	}

	c.surface.ShowComments(views.CommentList(views.ListView{
		Comments: c.feed.Comments,
		Total:    c.feed.Total(),
		Order:    c.order,
		SiteURL:  siteOrigin(c.feedPage.URL),
		CanReply: c.state == StateCanComment || c.state == StateSubmitting,
	}))
}

func findComment(comments []remote.Comment, id string) (remote.Comment, bool) {
	for _, comment := range comments {
		if !comment.ID.IsZero() && comment.ID.String() == id {
			return comment, true
		}
		if found, ok := findComment(comment.Replies, id); ok {
			return found, true
		}
	}
	return remote.Comment{}, false
}
