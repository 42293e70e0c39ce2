package widget

import (
	"talkatv/internal/remote"
	"talkatv/internal/views"
)

func (c *Controller) checkLogin() {
	c.dispatch(remote.CheckLoginRequest(), c.applyLogin)
}

// applyLogin fails closed: anything but an explicit "OK" shows the login
// prompt.
func (c *Controller) applyLogin(result remote.Result) {
	var status remote.SessionStatus
	if err := result.Into(&status); err != nil {
		c.log.Warn().Err(err).Msg("login check failed, treating viewer as signed out")
		c.flash(views.FlashError, "Could not check your login status: "+failureMessage(result, err))
		c.showLoginPrompt()
		return
	}

	if !status.Authenticated() {
		c.log.Debug().Interface("status", status.Status).Msg("viewer is not signed in")
		c.showLoginPrompt()
		return
	}

	c.showForm()
}

func (c *Controller) showLoginPrompt() {
	c.state = StateNeedsLogin
	c.surface.ShowForm(views.LoginPrompt(c.home, c.page.Identity().URL))
}

func (c *Controller) showForm() {
	c.state = StateCanComment
	c.surface.ShowForm(views.CommentForm())
	c.surface.ShowSignedIn(views.SignedInAs(c.loggedInAs))
	// Reply buttons depend on being able to comment.
	c.renderComments()
}
