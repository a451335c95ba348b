package controllers

import (
	"errors"
	"net/http"

	"chat-meter/config"
	"chat-meter/middleware"
	"chat-meter/models"
	"chat-meter/services"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// flash categories
const (
	flashNotice  = "notice"
	flashWarning = "warning"
	flashError   = "error"
)

type flashes struct {
	Notices  []string
	Warnings []string
	Errors   []string
}

func addFlash(session sessions.Session, category string, msgs ...string) {
	for _, m := range msgs {
		if m != "" {
			session.AddFlash(m, category)
		}
	}
}

func popFlashes(session sessions.Session) flashes {
	read := func(category string) []string {
		var out []string
		for _, v := range session.Flashes(category) {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return flashes{
		Notices:  read(flashNotice),
		Warnings: read(flashWarning),
		Errors:   read(flashError),
	}
}

func saveSession(session sessions.Session) {
	if err := session.Save(); err != nil {
		config.Log.WithError(err).Error("Failed to save session")
	}
}

// Index sends visitors to the chat when logged in, otherwise to the login form.
func (h *Handler) Index(c *gin.Context) {
	if name, _ := sessions.Default(c).Get(middleware.SessionUserKey).(string); name != "" {
		c.Redirect(http.StatusSeeOther, "/chat")
		return
	}
	c.Redirect(http.StatusSeeOther, "/login")
}

func (h *Handler) LoginPage(c *gin.Context) {
	session := sessions.Default(c)
	if name, _ := session.Get(middleware.SessionUserKey).(string); name != "" {
		c.Redirect(http.StatusSeeOther, "/chat")
		return
	}
	f := popFlashes(session)
	saveSession(session)
	c.HTML(http.StatusOK, "login.html", gin.H{"Flashes": f})
}

// LoginSubmit handles the login form. Failed attempts can be retried without limit.
func (h *Handler) LoginSubmit(c *gin.Context) {
	session := sessions.Default(c)

	var credentials models.Credentials
	if err := c.ShouldBind(&credentials); err != nil {
		addFlash(session, flashError, "Please enter a username and password.")
		saveSession(session)
		c.Redirect(http.StatusSeeOther, "/login")
		return
	}

	state, err := h.Auth.Login(credentials.Username, credentials.Password)
	if err != nil {
		config.Log.WithField("username", credentials.Username).Info("Login failed")
		addFlash(session, flashError, "Invalid username or password.")
		saveSession(session)
		c.Redirect(http.StatusSeeOther, "/login")
		return
	}

	account := state.Account()
	session.Set(middleware.SessionUserKey, account.Name)
	addFlash(session, flashNotice, "Welcome, "+account.Label()+"!")
	saveSession(session)

	config.Log.WithField("username", account.Name).Info("Login")
	c.Redirect(http.StatusSeeOther, "/chat")
}

func (h *Handler) LogoutSubmit(c *gin.Context) {
	session := sessions.Default(c)
	name, _ := session.Get(middleware.SessionUserKey).(string)
	session.Clear()
	addFlash(session, flashNotice, "You have been logged out.")
	saveSession(session)

	config.Log.WithField("username", name).Info("Logout")
	c.Redirect(http.StatusSeeOther, "/login")
}

// ChatPage renders the conversation, the quota banner and the upload panel.
func (h *Handler) ChatPage(c *gin.Context) {
	state := middleware.AccountState(c)
	session := sessions.Default(c)
	f := popFlashes(session)
	saveSession(session)

	account := state.Account()

	c.HTML(http.StatusOK, "chat.html", gin.H{
		"Account":      account,
		"Label":        account.Label(),
		"IsAdmin":      account.IsAdmin(),
		"Quota":        h.Chat.Quota(state),
		"Spent":        services.Round(state.Spent(), 6),
		"Turns":        state.History(),
		"Upload":       state.Upload(),
		"ClearPending": state.ClearPending(),
		"Usage":        h.Chat.UsageHistory(),
		"Extensions":   services.SupportedExtensions,
		"Flashes":      f,
	})
}

// ChatSubmit handles the chat form and redirects back to the page.
func (h *Handler) ChatSubmit(c *gin.Context) {
	state := middleware.AccountState(c)
	session := sessions.Default(c)

	if !h.limitBody(c) {
		addFlash(session, flashWarning, h.tooLargeMessage())
		saveSession(session)
		c.Redirect(http.StatusSeeOther, "/chat")
		return
	}

	upload, err := h.readUpload(c)
	if errors.Is(err, errBodyTooLarge) {
		addFlash(session, flashWarning, h.tooLargeMessage())
		saveSession(session)
		c.Redirect(http.StatusSeeOther, "/chat")
		return
	}
	if err != nil {
		config.Log.WithError(err).Warn("Upload skipped")
		addFlash(session, flashWarning, err.Error())
	}

	res := h.Chat.Submit(c.Request.Context(), state, services.SubmitRequest{
		Question: c.PostForm("question"),
		Upload:   upload,
	})

	addFlash(session, flashNotice, res.Notices...)
	addFlash(session, flashWarning, res.Warnings...)
	switch res.Outcome {
	case models.OutcomeRejected, models.OutcomeFailed:
		addFlash(session, flashError, refusalMessage(res))
	case models.OutcomeNone:
		addFlash(session, flashWarning, refusalMessage(res))
	}
	saveSession(session)

	c.Redirect(http.StatusSeeOther, "/chat")
}

func (h *Handler) ClearRequestSubmit(c *gin.Context) {
	middleware.AccountState(c).RequestClear()
	c.Redirect(http.StatusSeeOther, "/chat")
}

func (h *Handler) ClearConfirmSubmit(c *gin.Context) {
	state := middleware.AccountState(c)
	session := sessions.Default(c)
	if err := state.ConfirmClear(); err != nil {
		addFlash(session, flashWarning, err.Error())
	} else {
		addFlash(session, flashNotice, "Conversation cleared.")
		config.Log.WithField("username", state.Account().Name).Info("Conversation cleared")
	}
	saveSession(session)
	c.Redirect(http.StatusSeeOther, "/chat")
}

func (h *Handler) ClearCancelSubmit(c *gin.Context) {
	middleware.AccountState(c).CancelClear()
	c.Redirect(http.StatusSeeOther, "/chat")
}

func (h *Handler) UploadClearSubmit(c *gin.Context) {
	session := sessions.Default(c)
	if middleware.AccountState(c).ClearUpload() {
		addFlash(session, flashNotice, "Uploaded file cleared.")
		saveSession(session)
	}
	c.Redirect(http.StatusSeeOther, "/chat")
}
