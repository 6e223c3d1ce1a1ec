package folio

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/eringen/folio/logger"
	"github.com/eringen/folio/store"
)

type contactsResponse struct {
	Contacts []store.ContactRequest `json:"contacts"`
}

type contactResponse struct {
	Message string               `json:"message"`
	Contact store.ContactRequest `json:"contact"`
}

type updateContactRequest struct {
	ID   string `json:"id"`
	Read *bool  `json:"read"`
}

type loginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

type tokenResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expiresAt"`
}

const tooManyRequests = "Too many requests. Try again later."

func (a *App) handleAPICreateContact(c echo.Context) error {
	ip := c.RealIP()
	if !a.contactLimiter.Check(ip) {
		return jsonMessage(c, http.StatusTooManyRequests, tooManyRequests)
	}
	var in store.NewContact
	if err := c.Bind(&in); err != nil {
		return jsonMessage(c, http.StatusBadRequest, "Invalid request body")
	}
	req, err := a.Store.CreateContact(c.Request().Context(), in)
	if err != nil {
		return apiError(c, err, "Contact request not found")
	}
	a.contactLimiter.Record(ip)
	logger.InfoWithFields("contact request received", logger.Fields{"id": req.ID, "method": string(req.ContactMethod)})
	return jsonMessage(c, http.StatusOK, "Message sent successfully!")
}

func (a *App) handleAPIListContacts(c echo.Context, _ Principal) error {
	contacts, err := a.Store.ListContacts(c.Request().Context())
	if err != nil {
		return apiError(c, err, "Contact request not found")
	}
	if contacts == nil {
		contacts = []store.ContactRequest{}
	}
	return c.JSON(http.StatusOK, contactsResponse{Contacts: contacts})
}

func (a *App) handleAPIUpdateContact(c echo.Context, _ Principal) error {
	var in updateContactRequest
	if err := c.Bind(&in); err != nil {
		return jsonMessage(c, http.StatusBadRequest, "Invalid request body")
	}
	if strings.TrimSpace(in.ID) == "" {
		return jsonMessage(c, http.StatusBadRequest, "Contact ID is required")
	}
	read := true
	if in.Read != nil {
		read = *in.Read
	}
	req, err := a.Store.SetContactRead(c.Request().Context(), in.ID, read)
	if err != nil {
		return apiError(c, err, "Contact request not found")
	}
	return c.JSON(http.StatusOK, contactResponse{Message: "Contact request updated", Contact: req})
}

func (a *App) handleAPIDeleteContact(c echo.Context, _ Principal) error {
	id := strings.TrimSpace(c.QueryParam("id"))
	if id == "" {
		return jsonMessage(c, http.StatusBadRequest, "Contact ID is required")
	}
	if err := a.Store.DeleteContact(c.Request().Context(), id); err != nil {
		return apiError(c, err, "Contact request not found")
	}
	return jsonMessage(c, http.StatusOK, "Contact request deleted")
}

// handleAPILogin exchanges admin credentials for a bearer token.
func (a *App) handleAPILogin(c echo.Context) error {
	ip := c.RealIP()
	if !a.loginLimiter.Check(ip) {
		return jsonMessage(c, http.StatusTooManyRequests, tooManyRequests)
	}
	var in loginRequest
	if err := c.Bind(&in); err != nil {
		return jsonMessage(c, http.StatusBadRequest, "Invalid request body")
	}
	if !a.checkCredentials(in.Username, in.Password) {
		a.loginLimiter.Record(ip)
		logger.WarnWithFields("failed api login", logger.Fields{"ip": ip})
		return jsonMessage(c, http.StatusUnauthorized, "Invalid credentials")
	}
	a.loginLimiter.Reset(ip)
	token, exp, err := a.issueToken(a.Config.AdminUser)
	if err != nil {
		return apiError(c, err, "")
	}
	return c.JSON(http.StatusOK, tokenResponse{Token: token, ExpiresAt: exp.UTC().Format(timeFormat)})
}

func logPostChange(msg string, p Principal, post store.Post) {
	logger.InfoWithFields(msg, logger.Fields{
		"id":   post.ID,
		"slug": post.Slug,
		"user": p.User,
		"auth": string(p.Method),
	})
}
