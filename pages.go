package doorman

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/doorman-auth/doorman/internal/render"
	"github.com/doorman-auth/doorman/storage/model"
)

// Messages shown to the user
const (
	MsgUsernameTaken        = "Username already exists"
	MsgInvalidCredentials   = "Invalid username or password"
	MsgRegistrationComplete = "Registration successful! You can now log in."
	msgWelcomeFmt           = "Welcome, %s! You are logged in."
	msgFieldRequired        = "Field required"
)

type credentialsForm struct {
	Username string `form:"username"`
	Password string `form:"password"`
}

// parseCredentialsForm reads the username and password fields of a
// url-encoded or multipart form. Both fields are required and must not be
// empty; they are used as given, without trimming.
func parseCredentialsForm(ctx *fiber.Ctx) (*credentialsForm, error) {
	var form credentialsForm
	if err := ctx.BodyParser(&form); err != nil {
		log.WithError(err).Debug("could not parse form")
		return nil, fiber.NewError(fiber.StatusUnprocessableEntity, msgFieldRequired)
	}
	var missing []string
	if form.Username == "" {
		missing = append(missing, "username")
	}
	if form.Password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		log.WithField("fields", missing).Debug("required form fields missing")
		return nil, fiber.NewError(fiber.StatusUnprocessableEntity, msgFieldRequired)
	}
	return &form, nil
}

func (d *Doorman) addRoutes() {
	d.server.Get("/", d.loginPage)
	d.server.Get("/login", d.loginPage)
	d.server.Post("/login", d.login)
	d.server.Get("/register", d.registerPage)
	d.server.Post("/register", d.register)
	d.server.Get(
		"/healthz", func(ctx *fiber.Ctx) error {
			return ctx.SendString("ok")
		},
	)
}

func (*Doorman) loginPage(ctx *fiber.Ctx) error {
	return ctx.Render(render.Login, newPage(ctx, "Login"))
}

func (*Doorman) registerPage(ctx *fiber.Ctx) error {
	return ctx.Render(render.Register, newPage(ctx, "Register"))
}

func renderWithError(ctx *fiber.Ctx, name, title, msg string) error {
	page := newPage(ctx, title)
	page.Error = msg
	return ctx.Render(name, page)
}

func renderSuccess(ctx *fiber.Ctx, msg string) error {
	page := newPage(ctx, "Success")
	page.Message = msg
	return ctx.Render(render.Success, page)
}

func (d *Doorman) register(ctx *fiber.Ctx) error {
	form, err := parseCredentialsForm(ctx)
	if err != nil {
		return err
	}
	_, err = d.users.FindByUsername(form.Username)
	if err == nil {
		return renderWithError(ctx, render.Register, "Register", MsgUsernameTaken)
	}
	if !model.IsNotFound(err) {
		return errors.Wrap(err, "could not look up user")
	}

	hash, err := d.hasher.Hash(form.Password)
	if err != nil {
		return err
	}
	if err = d.users.InsertIfAbsent(
		model.UserRecord{
			Username:       form.Username,
			HashedPassword: hash,
		},
	); err != nil {
		// another request registered the same name in the meantime
		if model.IsAlreadyExists(err) {
			return renderWithError(ctx, render.Register, "Register", MsgUsernameTaken)
		}
		return errors.Wrap(err, "could not store user")
	}
	log.WithField("username", form.Username).Info("registered user")
	return renderSuccess(ctx, MsgRegistrationComplete)
}

func (d *Doorman) login(ctx *fiber.Ctx) error {
	form, err := parseCredentialsForm(ctx)
	if err != nil {
		return err
	}
	user, err := d.users.FindByUsername(form.Username)
	if err != nil {
		if model.IsNotFound(err) {
			return renderWithError(ctx, render.Login, "Login", MsgInvalidCredentials)
		}
		return errors.Wrap(err, "could not look up user")
	}
	if !d.hasher.Verify(form.Password, user.HashedPassword) {
		log.WithField("username", form.Username).Debug("password mismatch")
		return renderWithError(ctx, render.Login, "Login", MsgInvalidCredentials)
	}
	return renderSuccess(ctx, fmt.Sprintf(msgWelcomeFmt, form.Username))
}
