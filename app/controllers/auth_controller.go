package controllers

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/PlanDeck/internal/pkg/auth"
	"github.com/ManuelReschke/PlanDeck/internal/pkg/constants"
	"github.com/ManuelReschke/PlanDeck/internal/pkg/flash"
	"github.com/ManuelReschke/PlanDeck/internal/pkg/viewmodel"
)

const (
	msgCredentials     = "Please enter your email and password."
	msgPasswordLength  = "Password must be at least 6 characters."
	msgPasswordMatch   = "Passwords do not match."
	msgCaptchaFailed   = "Captcha validation failed. Please try again."
	msgSessionFailed   = "Your session could not be started. Please try again."
	msgSignedIn        = "Welcome back!"
	msgSignedUp        = "Your account has been created."
	msgConfirmEmail    = "Check your email to confirm your account, then sign in."
	msgSignedOut       = "You have been signed out."
	signupCaptchaField = "h-captcha-response"
)

type loginForm struct {
	Email    string `form:"email" validate:"required,email"`
	Password string `form:"password" validate:"required"`
}

type signupForm struct {
	Email           string `form:"email" validate:"required,email"`
	Password        string `form:"password" validate:"required,min=6"`
	PasswordConfirm string `form:"password_confirm" validate:"required,eqfield=Password"`
}

func (p *Portal) HandleLogin(c *fiber.Ctx) error {
	if c.Method() != fiber.MethodPost {
		return c.Render("login", viewmodel.AuthForm{
			Layout: p.layout(c, "Sign In", nil),
		}, layoutMain)
	}

	var form loginForm
	if err := c.BodyParser(&form); err != nil || p.validate.Struct(form) != nil {
		return flash.Error(c, msgCredentials).Redirect(constants.RouteLogin, fiber.StatusSeeOther)
	}

	sess, err := p.session(c)
	if err != nil {
		return flash.Error(c, msgSessionFailed).Redirect(constants.RouteLogin, fiber.StatusSeeOther)
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), p.Config.HTTPTimeout)
	defer cancel()

	id, err := p.Accessor.SignIn(ctx, sess, form.Email, form.Password)
	if err != nil {
		p.Log.Info().Err(err).Msg("sign-in failed")
		return flash.Error(c, auth.UserMessage(err)).Redirect(constants.RouteLogin, fiber.StatusSeeOther)
	}

	p.Log.Info().Str("user_id", id.UserID).Msg("user signed in")
	return flash.Success(c, msgSignedIn).Redirect(constants.RouteDashboard, fiber.StatusSeeOther)
}

func (p *Portal) HandleSignup(c *fiber.Ctx) error {
	if c.Method() != fiber.MethodPost {
		data := viewmodel.AuthForm{Layout: p.layout(c, "Sign Up", nil)}
		if p.Captcha.Enabled() {
			data.HCaptchaSiteKey = p.Captcha.SiteKey
		}
		return c.Render("signup", data, layoutMain)
	}

	var form signupForm
	if err := c.BodyParser(&form); err != nil {
		return flash.Error(c, msgCredentials).Redirect(constants.RouteSignup, fiber.StatusSeeOther)
	}
	if err := p.validate.Struct(form); err != nil {
		return flash.Error(c, signupMessage(err)).Redirect(constants.RouteSignup, fiber.StatusSeeOther)
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), p.Config.HTTPTimeout)
	defer cancel()

	if p.Captcha.Enabled() {
		ok, err := p.Captcha.Verify(ctx, c.FormValue(signupCaptchaField), c.IP())
		if err != nil || !ok {
			p.Log.Info().Err(err).Msg("captcha rejected")
			return flash.Error(c, msgCaptchaFailed).Redirect(constants.RouteSignup, fiber.StatusSeeOther)
		}
	}

	sess, err := p.session(c)
	if err != nil {
		return flash.Error(c, msgSessionFailed).Redirect(constants.RouteSignup, fiber.StatusSeeOther)
	}

	id, signedIn, err := p.Accessor.SignUp(ctx, sess, form.Email, form.Password)
	if err != nil {
		p.Log.Info().Err(err).Msg("sign-up failed")
		return flash.Error(c, auth.UserMessage(err)).Redirect(constants.RouteSignup, fiber.StatusSeeOther)
	}
	if !signedIn {
		return flash.Info(c, msgConfirmEmail).Redirect(constants.RouteLogin, fiber.StatusSeeOther)
	}

	p.Log.Info().Str("user_id", id.UserID).Msg("user signed up")
	return flash.Success(c, msgSignedUp).Redirect(constants.RoutePricing, fiber.StatusSeeOther)
}

func (p *Portal) HandleLogout(c *fiber.Ctx) error {
	sess, err := p.session(c)
	if err != nil {
		return redirect(c, constants.RouteLogin)
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), p.Config.HTTPTimeout)
	defer cancel()

	if err := p.Accessor.SignOut(ctx, sess); err != nil {
		p.Log.Error().Err(err).Msg("failed to clear session on sign-out")
	}
	return flash.Success(c, msgSignedOut).Redirect(constants.RouteLogin, fiber.StatusSeeOther)
}

func signupMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return msgCredentials
	}
	for _, fe := range verrs {
		switch {
		case fe.Field() == "Password" && fe.Tag() == "min":
			return msgPasswordLength
		case fe.Field() == "PasswordConfirm" && fe.Tag() == "eqfield":
			return msgPasswordMatch
		}
	}
	return msgCredentials
}
