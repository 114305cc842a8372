package controller

import (
	"errors"

	"podcast-studio-be/internal/composer"
	"podcast-studio-be/internal/dto"
	"podcast-studio-be/internal/pkg/serverutils"
	"podcast-studio-be/internal/service"
	"podcast-studio-be/pkg/contentapi"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
)

type IComposerController interface {
	RegisterRoutes(r fiber.Router)
	Open(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	Close(ctx *fiber.Ctx) error
	SetExpanded(ctx *fiber.Ctx) error
	Retry(ctx *fiber.Ctx) error
	ToggleNotebook(ctx *fiber.Ctx) error
	SetSourceMode(ctx *fiber.Ctx) error
	ToggleNote(ctx *fiber.Ctx) error
	ListProfiles(ctx *fiber.Ctx) error
	Submit(ctx *fiber.Ctx) error
	ListSubmissions(ctx *fiber.Ctx) error
}

type composerController struct {
	service service.IComposerService
}

func NewComposerController(service service.IComposerService) IComposerController {
	return &composerController{service: service}
}

func (c *composerController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/podcast-composer/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Post("/sessions", c.Open)
	h.Get("/sessions/:id", c.Show)
	h.Delete("/sessions/:id", c.Close)
	h.Put("/sessions/:id/notebooks/:notebookId/expanded", c.SetExpanded)
	h.Post("/sessions/:id/notebooks/:notebookId/retry", c.Retry)
	h.Put("/sessions/:id/notebooks/:notebookId", c.ToggleNotebook)
	h.Put("/sessions/:id/notebooks/:notebookId/sources/:sourceId", c.SetSourceMode)
	h.Put("/sessions/:id/notebooks/:notebookId/notes/:noteId", c.ToggleNote)
	h.Get("/sessions/:id/profiles", c.ListProfiles)
	h.Post("/sessions/:id/submit", c.Submit)
	h.Get("/submissions", c.ListSubmissions)
}

func (c *composerController) Open(ctx *fiber.Ctx) error {
	userId := ctx.Locals("user_id").(string)

	res, err := c.service.Open(ctx.UserContext(), userId)
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Success open composer session", res))
}

func (c *composerController) Show(ctx *fiber.Ctx) error {
	userId := ctx.Locals("user_id").(string)

	res, err := c.service.Show(ctx.UserContext(), userId, param(ctx, "id"))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success show composer session", res))
}

func (c *composerController) Close(ctx *fiber.Ctx) error {
	userId := ctx.Locals("user_id").(string)

	if err := c.service.Close(ctx.UserContext(), userId, param(ctx, "id")); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Success close composer session", nil))
}

func (c *composerController) SetExpanded(ctx *fiber.Ctx) error {
	userId := ctx.Locals("user_id").(string)

	var req dto.SetExpandedRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.SetExpanded(ctx.UserContext(), userId, param(ctx, "id"), param(ctx, "notebookId"), *req.Expanded)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success update notebook expand state", res))
}

func (c *composerController) Retry(ctx *fiber.Ctx) error {
	userId := ctx.Locals("user_id").(string)

	res, err := c.service.Retry(ctx.UserContext(), userId, param(ctx, "id"), param(ctx, "notebookId"))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success reload notebook", res))
}

func (c *composerController) ToggleNotebook(ctx *fiber.Ctx) error {
	userId := ctx.Locals("user_id").(string)

	var req dto.ToggleSelectionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.ToggleNotebook(ctx.UserContext(), userId, param(ctx, "id"), param(ctx, "notebookId"), *req.Checked)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success toggle notebook", res))
}

func (c *composerController) SetSourceMode(ctx *fiber.Ctx) error {
	userId := ctx.Locals("user_id").(string)

	var req dto.SetSourceModeRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.SetSourceMode(ctx.UserContext(), userId, param(ctx, "id"), param(ctx, "notebookId"), param(ctx, "sourceId"), req.Mode)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success set source mode", res))
}

func (c *composerController) ToggleNote(ctx *fiber.Ctx) error {
	userId := ctx.Locals("user_id").(string)

	var req dto.ToggleSelectionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.ToggleNote(ctx.UserContext(), userId, param(ctx, "id"), param(ctx, "notebookId"), param(ctx, "noteId"), *req.Checked)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success toggle note", res))
}

func (c *composerController) ListProfiles(ctx *fiber.Ctx) error {
	userId := ctx.Locals("user_id").(string)

	res, err := c.service.ListProfiles(ctx.UserContext(), userId, param(ctx, "id"))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get episode profiles", res))
}

func (c *composerController) Submit(ctx *fiber.Ctx) error {
	userId := ctx.Locals("user_id").(string)

	var req dto.SubmitPodcastRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Submit(ctx.UserContext(), userId, param(ctx, "id"), &req)
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse("Podcast generation started", res))
}

func (c *composerController) ListSubmissions(ctx *fiber.Ctx) error {
	userId := ctx.Locals("user_id").(string)

	res, err := c.service.ListSubmissions(ctx.UserContext(), userId, ctx.QueryInt("limit", 20), ctx.QueryInt("offset", 0))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get podcast submissions", res))
}

// ComposerErrorMapper maps composer and upstream failures to HTTP statuses.
func ComposerErrorMapper(err error) (int, string, bool) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		return fiber.StatusNotFound, err.Error(), true
	case errors.Is(err, composer.ErrSessionClosed):
		return fiber.StatusGone, err.Error(), true
	case errors.Is(err, service.ErrTooManySessions):
		return fiber.StatusTooManyRequests, err.Error(), true
	case errors.Is(err, composer.ErrSubmissionInProgress):
		return fiber.StatusConflict, err.Error(), true
	case errors.Is(err, composer.ErrInvalidMode):
		return fiber.StatusBadRequest, err.Error(), true
	case errors.Is(err, composer.ErrMissingProfile),
		errors.Is(err, composer.ErrMissingName),
		errors.Is(err, composer.ErrNoContentSelected):
		return fiber.StatusUnprocessableEntity, err.Error(), true
	case errors.Is(err, composer.ErrContextBuild),
		errors.Is(err, composer.ErrGenerationSubmit),
		errors.Is(err, composer.ErrFetch):
		return fiber.StatusBadGateway, err.Error() + "; please try again", true
	}

	var apiErr *contentapi.APIError
	if errors.As(err, &apiErr) {
		return fiber.StatusBadGateway, apiErr.Error(), true
	}
	return 0, "", false
}

// param copies a route parameter out of the request buffer; ids outlive the
// request as selection keys.
func param(ctx *fiber.Ctx, key string) string {
	return utils.CopyString(ctx.Params(key))
}
