package controller

import (
	"errors"
	"io"

	"rag-lab-ui/internal/dto"
	"rag-lab-ui/internal/mapper"
	"rag-lab-ui/internal/pkg/serverutils"
	"rag-lab-ui/internal/service"
	"rag-lab-ui/pkg/interaction"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IPanelController interface {
	RegisterRoutes(r fiber.Router)
	CreateSession(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	SelectFile(ctx *fiber.Ctx) error
	Ingest(ctx *fiber.Ctx) error
	SetQuestion(ctx *fiber.Ctx) error
	Ask(ctx *fiber.Ctx) error
}

type panelController struct {
	panelService service.IPanelService
	mapper       *mapper.PanelMapper
}

func NewPanelController(panelService service.IPanelService) IPanelController {
	return &panelController{
		panelService: panelService,
		mapper:       mapper.NewPanelMapper(),
	}
}

func (c *panelController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/panel/v1")
	h.Post("sessions", c.CreateSession)
	h.Get("sessions/:id", c.Show)
	h.Put("sessions/:id/file", c.SelectFile)
	h.Post("sessions/:id/ingest", c.Ingest)
	h.Put("sessions/:id/question", c.SetQuestion)
	h.Post("sessions/:id/ask", c.Ask)
}

func (c *panelController) CreateSession(ctx *fiber.Ctx) error {
	session, err := c.panelService.CreateSession(ctx.UserContext())
	if err != nil {
		return err
	}

	id, _ := uuid.Parse(session.ID)
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Session created", dto.CreateSessionResponse{Id: id}))
}

func (c *panelController) Show(ctx *fiber.Ctx) error {
	id, err := sessionId(ctx)
	if err != nil {
		return err
	}

	snap, err := c.panelService.Snapshot(ctx.UserContext(), id)
	if err != nil {
		return mapError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Panel state", c.mapper.ToSnapshotResponse(snap)))
}

func (c *panelController) SelectFile(ctx *fiber.Ctx) error {
	id, err := sessionId(ctx)
	if err != nil {
		return err
	}

	fh, err := ctx.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "multipart field 'file' is required")
	}

	f, err := fh.Open()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	mediaType := fh.Header.Get("Content-Type")
	if mediaType == "" || mediaType == "application/octet-stream" {
		mediaType = interaction.MediaTypeFor(fh.Filename)
	}

	snap, err := c.panelService.SelectFile(ctx.UserContext(), id, interaction.SelectedFile{
		Name:      fh.Filename,
		MediaType: mediaType,
		Data:      data,
	})
	if err != nil {
		return mapError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("File selected", c.mapper.ToSnapshotResponse(snap)))
}

func (c *panelController) Ingest(ctx *fiber.Ctx) error {
	id, err := sessionId(ctx)
	if err != nil {
		return err
	}

	snap, err := c.panelService.Ingest(ctx.UserContext(), id)
	if errors.Is(err, interaction.ErrNoFileSelected) {
		return ctx.Status(fiber.StatusUnprocessableEntity).JSON(serverutils.ErrorResponse(
			fiber.StatusUnprocessableEntity,
			interaction.ChooseFileNotice,
			c.mapper.ToSnapshotResponse(snap),
		))
	}
	if err != nil {
		return mapError(err)
	}
	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse("Ingestion started", c.mapper.ToSnapshotResponse(snap)))
}

func (c *panelController) SetQuestion(ctx *fiber.Ctx) error {
	id, err := sessionId(ctx)
	if err != nil {
		return err
	}

	var req dto.SetQuestionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	snap, err := c.panelService.SetQuestion(ctx.UserContext(), id, *req.Question)
	if err != nil {
		return mapError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Question updated", c.mapper.ToSnapshotResponse(snap)))
}

func (c *panelController) Ask(ctx *fiber.Ctx) error {
	id, err := sessionId(ctx)
	if err != nil {
		return err
	}

	snap, err := c.panelService.Ask(ctx.UserContext(), id)
	if errors.Is(err, interaction.ErrEmptyQuestion) {
		return ctx.JSON(serverutils.SuccessResponse("Nothing to ask", c.mapper.ToSnapshotResponse(snap)))
	}
	if err != nil {
		return mapError(err)
	}
	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse("Question sent", c.mapper.ToSnapshotResponse(snap)))
}

func sessionId(ctx *fiber.Ctx) (string, error) {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return "", fiber.NewError(fiber.StatusBadRequest, "invalid session id")
	}
	return id.String(), nil
}

func mapError(err error) error {
	if errors.Is(err, service.ErrSessionNotFound) {
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	}
	return err
}
