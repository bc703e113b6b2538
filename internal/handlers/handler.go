package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/latestcomment/go-live-activities/internal/models"
	"github.com/latestcomment/go-live-activities/internal/services"
	"github.com/latestcomment/go-live-activities/internal/store"
)

// Records is the durable store behind the REST API.
type Records interface {
	CreateSession(ctx context.Context, name string) (models.Session, error)
	GetSessionByCode(ctx context.Context, code string) (models.Session, error)
	FindSessionByCode(ctx context.Context, code string) (models.Session, error)
	GetSessionByID(ctx context.Context, id string) (models.Session, error)
	ListSessions(ctx context.Context) ([]models.Session, error)
	SetSessionActive(ctx context.Context, code string, active bool) error
	DeleteSession(ctx context.Context, code string) error

	CreateParticipant(ctx context.Context, sessionID, nickname string) (models.Participant, error)
	GetParticipantsBySession(ctx context.Context, sessionID string) ([]models.Participant, error)

	CreateActivity(ctx context.Context, a models.Activity) (models.Activity, error)
	GetActivity(ctx context.Context, id string) (models.Activity, error)
	ListActivitiesBySession(ctx context.Context, sessionID string) ([]models.Activity, error)
	ActivateActivity(ctx context.Context, id string) error
	DeactivateActivity(ctx context.Context, id string) error
	DeleteActivity(ctx context.Context, id string) error

	CreateResponse(ctx context.Context, activityID, participantID string, answer json.RawMessage) (models.Response, error)
	GetResponsesByActivity(ctx context.Context, activityID string) ([]models.Response, error)
}

type Handler struct {
	Records Records
	Service *services.SessionService
	logger  *slog.Logger
}

func NewHandler(records Records, service *services.SessionService, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{Records: records, Service: service, logger: logger}
}

// Register mounts the API routes on r.
func (h *Handler) Register(r fiber.Router) {
	r.Get("/health", h.Health)
	r.Get("/stats", h.Stats)

	r.Get("/sessions", h.ListSessions)
	r.Post("/sessions", h.CreateSession)
	r.Get("/sessions/:code", h.GetSession)
	r.Post("/sessions/:code/join", h.JoinSession)
	r.Get("/sessions/:code/activities", h.ListActivities)
	r.Post("/sessions/:code/activities", h.CreateActivity)
	r.Get("/sessions/:code/participants", h.ListParticipants)
	r.Post("/sessions/:code/end", h.EndSession)
	r.Post("/sessions/:code/reactivate", h.ReactivateSession)
	r.Delete("/sessions/:code", h.DeleteSession)

	r.Get("/activities/:id", h.GetActivity)
	r.Post("/activities/:id/start", h.StartActivity)
	r.Post("/activities/:id/stop", h.StopActivity)
	r.Post("/activities/:id/respond", h.Respond)
	r.Get("/activities/:id/responses", h.ListResponses)
	r.Delete("/activities/:id", h.DeleteActivity)
}

// ErrorHandler renders every failed request as {"error": "..."}.
func ErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		var fe *fiber.Error
		switch {
		case errors.As(err, &fe):
			code = fe.Code
		case errors.Is(err, store.ErrNotFound):
			code = fiber.StatusNotFound
		case errors.Is(err, models.ErrInvalidAnswer),
			errors.Is(err, models.ErrInvalidConfig),
			errors.Is(err, models.ErrUnknownActivityType):
			code = fiber.StatusBadRequest
		}
		if code >= fiber.StatusInternalServerError {
			logger.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
			return c.Status(code).JSON(fiber.Map{"error": "internal server error"})
		}
		return c.Status(code).JSON(fiber.Map{"error": err.Error()})
	}
}

func badRequest(msg string) error {
	return fiber.NewError(fiber.StatusBadRequest, msg)
}

func notFound(what string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return fiber.NewError(fiber.StatusNotFound, what+" not found")
	}
	return err
}

func (h *Handler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (h *Handler) Stats(c *fiber.Ctx) error {
	return c.JSON(h.Service.Stats())
}

func (h *Handler) ListSessions(c *fiber.Ctx) error {
	sessions, err := h.Records.ListSessions(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(sessions)
}

func (h *Handler) CreateSession(c *fiber.Ctx) error {
	var body struct {
		Name string `json:"name"`
	}
	if err := c.BodyParser(&body); err != nil {
		return badRequest("invalid request body")
	}
	if strings.TrimSpace(body.Name) == "" {
		return badRequest("name is required")
	}
	sess, err := h.Records.CreateSession(c.UserContext(), body.Name)
	if err != nil {
		return err
	}
	h.logger.Info("session created", "session", sess.Code, "name", sess.Name)
	return c.Status(fiber.StatusCreated).JSON(sess)
}

func (h *Handler) GetSession(c *fiber.Ctx) error {
	sess, err := h.Records.GetSessionByCode(c.UserContext(), c.Params("code"))
	if err != nil {
		return notFound("session", err)
	}
	return c.JSON(sess)
}

func (h *Handler) JoinSession(c *fiber.Ctx) error {
	var body struct {
		Nickname string `json:"nickname"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&body); err != nil {
			return badRequest("invalid request body")
		}
	}
	ctx := c.UserContext()
	sess, err := h.Records.GetSessionByCode(ctx, c.Params("code"))
	if err != nil {
		return notFound("session", err)
	}
	p, err := h.Records.CreateParticipant(ctx, sess.Id, body.Nickname)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"session": sess, "participant": p})
}

// sessionFor resolves the :code param against every session, ended ones included.
func (h *Handler) sessionFor(c *fiber.Ctx) (models.Session, error) {
	sess, err := h.Records.FindSessionByCode(c.UserContext(), c.Params("code"))
	if err != nil {
		return models.Session{}, notFound("session", err)
	}
	return sess, nil
}

func (h *Handler) ListActivities(c *fiber.Ctx) error {
	sess, err := h.sessionFor(c)
	if err != nil {
		return err
	}
	activities, err := h.Records.ListActivitiesBySession(c.UserContext(), sess.Id)
	if err != nil {
		return err
	}
	return c.JSON(activities)
}

func (h *Handler) CreateActivity(c *fiber.Ctx) error {
	var body struct {
		Type   string          `json:"type"`
		Title  string          `json:"title"`
		Config json.RawMessage `json:"config"`
	}
	if err := c.BodyParser(&body); err != nil {
		return badRequest("invalid request body")
	}
	t, err := models.ParseActivityType(body.Type)
	if err != nil {
		return badRequest(err.Error())
	}
	if strings.TrimSpace(body.Title) == "" {
		return badRequest("title is required")
	}
	if err := models.ValidateConfig(t, body.Config); err != nil {
		return badRequest(err.Error())
	}

	sess, err := h.sessionFor(c)
	if err != nil {
		return err
	}
	a, err := h.Records.CreateActivity(c.UserContext(), models.Activity{
		SessionId: sess.Id,
		Type:      t,
		Title:     strings.TrimSpace(body.Title),
		Config:    body.Config,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(a)
}

func (h *Handler) ListParticipants(c *fiber.Ctx) error {
	sess, err := h.sessionFor(c)
	if err != nil {
		return err
	}
	participants, err := h.Records.GetParticipantsBySession(c.UserContext(), sess.Id)
	if err != nil {
		return err
	}
	return c.JSON(participants)
}

func (h *Handler) setActive(c *fiber.Ctx, active bool) error {
	ctx := c.UserContext()
	if err := h.Records.SetSessionActive(ctx, c.Params("code"), active); err != nil {
		return notFound("session", err)
	}
	sess, err := h.Records.FindSessionByCode(ctx, c.Params("code"))
	if err != nil {
		return notFound("session", err)
	}
	return c.JSON(sess)
}

func (h *Handler) EndSession(c *fiber.Ctx) error {
	return h.setActive(c, false)
}

func (h *Handler) ReactivateSession(c *fiber.Ctx) error {
	return h.setActive(c, true)
}

func (h *Handler) DeleteSession(c *fiber.Ctx) error {
	if err := h.Records.DeleteSession(c.UserContext(), c.Params("code")); err != nil {
		return notFound("session", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) GetActivity(c *fiber.Ctx) error {
	a, err := h.Records.GetActivity(c.UserContext(), c.Params("id"))
	if err != nil {
		return notFound("activity", err)
	}
	return c.JSON(a)
}

// StartActivity marks the activity as the session's active one. Live
// tracking starts when the presenter emits activity:start over the socket.
func (h *Handler) StartActivity(c *fiber.Ctx) error {
	ctx := c.UserContext()
	if err := h.Records.ActivateActivity(ctx, c.Params("id")); err != nil {
		return notFound("activity", err)
	}
	a, err := h.Records.GetActivity(ctx, c.Params("id"))
	if err != nil {
		return notFound("activity", err)
	}
	return c.JSON(a)
}

func (h *Handler) StopActivity(c *fiber.Ctx) error {
	ctx := c.UserContext()
	if err := h.Records.DeactivateActivity(ctx, c.Params("id")); err != nil {
		return notFound("activity", err)
	}
	a, err := h.Records.GetActivity(ctx, c.Params("id"))
	if err != nil {
		return notFound("activity", err)
	}
	return c.JSON(a)
}

// Respond validates one answer, stores its normalized form and tells the
// session room.
func (h *Handler) Respond(c *fiber.Ctx) error {
	var body struct {
		ParticipantId string          `json:"participantId"`
		Answer        json.RawMessage `json:"answer"`
	}
	if err := c.BodyParser(&body); err != nil {
		return badRequest("invalid request body")
	}
	if len(body.Answer) == 0 || string(body.Answer) == "null" {
		return badRequest("answer is required")
	}

	ctx := c.UserContext()
	a, err := h.Records.GetActivity(ctx, c.Params("id"))
	if err != nil {
		return notFound("activity", err)
	}
	answer, err := models.ParseAnswer(a, body.Answer)
	if err != nil {
		return badRequest(err.Error())
	}
	normalized, err := json.Marshal(answer)
	if err != nil {
		return fmt.Errorf("encoding answer: %w", err)
	}

	r, err := h.Records.CreateResponse(ctx, a.Id, body.ParticipantId, normalized)
	if err != nil {
		return err
	}
	if sess, err := h.Records.GetSessionByID(ctx, a.SessionId); err == nil {
		h.Service.AnnounceResponse(sess.Code, r)
	} else {
		h.logger.Warn("announcing response", "activity", a.Id, "error", err)
	}
	return c.Status(fiber.StatusCreated).JSON(r)
}

func (h *Handler) ListResponses(c *fiber.Ctx) error {
	responses, err := h.Records.GetResponsesByActivity(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(responses)
}

func (h *Handler) DeleteActivity(c *fiber.Ctx) error {
	if err := h.Records.DeleteActivity(c.UserContext(), c.Params("id")); err != nil {
		return notFound("activity", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
