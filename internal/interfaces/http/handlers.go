package http

import (
	"errors"
	stdhttp "net/http"

	"github.com/labstack/echo/v4"
	adaptermiddleware "practice-governance/internal/adapters/http/middleware"
	"practice-governance/internal/application"
	"practice-governance/internal/domain"
)

func handleError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return c.JSON(stdhttp.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrPermissionDeny):
		return c.JSON(stdhttp.StatusForbidden, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		return c.JSON(stdhttp.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, domain.ErrConflict):
		return c.JSON(stdhttp.StatusConflict, map[string]string{"error": err.Error()})
	default:
		return c.JSON(stdhttp.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func currentActor(c echo.Context) (domain.Actor, error) {
	actor, ok := adaptermiddleware.ActorFromContext(c)
	if !ok {
		return domain.Actor{}, echo.NewHTTPError(stdhttp.StatusUnauthorized, "missing session")
	}
	return actor, nil
}

type AccessHandler struct {
	service *application.AccessService
}

func NewAccessHandler(service *application.AccessService) *AccessHandler {
	return &AccessHandler{service: service}
}

func (h *AccessHandler) Surfaces(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	return c.JSON(stdhttp.StatusOK, map[string]any{
		"role":     actor.Role,
		"surfaces": h.service.VisibleSurfaces(actor.Role),
	})
}

func (h *AccessHandler) SurfaceAccess(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	surface := domain.Surface(c.Param("surface"))
	allowed := h.service.CanAccessSurface(c.Request().Context(), actor.Role, surface)
	return c.JSON(stdhttp.StatusOK, map[string]any{"surface": surface, "allowed": allowed})
}

func (h *AccessHandler) ActionAllowed(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	action, err := domain.ParseAction(c.Param("action"))
	if err != nil {
		return handleError(c, err)
	}
	allowed := h.service.CanPerformAction(c.Request().Context(), actor.Role, action)
	return c.JSON(stdhttp.StatusOK, map[string]any{"action": action, "allowed": allowed})
}

type DocumentsHandler struct {
	service *application.WorkflowService
	access  *application.AccessService
}

func NewDocumentsHandler(service *application.WorkflowService, access *application.AccessService) *DocumentsHandler {
	return &DocumentsHandler{service: service, access: access}
}

// authorizeRead writes the rejection itself and reports false when the actor
// may not read workflow documents.
func (h *DocumentsHandler) authorizeRead(c echo.Context, actor domain.Actor) (bool, error) {
	if !h.access.CanViewDocuments(c.Request().Context(), actor.Role) {
		return false, c.JSON(stdhttp.StatusForbidden, map[string]string{"error": "documents are not visible to role " + string(actor.Role)})
	}
	return true, nil
}

func (h *DocumentsHandler) Create(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req struct {
		Title          string `json:"title"`
		Classification string `json:"classification"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(stdhttp.StatusBadRequest, map[string]string{"error": "invalid payload"})
	}
	doc, err := h.service.CreateDocument(c.Request().Context(), actor, req.Title, req.Classification)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(stdhttp.StatusCreated, doc)
}

func (h *DocumentsHandler) Get(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	if ok, err := h.authorizeRead(c, actor); !ok {
		return err
	}
	doc, err := h.service.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(stdhttp.StatusOK, doc)
}

// Validate reports whether the actor could perform action now, without
// changing the document.
func (h *DocumentsHandler) Validate(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	if ok, err := h.authorizeRead(c, actor); !ok {
		return err
	}
	action, err := domain.ParseAction(c.Param("action"))
	if err != nil {
		return handleError(c, err)
	}
	doc, err := h.service.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(stdhttp.StatusOK, h.service.ValidateTransition(doc, action, actor))
}

func (h *DocumentsHandler) Execute(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	action, err := domain.ParseAction(c.Param("action"))
	if err != nil {
		return handleError(c, err)
	}
	if action == domain.ActionCreateDraft {
		return c.JSON(stdhttp.StatusBadRequest, map[string]string{"error": "use POST /documents to create a draft"})
	}
	doc, err := h.service.Execute(c.Request().Context(), c.Param("id"), action, actor)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(stdhttp.StatusOK, doc)
}

type AuditHandler struct {
	workflow *application.WorkflowService
	access   *application.AccessService
}

func NewAuditHandler(workflow *application.WorkflowService, access *application.AccessService) *AuditHandler {
	return &AuditHandler{workflow: workflow, access: access}
}

// authorize writes the rejection itself and reports false when the actor may
// not read the audit surface.
func (h *AuditHandler) authorize(c echo.Context) (bool, error) {
	actor, err := currentActor(c)
	if err != nil {
		return false, err
	}
	if !h.access.CanAccessSurface(c.Request().Context(), actor.Role, domain.SurfaceAudit) {
		return false, c.JSON(stdhttp.StatusForbidden, map[string]string{"error": "audit log is not visible to role " + string(actor.Role)})
	}
	return true, nil
}

func (h *AuditHandler) List(c echo.Context) error {
	if ok, err := h.authorize(c); !ok {
		return err
	}
	entries, err := h.workflow.AuditLog(c.Request().Context())
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(stdhttp.StatusOK, entries)
}

func (h *AuditHandler) DocumentHistory(c echo.Context) error {
	if ok, err := h.authorize(c); !ok {
		return err
	}
	entries, err := h.workflow.DocumentHistory(c.Request().Context(), c.Param("id"))
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(stdhttp.StatusOK, entries)
}
