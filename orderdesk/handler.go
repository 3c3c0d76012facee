package orderdesk

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/DroHadTo/Solanashop/metrics"
	"github.com/DroHadTo/Solanashop/order"
)

// NewServer builds the order desk's echo server
func NewServer(service *Service, logger *zap.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(metrics.EchoMiddleware())

	h := &handler{service: service, logger: logger}
	e.POST("/orders", h.create)
	e.GET("/orders/:id", h.get)
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	return e
}

type handler struct {
	service *Service
	logger  *zap.Logger
}

type errorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

func (h *handler) create(c echo.Context) error {
	sub := Submission{
		OrderData: c.FormValue(order.FieldOrderData),
		Reference: c.FormValue(order.FieldReference),
		Signature: c.FormValue(order.FieldSignature),
		Total:     c.FormValue(order.FieldTotal),
	}

	created, err := h.service.Submit(c.Request().Context(), sub)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, order.Receipt{OrderID: created.ID, Status: created.Status})
}

func (h *handler) get(c echo.Context) error {
	found, err := h.service.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, found)
}

func (h *handler) fail(c echo.Context, err error) error {
	var validation *ValidationError
	switch {
	case errors.As(err, &validation):
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid order", Details: validation.Errors})
	case errors.Is(err, ErrDuplicateReference):
		return c.JSON(http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, ErrVerifierUnavailable):
		return c.JSON(http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
	case errors.Is(err, ErrPaymentNotVerified):
		return c.JSON(http.StatusPaymentRequired, errorResponse{Error: err.Error()})
	case errors.Is(err, ErrOrderNotFound):
		return c.JSON(http.StatusNotFound, errorResponse{Error: err.Error()})
	default:
		h.logger.Error("order desk request failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}
