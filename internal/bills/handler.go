package bills

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// Handler exposes the bill fetch/pay HTTP endpoints. Both always answer 200
// once the body parses; the success flag carries the business outcome.
type Handler struct {
	service *Service
}

// NewHandler constructs a bills handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type fetchRequest struct {
	ConsumerNo string `json:"consumerNo"`
	Mobile     string `json:"mobile"`
	Opcode     string `json:"opcode"`
	SubDiv     string `json:"subDiv"`
}

type billPayload struct {
	CustName string `json:"custName"`
	Amount   string `json:"amount"`
	DueDate  string `json:"dueDate"`
	BillNo   string `json:"billNo"`
}

type payRequest struct {
	ConsumerNo string          `json:"consumerNo"`
	Amount     decimal.Decimal `json:"amount"`
	Mobile     string          `json:"mobile"`
	OrderID    string          `json:"orderId"`
	Opcode     string          `json:"opcode"`
	SubDiv     string          `json:"subDiv"`
}

// Fetch processes POST /bill-fetch.
func (h *Handler) Fetch(c *fiber.Ctx) error {
	var req fetchRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusOK).JSON(fiber.Map{"success": false, "message": err.Error()})
	}
	userID, _ := c.Locals("user_id").(string)
	if userID == "" {
		userID = c.Get("X-User-ID")
	}

	res, err := h.service.Fetch(c.UserContext(), FetchInput{
		UserID:      userID,
		ConsumerNo:  req.ConsumerNo,
		Mobile:      req.Mobile,
		BillerCode:  req.Opcode,
		SubDivision: req.SubDiv,
	})
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	if !res.Success {
		return c.Status(http.StatusOK).JSON(fiber.Map{"success": false, "message": res.Message})
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"success": true,
		"txid":    res.MerchantRef,
		"orderId": res.OrderID,
		"bill": billPayload{
			CustName: res.Bill.CustName,
			Amount:   res.Bill.Amount.String(),
			DueDate:  res.Bill.DueDate,
			BillNo:   res.Bill.BillNo,
		},
	})
}

// Pay processes POST /bill-pay.
func (h *Handler) Pay(c *fiber.Ctx) error {
	var req payRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusOK).JSON(fiber.Map{"success": false, "message": err.Error()})
	}
	userID, _ := c.Locals("user_id").(string)
	if userID == "" {
		userID = c.Get("X-User-ID")
	}

	res, err := h.service.Pay(c.UserContext(), PayInput{
		UserID:      userID,
		ConsumerNo:  req.ConsumerNo,
		Amount:      req.Amount,
		Mobile:      req.Mobile,
		OrderID:     req.OrderID,
		BillerCode:  req.Opcode,
		SubDivision: req.SubDiv,
	})
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"success": res.Success,
		"txid":    res.MerchantRef,
		"message": res.Message,
		"status":  res.Status,
	})
}
