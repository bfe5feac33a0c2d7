package flash

import (
	"github.com/gofiber/fiber/v2"
	sflash "github.com/sujit-baniya/flash"

	"github.com/ManuelReschke/PlanDeck/internal/pkg/viewmodel"
)

// Error stores an error message for the next request. Chain Redirect on the
// returned context.
func Error(c *fiber.Ctx, message string) *fiber.Ctx {
	return sflash.WithError(c, fiber.Map{"type": "error", "message": message})
}

func Success(c *fiber.Ctx, message string) *fiber.Ctx {
	return sflash.WithSuccess(c, fiber.Map{"type": "success", "message": message})
}

func Info(c *fiber.Ctx, message string) *fiber.Ctx {
	return sflash.WithInfo(c, fiber.Map{"type": "info", "message": message})
}

// Get reads the message left by the previous request, or nil.
func Get(c *fiber.Ctx) *viewmodel.Message {
	return viewmodel.MessageFromMap(sflash.Get(c))
}
