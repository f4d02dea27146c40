package handlers

import (
	"github.com/VanitasCaesar1/problemdetails/binding"
	"github.com/VanitasCaesar1/problemdetails/config"
	"github.com/VanitasCaesar1/problemdetails/models"
	"github.com/VanitasCaesar1/problemdetails/problem"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type DataHandler struct {
	config   *config.Config
	logger   *zap.Logger
	binder   *binding.Binder
	problems ProblemWriter
}

func NewDataHandler(cfg *config.Config, logger *zap.Logger, binder *binding.Binder, problems ProblemWriter) *DataHandler {
	return &DataHandler{
		config:   cfg,
		logger:   logger,
		binder:   binder,
		problems: problems,
	}
}

// Data serves one scenario per value:
//
//	0: two sample strings
//	1: an argument exception wrapping an out-of-range exception
//	2: BadRequest with title and detail
//	3: NotFound without arguments
func (h *DataHandler) Data(c *fiber.Ctx) error {
	var q models.DataQuery
	if err := h.binder.Query(c, &q); err != nil {
		return err
	}

	switch q.Value {
	case 1:
		return problem.NewException(problem.CategoryArgument, "some exception",
			problem.NewException(problem.CategoryArgumentOutOfRange, "another inner exception", nil))
	case 2:
		return BadRequest(c, h.problems, "some title", "more details")
	case 3:
		return NotFound(c, h.problems)
	}

	return c.JSON([]string{
		"Value 1 from the data endpoint version 1",
		"Value 2 from the data endpoint version 1",
	})
}

// Settings lists the active settings, any validation problems and every
// environment variable the service reads.
func (h *DataHandler) Settings(c *fiber.Ctx) error {
	output := []string{"= Settings ================"}
	output = append(output, h.config.Settings()...)

	if problems := h.config.Validate(); len(problems) > 0 {
		h.logger.Warn("configuration has problems", zap.Strings("problems", problems))
		output = append(output, "= Validation Errors ============")
		output = append(output, problems...)
	}

	output = append(output, "= All Settings =================")
	output = append(output, h.config.AllSettings()...)
	return c.JSON(output)
}
