package handler_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/globalpath-api/internal/dto"
	"github.com/noah-isme/globalpath-api/internal/handler"
	"github.com/noah-isme/globalpath-api/internal/service"
)

type stubInquiryService struct {
	last     dto.InquiryRequest
	response dto.InquiryResponse
	err      error
}

func (s *stubInquiryService) Submit(_ context.Context, req dto.InquiryRequest) (dto.InquiryResponse, error) {
	s.last = req
	if s.err != nil {
		return dto.InquiryResponse{}, s.err
	}
	return s.response, nil
}

func newInquiryApp(svc service.InquiryService) *fiber.App {
	app := fiber.New()
	handler.NewInquiryHandler(svc, zerolog.Nop()).Register(app.Group("/api/v1/inquiries"))
	return app
}

func TestInquiryHandlerStatuses(t *testing.T) {
	payload := map[string]string{
		"name":     "Amara Osei",
		"email":    "amara@example.com",
		"interest": "healthcare_job",
		"message":  "I would like to hear about nursing roles in Berlin.",
	}

	delivered := &stubInquiryService{response: dto.InquiryResponse{ReferenceID: "ref-1", Status: service.InquiryStatusDelivered}}
	resp, env := doJSON(t, newInquiryApp(delivered), http.MethodPost, "/api/v1/inquiries", payload)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	require.Contains(t, string(env.Data), "ref-1")
	require.Equal(t, "healthcare_job", delivered.last.Interest)

	queued := &stubInquiryService{response: dto.InquiryResponse{ReferenceID: "ref-2", Status: service.InquiryStatusQueued}}
	resp, _ = doJSON(t, newInquiryApp(queued), http.MethodPost, "/api/v1/inquiries", payload)
	require.Equal(t, fiber.StatusAccepted, resp.StatusCode)
}

func TestInquiryHandlerErrors(t *testing.T) {
	cases := map[error]int{
		service.ErrInquirySpam:      fiber.StatusBadRequest,
		service.ErrInquiryReference: fiber.StatusBadRequest,
		service.ErrInquiryDuplicate: fiber.StatusTooManyRequests,
		context.Canceled:            fiber.StatusServiceUnavailable,
	}
	for err, status := range cases {
		resp, env := doJSON(t, newInquiryApp(&stubInquiryService{err: err}), http.MethodPost, "/api/v1/inquiries", map[string]string{"name": "x"})
		require.Equal(t, status, resp.StatusCode, err.Error())
		require.False(t, env.Success)
	}
}
