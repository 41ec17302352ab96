package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/perf-review-api/internal/dto"
	"github.com/noah-isme/perf-review-api/internal/models"
	"github.com/noah-isme/perf-review-api/internal/service"
	appErrors "github.com/noah-isme/perf-review-api/pkg/errors"
	"github.com/noah-isme/perf-review-api/pkg/response"
)

type reviewService interface {
	List(ctx context.Context, filter models.ReviewFilter) ([]models.ReviewListItem, *models.Pagination, error)
	Create(ctx context.Context, req service.CreateReviewRequest) (*models.Review, error)
	Detail(ctx context.Context, id string) (*dto.ReviewDetailResponse, error)
	RoleForm(ctx context.Context, id, role string) (*dto.RoleFormResponse, error)
}

type answerService interface {
	Submit(ctx context.Context, reviewID, role string, req service.SubmitAnswersRequest, actor *service.Actor) (*dto.SubmitAnswersResponse, error)
}

// ReviewHandler exposes review and answer endpoints.
type ReviewHandler struct {
	reviews reviewService
	answers answerService
}

// NewReviewHandler constructs ReviewHandler.
func NewReviewHandler(reviews reviewService, answers answerService) *ReviewHandler {
	return &ReviewHandler{reviews: reviews, answers: answers}
}

// List godoc
// @Summary List reviews
// @Tags Reviews
// @Produce json
// @Param status query string false "In Progress or Completed"
// @Param reviewerId query string false "Filter by reviewer"
// @Param revieweeId query string false "Filter by reviewee"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /reviews [get]
func (h *ReviewHandler) List(c *gin.Context) {
	var filter models.ReviewFilter
	if status := strings.TrimSpace(c.Query("status")); status != "" {
		s := models.ReviewStatus(status)
		filter.Status = &s
	}
	filter.ReviewerID = strings.TrimSpace(c.Query("reviewerId"))
	filter.RevieweeID = strings.TrimSpace(c.Query("revieweeId"))
	filter.Page, filter.PageSize = pageParams(c)

	reviews, pagination, err := h.reviews.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reviews, pagination)
}

// Create godoc
// @Summary Initiate a review
// @Tags Reviews
// @Accept json
// @Produce json
// @Param payload body service.CreateReviewRequest true "Review payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /reviews [post]
func (h *ReviewHandler) Create(c *gin.Context) {
	var req service.CreateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid review payload"))
		return
	}
	review, err := h.reviews.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, review)
}

// Detail godoc
// @Summary Review detail with answers and missing slots
// @Tags Reviews
// @Produce json
// @Param id path string true "Review ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /reviews/{id} [get]
func (h *ReviewHandler) Detail(c *gin.Context) {
	detail, err := h.reviews.Detail(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// RoleForm godoc
// @Summary Questions and saved answers for one role
// @Tags Reviews
// @Produce json
// @Param id path string true "Review ID"
// @Param role path string true "reviewer or reviewee"
// @Success 200 {object} response.Envelope
// @Router /reviews/{id}/answers/{role} [get]
func (h *ReviewHandler) RoleForm(c *gin.Context) {
	form, err := h.reviews.RoleForm(c.Request.Context(), c.Param("id"), c.Param("role"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, form, nil)
}

// Submit godoc
// @Summary Submit answers for one role
// @Description Blank answers are ignored; the review status is recomputed afterwards
// @Tags Reviews
// @Accept json
// @Produce json
// @Param id path string true "Review ID"
// @Param role path string true "reviewer or reviewee"
// @Param payload body service.SubmitAnswersRequest true "Answers keyed by question ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /reviews/{id}/answers/{role} [post]
func (h *ReviewHandler) Submit(c *gin.Context) {
	var req service.SubmitAnswersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid answers payload"))
		return
	}
	result, err := h.answers.Submit(c.Request.Context(), c.Param("id"), c.Param("role"), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
