package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"productchat/internal/app"
	"productchat/internal/model"
	"productchat/internal/repository"
	"productchat/internal/transport/http/response"
)

// CatalogHandler exposes catalog ingestion and tenant data management.
type CatalogHandler struct {
	ragService  *app.RAGService
	productRepo *repository.ProductRepository
}

type ProductInput struct {
	Name           string            `json:"name" binding:"required,max=256"`
	Description    string            `json:"description"`
	TargetAudience string            `json:"target_audience"`
	ToneOfVoice    string            `json:"tone_of_voice"`
	Status         string            `json:"status"`
	DirectURL      string            `json:"direct_url"`
	Price          int64             `json:"price"`
	Category       string            `json:"category"`
	Attributes     map[string]string `json:"attributes"`
	ImageURLs      []string          `json:"image_urls"`
}

type IngestRequest struct {
	Products []ProductInput `json:"products" binding:"required,min=1,dive"`
}

func NewCatalogHandler(ragService *app.RAGService, productRepo *repository.ProductRepository) *CatalogHandler {
	return &CatalogHandler{ragService: ragService, productRepo: productRepo}
}

func (h *CatalogHandler) Ingest(c *gin.Context) {
	customerID, ok := getCustomerIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	var req IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	products := make([]model.Product, len(req.Products))
	for i, in := range req.Products {
		p := model.Product{
			Name:           in.Name,
			Description:    in.Description,
			TargetAudience: in.TargetAudience,
			ToneOfVoice:    in.ToneOfVoice,
			Status:         in.Status,
			DirectURL:      in.DirectURL,
			Price:          in.Price,
			Category:       in.Category,
		}
		p.SetAttributes(in.Attributes)
		p.SetImageURLs(in.ImageURLs)
		products[i] = p
	}

	result, err := h.ragService.IngestCustomerData(c.Request.Context(), customerID, products)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidCustomer):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeIngestionFailed, "catalog ingestion failed")
		}
		return
	}

	response.OK(c, result)
}

func (h *CatalogHandler) ListProducts(c *gin.Context) {
	customerID, ok := getCustomerIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	products, err := h.productRepo.ListByCustomerID(customerID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list products failed")
		return
	}
	response.OK(c, products)
}

// DeleteAll wipes the customer's products and chunks. Safe to repeat.
func (h *CatalogHandler) DeleteAll(c *gin.Context) {
	customerID, ok := getCustomerIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	result, err := h.ragService.DeleteCustomerData(c.Request.Context(), customerID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "delete catalog failed")
		return
	}
	response.OK(c, result)
}
