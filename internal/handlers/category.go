package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	apierrors "github.com/yukikurage/relief-management-api/internal/errors"
	"github.com/yukikurage/relief-management-api/internal/middleware"
	"github.com/yukikurage/relief-management-api/internal/services"
)

// CategoryHandler serves product categories and their products.
type CategoryHandler struct {
	categoryService *services.CategoryService
	productService  *services.ProductService
}

func NewCategoryHandler(categoryService *services.CategoryService, productService *services.ProductService) *CategoryHandler {
	return &CategoryHandler{
		categoryService: categoryService,
		productService:  productService,
	}
}

func (h *CategoryHandler) ListCategories(c *gin.Context) {
	categories, err := h.categoryService.List(middleware.GetIdentity(c))
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

func (h *CategoryHandler) CreateCategory(c *gin.Context) {
	var input services.CategoryInput
	if !bindJSON(c, &input) {
		return
	}
	category, err := h.categoryService.Create(middleware.GetIdentity(c), input)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, category)
}

func (h *CategoryHandler) UpdateCategory(c *gin.Context) {
	categoryID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var input services.CategoryInput
	if !bindJSON(c, &input) {
		return
	}
	category, err := h.categoryService.Update(middleware.GetIdentity(c), categoryID, input)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, category)
}

func (h *CategoryHandler) DeleteCategory(c *gin.Context) {
	categoryID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.categoryService.Delete(middleware.GetIdentity(c), categoryID); err != nil {
		apierrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Category deleted successfully"})
}

// ListProducts lists products, filtered by category_id when given.
func (h *CategoryHandler) ListProducts(c *gin.Context) {
	categoryID, ok := queryUint(c, "category_id")
	if !ok {
		return
	}
	products, err := h.productService.List(middleware.GetIdentity(c), categoryID)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

func (h *CategoryHandler) GetProduct(c *gin.Context) {
	productID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	product, err := h.productService.Get(middleware.GetIdentity(c), productID)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *CategoryHandler) CreateProduct(c *gin.Context) {
	var input services.ProductInput
	if !bindJSON(c, &input) {
		return
	}
	product, err := h.productService.Create(middleware.GetIdentity(c), input)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

func (h *CategoryHandler) UpdateProduct(c *gin.Context) {
	productID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var input services.ProductInput
	if !bindJSON(c, &input) {
		return
	}
	product, err := h.productService.Update(middleware.GetIdentity(c), productID, input)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *CategoryHandler) DeleteProduct(c *gin.Context) {
	productID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.productService.Delete(middleware.GetIdentity(c), productID); err != nil {
		apierrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product deleted successfully"})
}
