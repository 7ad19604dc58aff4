package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/JBI871/BuyTem-MAD-sub000/internal/catalog"
	"github.com/JBI871/BuyTem-MAD-sub000/internal/validation"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (a *api) listProducts(c *gin.Context) {
	products, err := a.catalog.ListProducts(c.Request.Context(), c.Query("category"))
	if err != nil {
		a.writeError(c, err)
		return
	}
	views := make([]catalog.ProductView, 0, len(products))
	for _, p := range products {
		views = append(views, p.View())
	}
	c.JSON(http.StatusOK, views)
}

func (a *api) getProduct(c *gin.Context) {
	p, err := a.catalog.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p.View())
}

// addProduct accepts a multipart form with an optional "image" file, stored under
// the upload dir and served from /uploads.
func (a *api) addProduct(c *gin.Context) {
	var form validation.ProductForm
	if err := validation.BindFormAndValidate(c, &form, a.v); err != nil {
		return
	}

	p := &catalog.Product{
		ID:       uuid.NewString(),
		Name:     form.Name,
		Price:    form.Price,
		Discount: form.Discount,
		Quantity: form.Quantity,
		Category: form.Category,
	}

	file, err := c.FormFile("image")
	switch {
	case errors.Is(err, http.ErrMissingFile):
	case err != nil:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	default:
		if err := os.MkdirAll(a.uploadDir, 0o755); err != nil {
			a.writeError(c, fmt.Errorf("create upload dir: %w", err))
			return
		}
		name := uuid.NewString() + strings.ToLower(filepath.Ext(file.Filename))
		if err := c.SaveUploadedFile(file, filepath.Join(a.uploadDir, name)); err != nil {
			a.writeError(c, fmt.Errorf("save image: %w", err))
			return
		}
		p.ImageURL = "/uploads/" + name
	}

	if err := a.catalog.CreateProduct(c.Request.Context(), p); err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p.View())
}

func (a *api) updateProduct(c *gin.Context) {
	var req validation.UpdateProductRequest
	if err := validation.BindAndValidate(c, &req, a.v); err != nil {
		return
	}
	p, err := a.catalog.UpdateProduct(c.Request.Context(), c.Param("id"), catalog.ProductUpdate{
		Name:     req.Name,
		Price:    req.Price,
		Discount: req.Discount,
		Quantity: req.Quantity,
		Category: req.Category,
		ImageURL: req.ImageURL,
	})
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p.View())
}

func (a *api) deleteProduct(c *gin.Context) {
	if err := a.catalog.DeleteProduct(c.Request.Context(), c.Param("id")); err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "product deleted"})
}

func (a *api) exportProducts(c *gin.Context) {
	products, err := a.catalog.ListProducts(c.Request.Context(), c.Query("category"))
	if err != nil {
		a.writeError(c, err)
		return
	}
	var buf bytes.Buffer
	if err := catalog.WriteXLSX(&buf, products); err != nil {
		a.writeError(c, err)
		return
	}
	filename := fmt.Sprintf("products-%s.xlsx", time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func (a *api) listCategories(c *gin.Context) {
	cats, err := a.catalog.ListCategories(c.Request.Context())
	if err != nil {
		a.writeError(c, err)
		return
	}
	if cats == nil {
		cats = []catalog.Category{}
	}
	c.JSON(http.StatusOK, cats)
}

func (a *api) createCategory(c *gin.Context) {
	var req validation.CreateCategoryRequest
	if err := validation.BindAndValidate(c, &req, a.v); err != nil {
		return
	}
	cat := &catalog.Category{ID: uuid.NewString(), CategoryName: strings.TrimSpace(req.CategoryName)}
	if err := a.catalog.CreateCategory(c.Request.Context(), cat); err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cat)
}
