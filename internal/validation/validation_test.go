package validation

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestUpdateStatusRequest(t *testing.T) {
	v := New()

	for _, s := range []string{"Pending", "Accepted", "Denied", "Picked Up", "Delivered"} {
		if err := v.Struct(UpdateStatusRequest{Status: s}); err != nil {
			t.Fatalf("status %q: expected valid, got %v", s, err)
		}
	}
	for _, s := range []string{"", "pending", "Shipped"} {
		if err := v.Struct(UpdateStatusRequest{Status: s}); err == nil {
			t.Fatalf("status %q: expected validation error", s)
		}
	}
}

func TestRegisterRequest_RoleAllowList(t *testing.T) {
	v := New()
	req := RegisterRequest{Name: "Ann", Email: "ann@example.com", Password: "secret1", Role: "customer"}
	if err := v.Struct(req); err != nil {
		t.Fatalf("expected valid, got %v", err)
	}
	req.Role = "admin"
	if err := v.Struct(req); err == nil {
		t.Fatal("expected error for unknown role")
	}
}

func TestUpdateProductRequest_ZeroDiscountAllowed(t *testing.T) {
	v := New()
	zero := 0.0
	if err := v.Struct(UpdateProductRequest{Discount: &zero}); err != nil {
		t.Fatalf("expected valid, got %v", err)
	}
	tooMuch := 120.0
	if err := v.Struct(UpdateProductRequest{Discount: &tooMuch}); err == nil {
		t.Fatal("expected error for discount > 100")
	}
}

func TestRatingRequest_Range(t *testing.T) {
	v := New()
	for r, ok := range map[int]bool{0: false, 1: true, 5: true, 6: false} {
		err := v.Struct(RatingRequest{ProductID: "p1", Rating: r})
		if (err == nil) != ok {
			t.Fatalf("rating %d: valid=%v, err=%v", r, ok, err)
		}
	}
}

func TestBindAndValidate_WritesFieldErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body, _ := json.Marshal(map[string]interface{}{"user_id": "u1", "quantity": 0})
	c.Request = httptest.NewRequest(http.MethodPost, "/cart", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	var req AddToCartRequest
	if err := BindAndValidate(c, &req, New()); err == nil {
		t.Fatal("expected error")
	}
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	var resp struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error != "validation_failed" || resp.Fields["ProductID"] != "required" || resp.Fields["Quantity"] != "required" {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestBindFormAndValidate_Multipart(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("name", "Milk")
	_ = mw.WriteField("price", "100")
	_ = mw.WriteField("discount", "10")
	_ = mw.WriteField("quantity", "5")
	_ = mw.WriteField("category", "Dairy")
	mw.Close()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/products/add", &buf)
	c.Request.Header.Set("Content-Type", mw.FormDataContentType())

	var form ProductForm
	if err := BindFormAndValidate(c, &form, New()); err != nil {
		t.Fatalf("expected valid form, got %v (%s)", err, w.Body.String())
	}
	if form.Name != "Milk" || form.Price != 100 || form.Discount != 10 || form.Quantity != 5 {
		t.Fatalf("unexpected form %+v", form)
	}
}
