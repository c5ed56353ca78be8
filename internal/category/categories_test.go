package category

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/coder-ph/m-fua-services/internal/apperr"
)

func postSubcategory(path, body string) *httptest.ResponseRecorder {
	e := echo.New()
	e.HTTPErrorHandler = apperr.HTTPErrorHandler
	e.Validator = apperr.NewValidator()
	e.POST("/categories/:id/subcategories", CreateSubcategory)

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestCreateSubcategoryRejectsBadParentID(t *testing.T) {
	rec := postSubcategory("/categories/abc/subcategories", `{"name":"Drains"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid id")

	rec = postSubcategory("/categories/0/subcategories", `{"name":"Drains"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateSubcategoryRequiresName(t *testing.T) {
	rec := postSubcategory("/categories/1/subcategories", `{"description":"no name"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Name")
	assert.Contains(t, rec.Body.String(), "required")
}
