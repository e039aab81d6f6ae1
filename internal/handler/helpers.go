package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"atmricky/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// bindText binds an optional JSON body and runs go-playground/validator tags.
// An empty body binds to the zero value. Failures are answered with a plain-text
// 400: requiredMsg when a required field is missing, a field/tag description
// otherwise. Returns false when a response was written.
func bindText(c *gin.Context, req any, requiredMsg string) bool {
	if err := c.ShouldBindJSON(req); err != nil && !errors.Is(err, io.EOF) {
		apierror.Text(c, http.StatusBadRequest, "JSON invalido: "+err.Error())
		return false
	}
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) || len(verrs) == 0 {
			apierror.Text(c, http.StatusBadRequest, err.Error())
			return false
		}
		for _, fe := range verrs {
			if fe.Tag() == "required" {
				apierror.Text(c, http.StatusBadRequest, requiredMsg)
				return false
			}
		}
		fe := verrs[0]
		apierror.Text(c, http.StatusBadRequest, fmt.Sprintf("Campo invalido: %s (%s)", fe.Field(), fe.Tag()))
		return false
	}
	return true
}
