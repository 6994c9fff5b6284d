package controllers

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/yashrajoria/catalog-import/services"
)

// ImportRequest is the optional JSON body of the import endpoints.
type ImportRequest struct {
	DryRun       bool `json:"dry_run"`
	Limit        int  `json:"limit" validate:"gte=0,lte=100000"`
	SkipExisting bool `json:"skip_existing"`
}

func (r ImportRequest) options() services.ImportOptions {
	return services.ImportOptions{DryRun: r.DryRun, Limit: r.Limit, SkipExisting: r.SkipExisting}
}

// JobRequest is the body of POST /import/jobs.
type JobRequest struct {
	ImportRequest
	Operation string `json:"operation" validate:"required,oneof=collections products full"`
}

// RequestValidator handles all input validation
type RequestValidator struct {
	validate *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	return &RequestValidator{validate: validator.New()}
}

// StoreID parses the :storeId path parameter.
func (rv *RequestValidator) StoreID(c *gin.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("storeId"))
	if err != nil {
		return uuid.Nil, errors.New("invalid store ID format")
	}
	return id, nil
}

// BindImport decodes and validates an import body. An empty body means defaults.
func (rv *RequestValidator) BindImport(c *gin.Context) (ImportRequest, error) {
	var req ImportRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		return req, err
	}
	return req, rv.validate.Struct(&req)
}

func (rv *RequestValidator) BindJob(c *gin.Context) (JobRequest, error) {
	var req JobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return req, err
	}
	return req, rv.validate.Struct(&req)
}

func bindOptionalJSON(c *gin.Context, dst any) error {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return nil
	}
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
