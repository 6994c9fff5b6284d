package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Operations accepted by the job queue and the SQS intake.
const (
	OperationCollections = "collections"
	OperationProducts    = "products"
	OperationFull        = "full"
)

// ImporterFactory builds the importer of one store; *ServiceFactory implements it.
type ImporterFactory interface {
	ForStore(storeID uuid.UUID) Importer
}

// RunOperation dispatches op to the matching Importer method.
func RunOperation(ctx context.Context, imp Importer, op string, opts ImportOptions) (*ImportResult, error) {
	switch op {
	case OperationCollections:
		return imp.ImportCollections(ctx, opts)
	case OperationProducts:
		return imp.ImportProducts(ctx, opts)
	case OperationFull, "":
		return imp.FullImport(ctx, opts)
	default:
		return nil, fmt.Errorf("unknown import operation %q", op)
	}
}

// ValidOperation reports whether op names an import operation.
func ValidOperation(op string) bool {
	switch op {
	case OperationCollections, OperationProducts, OperationFull:
		return true
	}
	return false
}
