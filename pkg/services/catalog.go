package services

import (
	"fmt"

	"github.com/dukex/stepflow/pkg/models"
)

// ExecutionPoints returns the execution point catalog.
func ExecutionPoints() models.ExecutionPointsResponse {
	return models.ExecutionPointsResponse{
		ExecutionPoints: models.ExecutionPoints,
		TotalCount:      len(models.ExecutionPoints),
	}
}

// Datasources returns the fields expressions may reference at executionPoint.
func Datasources(executionPoint string) (models.DatasourcesResponse, error) {
	point, ok := models.ExecutionPointByCode(executionPoint)
	if !ok {
		return models.DatasourcesResponse{}, NewValidationError(
			"Datasources",
			"UNKNOWN_EXECUTION_POINT",
			fmt.Sprintf("unknown execution point '%s'", executionPoint),
			ErrUnknownExecutionPoint,
		)
	}

	return models.DatasourcesResponse{
		ExecutionPoint: point.Code,
		Datasources:    point.AllowedDatasources,
	}, nil
}
