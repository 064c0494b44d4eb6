package models

// ExecutionPoint describes when a validation workflow is evaluated and which
// datasources its expressions may reference.
type ExecutionPoint struct {
	Code               string   `json:"code"`
	Name               string   `json:"name"`
	Description        string   `json:"description"`
	Category           string   `json:"category"`
	AllowedDatasources []string `json:"allowed_datasources"`
}

var transferFields = []string{
	"transfer.amount",
	"transfer.currency",
	"transfer.source_segment",
	"transfer.target_segment",
	"transfer.fiscal_year",
	"transfer.status",
	"transfer.justification",
	"budget.available",
	"budget.allocated",
	"budget.consumed",
	"user.role",
	"user.department",
}

var previousFields = []string{
	"previous.amount",
	"previous.status",
	"previous.target_segment",
}

// ExecutionPoints is the catalog of supported execution points.
var ExecutionPoints = []ExecutionPoint{
	{
		Code:               "before_create",
		Name:               "Before Create",
		Description:        "Runs before a transfer is created",
		Category:           "create",
		AllowedDatasources: transferFields,
	},
	{
		Code:               "after_create",
		Name:               "After Create",
		Description:        "Runs after a transfer is created",
		Category:           "create",
		AllowedDatasources: append(append([]string{}, transferFields...), "transfer.id", "transfer.created_at"),
	},
	{
		Code:               "before_update",
		Name:               "Before Update",
		Description:        "Runs before a transfer is updated",
		Category:           "update",
		AllowedDatasources: append(append([]string{}, transferFields...), previousFields...),
	},
	{
		Code:               "after_update",
		Name:               "After Update",
		Description:        "Runs after a transfer is updated",
		Category:           "update",
		AllowedDatasources: append(append([]string{"transfer.id"}, transferFields...), previousFields...),
	},
	{
		Code:               "before_delete",
		Name:               "Before Delete",
		Description:        "Runs before a transfer is deleted",
		Category:           "delete",
		AllowedDatasources: append([]string{"transfer.id"}, transferFields...),
	},
	{
		Code:               "after_delete",
		Name:               "After Delete",
		Description:        "Runs after a transfer is deleted",
		Category:           "delete",
		AllowedDatasources: []string{"transfer.id", "transfer.amount", "user.role", "user.department"},
	},
}

// ExecutionPointByCode returns the execution point with the given code.
func ExecutionPointByCode(code string) (ExecutionPoint, bool) {
	for _, point := range ExecutionPoints {
		if point.Code == code {
			return point, true
		}
	}

	return ExecutionPoint{}, false
}
