package sharing

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"studysync/internal/config"
	acl "studysync/internal/domain/models/sharing"
	"studysync/internal/domain/services"
)

// roleRule accepts only the closed set of collaborator roles
var roleRule = validation.In(roleValues()...).Error("must be editor or viewer")

func roleValues() []interface{} {
	values := make([]interface{}, 0, len(acl.Roles))
	for _, r := range acl.Roles {
		values = append(values, string(r))
	}
	return values
}

// validateInviteRequest validates an invite request
func validateInviteRequest(req *services.InviteRequest) error {
	req.Email = strings.TrimSpace(req.Email)
	return validation.ValidateStruct(req,
		validation.Field(&req.DocumentID, validation.Required),
		validation.Field(&req.Email,
			validation.Required,
			validation.Length(3, config.MaxEmailLength),
			is.EmailFormat,
		),
		validation.Field(&req.Role, validation.Required, roleRule),
	)
}

// validateSetRoleRequest validates a set role request
func validateSetRoleRequest(req *services.SetRoleRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.DocumentID, validation.Required),
		validation.Field(&req.TargetID, validation.Required),
		validation.Field(&req.Role, validation.Required, roleRule),
	)
}
