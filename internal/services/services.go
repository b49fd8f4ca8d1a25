package services

import (
	"errors"

	"github.com/yukikurage/relief-management-api/internal/access"
	apierrors "github.com/yukikurage/relief-management-api/internal/errors"
	"github.com/yukikurage/relief-management-api/internal/utils"
	"gorm.io/gorm"
)

// authorize converts a Permit denial into a classified error.
func authorize(id *access.Identity, action access.Action, res access.Resource) error {
	decision := access.Permit(id, action, res)
	if decision.Allowed {
		return nil
	}
	if decision.Reason == access.ReasonUnauthenticated {
		return apierrors.New(apierrors.KindUnauthenticated, string(decision.Reason))
	}
	return apierrors.New(apierrors.KindAccessDenied, string(decision.Reason))
}

// validate runs struct validation and reports failures per field.
func validate(input interface{}) error {
	if err := utils.Validator().Struct(input); err != nil {
		if fields := utils.ValidationMessages(err); len(fields) > 0 {
			return apierrors.ValidationFields(fields)
		}
		return apierrors.Wrap(apierrors.KindValidation, "invalid input", err)
	}
	return nil
}

// lookupError maps a missing row to notFound and anything else to a store error.
func lookupError(err error, notFound error, action string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	return apierrors.Store("failed to "+action, err)
}
