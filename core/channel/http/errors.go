package http

import (
	"errors"
	"net/http"

	"github.com/artpar/stacgate/core/schema"
	"github.com/artpar/stacgate/domain/catalog"
	"github.com/artpar/stacgate/pkg/apierror"
	"github.com/go-chi/chi/v5/middleware"
)

// FromError maps a pipeline or storage error to an API error.
//
//	apierror.Error           -> as is
//	*schema.ValidationError  -> 422 ValidationError
//	*catalog.NotFoundError   -> 404 NotFoundError
//	*catalog.ConflictError   -> 409 ConflictError
//	*catalog.BackendError    -> 500 BackendError
//	anything else            -> 500 InternalServerError
func FromError(err error) apierror.Error {
	var ae apierror.Error
	if errors.As(err, &ae) {
		return ae
	}

	var verr *schema.ValidationError
	if errors.As(err, &verr) {
		return validationError(verr.Result)
	}

	var nf *catalog.NotFoundError
	if errors.As(err, &nf) {
		return apierror.NotFound(nf.Error())
	}

	var conflict *catalog.ConflictError
	if errors.As(err, &conflict) {
		return apierror.Conflict(conflict.Error())
	}

	var backend *catalog.BackendError
	if errors.As(err, &backend) {
		return apierror.Backend("")
	}

	return apierror.Internal("")
}

func validationError(res schema.ValidationResult) apierror.Error {
	b := apierror.New(http.StatusUnprocessableEntity, apierror.CodeValidation).
		Description("request body failed validation")
	for _, e := range res.Errors {
		b.Field(e.Field, e.Constraint, e.Message)
	}
	return b.Build()
}

func writeError(w http.ResponseWriter, r *http.Request, e apierror.Error) {
	if e.RequestID == "" {
		e.RequestID = middleware.GetReqID(r.Context())
	}
	apierror.Write(w, e)
}
