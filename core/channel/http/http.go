// Package http serves registry entries over HTTP. Every request runs the
// same pipeline: decode the body, bind path values onto it, validate it
// against the binding's request model, then dispatch to the storage client.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/artpar/stacgate/core/convention"
	"github.com/artpar/stacgate/core/extension"
	"github.com/artpar/stacgate/core/registry"
	"github.com/artpar/stacgate/core/schema"
	"github.com/artpar/stacgate/core/validation"
	"github.com/artpar/stacgate/domain/catalog"
	"github.com/artpar/stacgate/pkg/apierror"
	"github.com/artpar/stacgate/ports"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// DefaultMaxBodyBytes caps request bodies when Options.MaxBodyBytes is zero.
const DefaultMaxBodyBytes = 10 << 20

// Observer receives pipeline events. adapters/metrics implements it.
type Observer interface {
	ValidationFailed(model string)
}

// Options configures a Channel.
type Options struct {
	// Linker builds inferred links. Its base URL is the public server URL.
	Linker catalog.Linker

	// Landing page metadata.
	CatalogID   string
	Title       string
	Description string
	StacVersion string

	MaxBodyBytes int64
	Logger       zerolog.Logger
	Observer     Observer
}

// Channel implements the HTTP channel for registered extensions.
type Channel struct {
	registry *registry.Registry
	tx       ports.TransactionClient
	reader   ports.CatalogReader
	opts     Options
	logger   zerolog.Logger
}

// New creates a channel dispatching to client. The registry must have been
// built against the same client so every bound operation is implemented.
func New(reg *registry.Registry, client any, opts Options) *Channel {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if opts.StacVersion == "" {
		opts.StacVersion = catalog.StacVersion
	}
	c := &Channel{
		registry: reg,
		opts:     opts,
		logger:   opts.Logger.With().Str("channel", "http").Logger(),
	}
	c.tx, _ = client.(ports.TransactionClient)
	c.reader, _ = client.(ports.CatalogReader)
	return c
}

// Name returns the channel name.
func (c *Channel) Name() string {
	return "http"
}

// Mount registers a route for every registry entry on r.
func (c *Channel) Mount(r chi.Router) {
	for _, e := range c.registry.Entries() {
		r.Method(e.Method, e.Path, c.handler(e))
		c.logger.Debug().
			Str("extension", e.Extension).
			Str("method", e.Method).
			Str("path", e.Path).
			Msg("route mounted")
	}
}

// Handler returns a standalone router serving the registry.
func (c *Channel) Handler() http.Handler {
	r := chi.NewRouter()
	c.Mount(r)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, apierror.NotFound("no route for "+r.URL.Path))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, apierror.MethodNotAllowed(r.Method, r.URL.Path))
	})
	return r
}

// handler builds the pipeline for one entry.
func (c *Channel) handler(e registry.Entry) http.HandlerFunc {
	params := schema.PathParams(e.Path)
	hasBody := e.Model != nil && !e.Model.PathOnly &&
		(e.Method == http.MethodPost || e.Method == http.MethodPut)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		log := c.logger.With().
			Str("route", e.Name).
			Str("request_id", middleware.GetReqID(ctx)).
			Logger()

		var body map[string]any
		if hasBody {
			var err error
			if body, err = c.decodeBody(w, r); err != nil {
				writeError(w, r, decodeError(err))
				return
			}
		}

		var data map[string]any
		if e.Model != nil {
			path := make(map[string]string, len(params))
			for _, p := range params {
				path[p] = chi.URLParam(r, p)
			}

			var overrides []convention.Override
			data, overrides = e.Model.Bind(body, path)
			for _, o := range overrides {
				log.Debug().
					Str("field", o.Field).
					Str("param", o.Param).
					Interface("body_value", o.BodyValue).
					Str("path_value", o.PathValue).
					Msg("path value replaced body value")
			}

			if res := validation.Validate(e.Model, data); !res.Valid {
				if c.opts.Observer != nil {
					c.opts.Observer.ValidationFailed(e.Model.Name)
				}
				writeError(w, r, validationError(res))
				return
			}
		}

		out, err := c.dispatch(ctx, e, data, r)
		if err != nil {
			if !catalog.IsNotFound(err) && !catalog.IsConflict(err) {
				var verr *schema.ValidationError
				if !errors.As(err, &verr) {
					log.Error().Err(err).Str("operation", string(e.Operation)).Msg("storage operation failed")
				}
			}
			writeError(w, r, FromError(err))
			return
		}

		apierror.WriteJSON(w, e.SuccessStatus(), mediaType(e), out)
	}
}

// decodeBody reads a JSON object, keeping numbers as json.Number.
func (c *Channel) decodeBody(w http.ResponseWriter, r *http.Request) (map[string]any, error) {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, c.opts.MaxBodyBytes))
	dec.UseNumber()

	var body map[string]any
	if err := dec.Decode(&body); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("unexpected data after JSON object")
	}
	if body == nil {
		return nil, fmt.Errorf("request body must be a JSON object")
	}
	return body, nil
}

func decodeError(err error) apierror.Error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return apierror.New(http.StatusRequestEntityTooLarge, apierror.CodeBadRequest).
			Descriptionf("request body exceeds %d bytes", tooLarge.Limit).
			Build()
	}
	if errors.Is(err, io.EOF) {
		err = fmt.Errorf("request body is empty")
	}
	return apierror.New(http.StatusUnprocessableEntity, apierror.CodeValidation).
		Description("request body is not valid JSON").
		Field("body", schema.ConstraintSyntax, err.Error()).
		Build()
}

func mediaType(e registry.Entry) string {
	switch e.Response {
	case extension.ResponseItem, extension.ResponseItemCollection:
		return catalog.MediaTypeGeoJSON
	default:
		return catalog.MediaTypeJSON
	}
}

// dispatch runs the entry's storage operation on bound data.
func (c *Channel) dispatch(ctx context.Context, e registry.Entry, data map[string]any, r *http.Request) (any, error) {
	str := func(k string) string {
		s, _ := data[k].(string)
		return s
	}

	switch e.Operation {
	case ports.OpCreateCollection, ports.OpUpdateCollection:
		coll, err := catalog.DecodeCollection(data)
		if err != nil {
			return nil, schema.NewValidationError("body", schema.ConstraintType, nil, err.Error())
		}
		coll = coll.Prepare()
		if e.Operation == ports.OpCreateCollection {
			coll, err = c.tx.CreateCollection(ctx, coll)
		} else {
			coll, err = c.tx.UpdateCollection(ctx, coll)
		}
		if err != nil {
			return nil, err
		}
		return c.opts.Linker.Collection(coll), nil

	case ports.OpDeleteCollection:
		coll, err := c.tx.DeleteCollection(ctx, str("id"))
		if err != nil {
			return nil, err
		}
		return c.opts.Linker.Collection(coll), nil

	case ports.OpCreateItem, ports.OpUpdateItem:
		item, err := catalog.DecodeItem(data)
		if err != nil {
			return nil, schema.NewValidationError("body", schema.ConstraintType, nil, err.Error())
		}
		collectionID := str("collection")
		item = item.Prepare(collectionID)
		if e.Operation == ports.OpCreateItem {
			item, err = c.tx.CreateItem(ctx, collectionID, item)
		} else {
			item, err = c.tx.UpdateItem(ctx, collectionID, item)
		}
		if err != nil {
			return nil, err
		}
		return c.opts.Linker.Item(item), nil

	case ports.OpDeleteItem:
		item, err := c.tx.DeleteItem(ctx, str("collection"), str("id"))
		if err != nil {
			return nil, err
		}
		return c.opts.Linker.Item(item), nil

	case ports.OpGetCollection:
		coll, err := c.reader.GetCollection(ctx, str("id"))
		if err != nil {
			return nil, err
		}
		return c.opts.Linker.Collection(coll), nil

	case ports.OpListCollections:
		return c.collections(ctx)

	case ports.OpGetItem:
		item, err := c.reader.GetItem(ctx, str("collection"), str("id"))
		if err != nil {
			return nil, err
		}
		return c.opts.Linker.Item(item), nil

	case ports.OpListItems:
		limit, err := parseLimit(r.URL.Query().Get("limit"))
		if err != nil {
			return nil, err
		}
		return c.items(ctx, str("collection"), limit)
	}

	switch e.Response {
	case extension.ResponseCatalog:
		return c.landing(ctx)
	case extension.ResponseConformance:
		return catalog.Conformance{ConformsTo: c.registry.Conformance()}, nil
	}
	return nil, fmt.Errorf("binding %q has no handler", e.Name)
}
