// Package service implements the application's business logic on top of the
// store, auth, search, and mail layers.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/trailheadapp/trailhead-server/internal/errors"
	"github.com/trailheadapp/trailhead-server/internal/id"
	"github.com/trailheadapp/trailhead-server/internal/store"
	"github.com/trailheadapp/trailhead-server/internal/validation"
)

// protectedFields are stripped from every incoming patch. Identity and
// bookkeeping columns are owned by the server.
var protectedFields = []string{"id", "created_at", "updated_at", "version"}

// Hooks are the explicit extension points a resource service registers with
// its CRUD core. They replace hidden lifecycle magic: everything that happens
// around a write is visible at the registration site.
type Hooks[T any] struct {
	// BeforeSave runs after the document is populated and before validation
	// and persistence, on both create and update. Derived fields (slugs,
	// defaults) belong here.
	BeforeSave func(ctx context.Context, doc *T) error
	// AfterWrite runs once a create or update has been persisted.
	AfterWrite func(ctx context.Context, doc *T)
	// AfterDelete runs once a delete has been persisted.
	AfterDelete func(ctx context.Context, id string)
}

// CRUD implements create/read/update/delete/list for one resource type.
// Resource services embed it and add their domain operations on top.
type CRUD[T any, PT interface {
	*T
	store.Doc
}] struct {
	repo     store.Repository[T]
	validate *validation.Validator
	logger   *slog.Logger
	// idPrefix tags generated IDs with the resource kind (e.g. "tour").
	idPrefix string
	// resource names the type in client-facing error messages.
	resource string
	hooks    Hooks[T]
}

// NewCRUD wires a CRUD core for one resource.
func NewCRUD[T any, PT interface {
	*T
	store.Doc
}](repo store.Repository[T], validate *validation.Validator, logger *slog.Logger, idPrefix, resource string, hooks Hooks[T]) *CRUD[T, PT] {
	return &CRUD[T, PT]{
		repo:     repo,
		validate: validate,
		logger:   logger,
		idPrefix: idPrefix,
		resource: resource,
		hooks:    hooks,
	}
}

// Create validates and persists a new document, assigning its ID and
// timestamps.
func (c *CRUD[T, PT]) Create(ctx context.Context, doc *T) error {
	p := PT(doc)

	newID, err := id.Generate(c.idPrefix)
	if err != nil {
		return fmt.Errorf("generate %s ID: %w", c.resource, err)
	}
	p.SetID(newID)
	p.InitTimestamps()

	if c.hooks.BeforeSave != nil {
		if err := c.hooks.BeforeSave(ctx, doc); err != nil {
			return err
		}
	}
	if err := c.validate.Validate(doc); err != nil {
		return err
	}

	if err := c.repo.Insert(ctx, doc); err != nil {
		return c.mapStoreError(err, newID)
	}

	c.logger.Info("created "+c.resource, "id", newID)

	if c.hooks.AfterWrite != nil {
		c.hooks.AfterWrite(ctx, doc)
	}
	return nil
}

// Get fetches one document by ID.
func (c *CRUD[T, PT]) Get(ctx context.Context, docID string) (*T, error) {
	doc, err := c.repo.Get(ctx, docID)
	if err != nil {
		return nil, c.mapStoreError(err, docID)
	}
	return doc, nil
}

// List fetches documents matching the query.
func (c *CRUD[T, PT]) List(ctx context.Context, q store.ListQuery) ([]*T, error) {
	docs, err := c.repo.List(ctx, q)
	if err != nil {
		return nil, c.mapStoreError(err, "")
	}
	return docs, nil
}

// Update applies a partial update to an existing document. The patch is a
// decoded JSON object; server-owned fields are stripped, the remainder is
// merged onto the stored document, and the result is validated as a whole so
// a patch can never leave an invalid document behind.
func (c *CRUD[T, PT]) Update(ctx context.Context, docID string, patch map[string]any) (*T, error) {
	doc, err := c.repo.Get(ctx, docID)
	if err != nil {
		return nil, c.mapStoreError(err, docID)
	}

	for _, f := range protectedFields {
		delete(patch, f)
	}

	raw, err := json.Marshal(patch)
	if err != nil {
		return nil, errors.Validation("Invalid input data").WithCause(err)
	}
	if err := json.Unmarshal(raw, doc); err != nil {
		return nil, errors.Validation("Invalid input data").WithCause(err)
	}

	PT(doc).Touch()

	if c.hooks.BeforeSave != nil {
		if err := c.hooks.BeforeSave(ctx, doc); err != nil {
			return nil, err
		}
	}
	if err := c.validate.Validate(doc); err != nil {
		return nil, err
	}

	if err := c.repo.Update(ctx, doc); err != nil {
		return nil, c.mapStoreError(err, docID)
	}

	if c.hooks.AfterWrite != nil {
		c.hooks.AfterWrite(ctx, doc)
	}
	return doc, nil
}

// Delete removes a document by ID.
func (c *CRUD[T, PT]) Delete(ctx context.Context, docID string) error {
	if err := c.repo.Delete(ctx, docID); err != nil {
		return c.mapStoreError(err, docID)
	}

	c.logger.Info("deleted "+c.resource, "id", docID)

	if c.hooks.AfterDelete != nil {
		c.hooks.AfterDelete(ctx, docID)
	}
	return nil
}

// mapStoreError translates store sentinels into client-facing domain errors.
func (c *CRUD[T, PT]) mapStoreError(err error, docID string) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		if docID != "" {
			return errors.NotFoundf("No %s found with ID %s", c.resource, docID)
		}
		return errors.NotFoundf("No %s found", c.resource)
	case errors.Is(err, store.ErrDuplicate):
		return errors.Duplicatef("Duplicate field value for %s. Please use another value!", c.resource)
	case store.IsUnknownField(err):
		return errors.Validation(err.Error())
	default:
		return fmt.Errorf("%s store: %w", c.resource, err)
	}
}
