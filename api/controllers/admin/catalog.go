package admin

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/merchdrop-backend/api/responses"
	"github.com/angelmondragon/merchdrop-backend/api/validators"
	"github.com/angelmondragon/merchdrop-backend/internal/catalog"
	pkgerrors "github.com/angelmondragon/merchdrop-backend/pkg/errors"
	"github.com/angelmondragon/merchdrop-backend/pkg/logger"
)

type catalogSyncer interface {
	Sync(ctx context.Context) (catalog.SyncResult, error)
}

type bulkPublisher interface {
	BulkAcknowledge(ctx context.Context) (catalog.BulkPublishResult, error)
}

type catalogImporter interface {
	Import(ctx context.Context, req catalog.ImportRequest) (catalog.ImportResult, error)
}

type importRequest struct {
	SourceURL string                  `json:"source_url" validate:"omitempty,url,max=2048"`
	Products  []catalog.ImportProduct `json:"products" validate:"omitempty,max=500"`
}

type syncFailure struct {
	ExternalID string `json:"printify_id"`
	Error      string `json:"error"`
}

type syncResponse struct {
	Synced        int           `json:"synced"`
	ProductIDs    []uuid.UUID   `json:"product_ids"`
	PendingImages []string      `json:"pending_images"`
	Skipped       []string      `json:"skipped"`
	Failed        []syncFailure `json:"failed"`
}

// CatalogSync runs a full provider sync on demand. Per-product failures are
// reported in the body rather than failing the request.
func CatalogSync(svc catalogSyncer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeConfiguration, "printify is not configured"))
			return
		}

		result, err := svc.Sync(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := syncResponse{
			Synced:        result.SyncedCount,
			ProductIDs:    result.SyncedProductIDs,
			PendingImages: nonNil(result.PendingImageProductIDs),
			Skipped:       nonNil(result.Skipped),
			Failed:        make([]syncFailure, 0, len(result.Failed)),
		}
		if resp.ProductIDs == nil {
			resp.ProductIDs = []uuid.UUID{}
		}
		for _, f := range result.Failed {
			resp.Failed = append(resp.Failed, syncFailure{ExternalID: f.ExternalID, Error: f.Err.Error()})
		}
		responses.WriteSuccess(w, resp)
	}
}

// CatalogPublish re-acknowledges every provider-backed product as published.
func CatalogPublish(svc bulkPublisher, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeConfiguration, "printify is not configured"))
			return
		}
		result, err := svc.BulkAcknowledge(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// CatalogImport loads products from an import document given inline or by
// URL. Products without a provider id become local listings.
func CatalogImport(svc catalogImporter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog import unavailable"))
			return
		}
		var body importRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.Import(r.Context(), catalog.ImportRequest{SourceURL: body.SourceURL, Products: body.Products})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
