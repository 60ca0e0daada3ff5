package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/repairdesk-backend/api/responses"
	"github.com/angelmondragon/repairdesk-backend/api/validators"
	"github.com/angelmondragon/repairdesk-backend/internal/catalog"
	"github.com/angelmondragon/repairdesk-backend/pkg/logger"
)

const (
	defaultSuggestionLimit = 20
	maxSuggestionLimit     = 100
)

type equipmentTypeDTO struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	UsageCount int64     `json:"usage_count"`
}

type brandModelDTO struct {
	ID         uuid.UUID `json:"id"`
	Brand      string    `json:"brand"`
	Model      string    `json:"model"`
	UsageCount int64     `json:"usage_count"`
}

// EquipmentTypes returns intake suggestions, most used first. "q" filters by prefix.
func EquipmentTypes(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scope, ok := scopeOrError(w, r, logg)
		if !ok {
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", defaultSuggestionLimit, 1, maxSuggestionLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		prefix := validators.SanitizeString(r.URL.Query().Get("q"), 120)

		rows, err := svc.ListEquipmentTypes(r.Context(), scope.BranchID, prefix, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := make([]equipmentTypeDTO, 0, len(rows))
		for _, row := range rows {
			out = append(out, equipmentTypeDTO{ID: row.ID, Name: row.Name, UsageCount: row.UsageCount})
		}
		responses.WriteSuccess(w, out)
	}
}

// BrandModels returns brand/model suggestions, optionally narrowed to one brand.
func BrandModels(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scope, ok := scopeOrError(w, r, logg)
		if !ok {
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", defaultSuggestionLimit, 1, maxSuggestionLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		brand := validators.SanitizeString(r.URL.Query().Get("brand"), 120)

		rows, err := svc.ListBrandModels(r.Context(), scope.BranchID, brand, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := make([]brandModelDTO, 0, len(rows))
		for _, row := range rows {
			out = append(out, brandModelDTO{ID: row.ID, Brand: row.Brand, Model: row.Model, UsageCount: row.UsageCount})
		}
		responses.WriteSuccess(w, out)
	}
}
