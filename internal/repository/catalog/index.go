package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/geofeed/internal/db"
	"github.com/kailas-cloud/geofeed/internal/domain/entity"
	"github.com/kailas-cloud/geofeed/internal/domain/geo"
)

const kindLocation = "location"

// buildIndexes returns the FT index definitions over the catalog hashes.
// Events and promotions carry denormalized location fields so the spatial
// predicate applies to them directly.
func buildIndexes(k keys) ([]*db.IndexDefinition, error) {
	builders := []*db.IndexBuilder{
		spatialFields(db.NewIndex(k.index(string(entity.KindVenue))).
			Prefix(k.kindPrefix(string(entity.KindVenue))).
			NumericSortable(fieldID).
			Tag(fieldVenueID).
			Tag(fieldVenueType).
			Tag(fieldAccessible).
			Tag(fieldOutdoor).
			Tag(fieldHasEvents).
			Tag(fieldHasPromotions).
			Text(fieldName).
			Text(fieldDescription)),

		spatialFields(datedFields(db.NewIndex(k.index(string(entity.KindEvent))).
			Prefix(k.kindPrefix(string(entity.KindEvent))).
			Tag(fieldEventType))),

		spatialFields(datedFields(db.NewIndex(k.index(string(entity.KindPromotion))).
			Prefix(k.kindPrefix(string(entity.KindPromotion))).
			Tag(fieldPromotionType))),
	}

	// KNN queries address the vector field by its alias.
	builders = append(builders, db.NewIndex(k.index(kindLocation)).
		Prefix(k.kindPrefix(kindLocation)).
		Tag(fieldCityID).
		Vector(fieldVector, "vector", geo.VectorDim, db.DistanceL2))

	defs := make([]*db.IndexDefinition, 0, len(builders))
	for _, b := range builders {
		def, err := b.Build()
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}

func datedFields(b *db.IndexBuilder) *db.IndexBuilder {
	return b.
		NumericSortable(fieldID).
		Tag(fieldVenueID).
		Numeric(fieldPrice).
		NumericSortable(fieldStartDate).
		Text(fieldTitle).
		Text(fieldDescription).
		Text(fieldHeadline)
}

func spatialFields(b *db.IndexBuilder) *db.IndexBuilder {
	return b.
		Numeric(fieldLat).
		Numeric(fieldLng).
		Tag(fieldCityID)
}

// EnsureIndexes creates the catalog indexes, leaving existing ones in place.
func (r *Repo) EnsureIndexes(ctx context.Context) error {
	defs, err := buildIndexes(r.keys)
	if err != nil {
		return fmt.Errorf("build indexes: %w", err)
	}
	for _, def := range defs {
		if err := r.store.CreateIndex(ctx, def); err != nil {
			if errors.Is(err, db.ErrIndexExists) {
				continue
			}
			return fmt.Errorf("create index %s: %w", def.Name, err)
		}
	}
	return nil
}

// DropIndexes removes the catalog indexes, keeping the stored hashes.
// Missing indexes are skipped.
func (r *Repo) DropIndexes(ctx context.Context) error {
	for _, name := range r.IndexNames() {
		if err := r.store.DropIndex(ctx, name); err != nil && !errors.Is(err, db.ErrIndexNotFound) {
			return fmt.Errorf("drop index %s: %w", name, err)
		}
	}
	return nil
}

// IndexNames lists the catalog index names, for health checks.
func (r *Repo) IndexNames() []string {
	return []string{
		r.keys.index(string(entity.KindVenue)),
		r.keys.index(string(entity.KindEvent)),
		r.keys.index(string(entity.KindPromotion)),
		r.keys.index(kindLocation),
	}
}
