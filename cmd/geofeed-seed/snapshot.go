package main

import (
	"fmt"
	"io"
	"time"

	"github.com/goccy/go-json"

	"github.com/kailas-cloud/geofeed/internal/domain/entity"
	"github.com/kailas-cloud/geofeed/internal/repository/catalog"
)

// seedFile is the on-disk catalog snapshot.
type seedFile struct {
	Venues      []seedVenue      `json:"venues"`
	Events      []seedDated      `json:"events"`
	Promotions  []seedDated      `json:"promotions"`
	Performers  []seedPerformer  `json:"performers"`
	Preferences []seedPreference `json:"preferences"`
}

type seedCategory struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type seedVenue struct {
	ID           int64            `json:"id"`
	Name         string           `json:"name"`
	Description  string           `json:"description"`
	Image        string           `json:"image"`
	Type         *seedCategory    `json:"venueType"`
	Location     *entity.Location `json:"location"`
	IsAccessible bool             `json:"isAccessible"`
	IsOutdoor    bool             `json:"isOutdoor"`
}

// seedDated covers both events and promotions; performers are ignored on
// promotions.
type seedDated struct {
	ID           int64         `json:"id"`
	VenueID      int64         `json:"venueId"`
	Title        string        `json:"title"`
	Description  string        `json:"description"`
	Headline     string        `json:"headline"`
	Image        string        `json:"image"`
	Price        *float64      `json:"price"`
	StartDate    time.Time     `json:"startDate"`
	Type         *seedCategory `json:"type"`
	PerformerIDs []int64       `json:"performerIds"`
}

type seedPerformer struct {
	ID       int64         `json:"id"`
	Name     string        `json:"name"`
	Image    string        `json:"image"`
	Category *seedCategory `json:"category"`
}

type seedPreference struct {
	UserID      string      `json:"userId"`
	Kind        entity.Kind `json:"kind"`
	CategoryIDs []int64     `json:"categoryIds"`
}

func readSeed(r io.Reader) (seedFile, error) {
	var f seedFile
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return seedFile{}, fmt.Errorf("decode seed: %w", err)
	}
	for _, p := range f.Preferences {
		if p.UserID == "" || !p.Kind.Valid() {
			return seedFile{}, fmt.Errorf("invalid preference %+v", p)
		}
	}
	return f, nil
}

func (c *seedCategory) category() *entity.Category {
	if c == nil {
		return nil
	}
	return &entity.Category{ID: c.ID, Name: c.Name}
}

// snapshot converts the file into a catalog snapshot. Events reference
// performers by id; an unknown performer id is an error.
func (f seedFile) snapshot() (catalog.Snapshot, error) {
	var s catalog.Snapshot

	performers := make(map[int64]entity.Performer, len(f.Performers))
	for _, p := range f.Performers {
		ep := entity.Performer{ID: p.ID, Name: p.Name, Image: p.Image}
		if p.Category != nil {
			ep.CategoryID, ep.CategoryName = p.Category.ID, p.Category.Name
		}
		performers[p.ID] = ep
		s.Performers = append(s.Performers, ep)
	}

	for _, v := range f.Venues {
		s.Venues = append(s.Venues, entity.Venue{
			ID:           v.ID,
			Name:         v.Name,
			Description:  v.Description,
			Image:        v.Image,
			Category:     v.Type.category(),
			Location:     v.Location,
			IsAccessible: v.IsAccessible,
			IsOutdoor:    v.IsOutdoor,
		})
	}

	for _, e := range f.Events {
		ev := entity.Event{
			ID:          e.ID,
			Title:       e.Title,
			Description: e.Description,
			Headline:    e.Headline,
			Image:       e.Image,
			Price:       e.Price,
			StartDate:   e.StartDate.UTC(),
			Category:    e.Type.category(),
			VenueID:     e.VenueID,
		}
		for _, id := range e.PerformerIDs {
			p, ok := performers[id]
			if !ok {
				return catalog.Snapshot{}, fmt.Errorf("event %d: unknown performer %d", e.ID, id)
			}
			ev.Performers = append(ev.Performers, p)
		}
		s.Events = append(s.Events, ev)
	}

	for _, p := range f.Promotions {
		s.Promotions = append(s.Promotions, entity.Promotion{
			ID:          p.ID,
			Title:       p.Title,
			Description: p.Description,
			Headline:    p.Headline,
			Image:       p.Image,
			Price:       p.Price,
			StartDate:   p.StartDate.UTC(),
			Category:    p.Type.category(),
			VenueID:     p.VenueID,
		})
	}
	return s, nil
}
