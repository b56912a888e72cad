package inventory

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/paulmach/orb/geojson"

	"thawmark/internal/services"
)

const (
	// trainClassProperty marks features usable as labeling targets; only
	// "Positive" features carry confirmed slump extents.
	trainClassProperty = "TrainClass"
	positiveClass      = "Positive"
	uidProperty        = "UID"
)

// Dataset is the loaded ARTS feature inventory, filtered to positive-class
// features. Read-only after Load.
type Dataset struct {
	features []*geojson.Feature
	byUID    map[string][]*geojson.Feature
}

// Load reads an ARTS GeoJSON inventory and keeps the positive-class features.
// The file must be valid GeoJSON and every kept feature must carry a UID.
func Load(path string) (*Dataset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrNotFound, "inventory", "load",
			fmt.Sprintf("read %s", path), err)
	}

	// Validate as plain JSON first so a truncated download is reported as a
	// parse failure rather than a missing-property error downstream.
	if !json.Valid(raw) {
		return nil, services.Wrap(services.ErrValidation, "inventory", "load",
			fmt.Sprintf("%s is not valid JSON", path), nil)
	}

	collection, err := geojson.UnmarshalFeatureCollection(raw)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "inventory", "load",
			fmt.Sprintf("parse %s", path), err)
	}

	ds := &Dataset{byUID: make(map[string][]*geojson.Feature)}
	for _, feature := range collection.Features {
		if feature == nil {
			continue
		}
		class, _ := feature.Properties[trainClassProperty].(string)
		if class != positiveClass {
			continue
		}
		uid := featureUID(feature)
		if uid == "" {
			return nil, services.Wrap(services.ErrValidation, "inventory", "load",
				"positive feature missing UID property", nil)
		}
		ds.features = append(ds.features, feature)
		ds.byUID[uid] = append(ds.byUID[uid], feature)
	}

	return ds, nil
}

// Len returns the number of positive-class features.
func (d *Dataset) Len() int {
	return len(d.features)
}

// UIDs returns the sorted unique feature identifiers.
func (d *Dataset) UIDs() []string {
	uids := make([]string, 0, len(d.byUID))
	for uid := range d.byUID {
		uids = append(uids, uid)
	}
	sort.Strings(uids)
	return uids
}

// ForUID returns all features recorded for one UID; multiple entries represent
// the same slump digitized in different source years.
func (d *Dataset) ForUID(uid string) []*geojson.Feature {
	return d.byUID[uid]
}

func featureUID(feature *geojson.Feature) string {
	value, _ := feature.Properties[uidProperty].(string)
	return strings.TrimSpace(value)
}
