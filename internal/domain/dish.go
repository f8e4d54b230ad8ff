package domain

import (
	"encoding/json"
	"strings"
)

// Dish is one catalog entry. The named fields are the core subset the
// record store models; Extra carries document-store-only keys (wine
// origin, bar ingredients, ...) that are passed through opaquely.
type Dish struct {
	ID          string
	Menu        string
	Section     string
	Title       string
	Description string
	Contains    string
	Allergens   []string
	Tags        []string
	Pairings    map[string]string
	Image       map[string]any
	I18n        map[string]map[string]string

	Extra map[string]any
}

// coreKeys are the top-level JSON keys owned by the typed fields.
var coreKeys = map[string]bool{
	"id": true, "menu": true, "section": true, "title": true,
	"description": true, "contains": true, "allergens": true,
	"tags": true, "pairings": true, "image": true, "i18n": true,
}

// MarshalJSON flattens Extra into the top level, core fields winning on
// key collision. Collection fields always encode as [] / {} rather than
// null, matching what the front end expects.
func (d Dish) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(d.Extra)+11)
	for k, v := range d.Extra {
		if !coreKeys[k] {
			m[k] = v
		}
	}
	m["id"] = d.ID
	m["menu"] = d.Menu
	m["section"] = d.Section
	m["title"] = d.Title
	m["description"] = d.Description
	m["contains"] = d.Contains
	m["allergens"] = emptySlice(d.Allergens)
	m["tags"] = emptySlice(d.Tags)
	if d.Pairings == nil {
		m["pairings"] = map[string]string{}
	} else {
		m["pairings"] = d.Pairings
	}
	if d.Image == nil {
		m["image"] = map[string]any{}
	} else {
		m["image"] = d.Image
	}
	if d.I18n == nil {
		m["i18n"] = map[string]map[string]string{}
	} else {
		m["i18n"] = d.I18n
	}
	return json.Marshal(m)
}

func (d *Dish) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*d = Dish{}
	for k, v := range raw {
		switch k {
		case "id":
			// Older exports carry bare numeric ids; stringify them.
			if json.Unmarshal(v, &d.ID) != nil {
				var n json.Number
				if json.Unmarshal(v, &n) == nil {
					d.ID = n.String()
				}
			}
		case "menu":
			_ = json.Unmarshal(v, &d.Menu)
		case "section":
			_ = json.Unmarshal(v, &d.Section)
		case "title":
			_ = json.Unmarshal(v, &d.Title)
		case "description":
			_ = json.Unmarshal(v, &d.Description)
		case "contains":
			_ = json.Unmarshal(v, &d.Contains)
		case "allergens":
			_ = json.Unmarshal(v, &d.Allergens)
		case "tags":
			_ = json.Unmarshal(v, &d.Tags)
		case "pairings":
			_ = json.Unmarshal(v, &d.Pairings)
		case "image":
			_ = json.Unmarshal(v, &d.Image)
		case "i18n":
			_ = json.Unmarshal(v, &d.I18n)
		default:
			var val any
			if err := json.Unmarshal(v, &val); err != nil {
				continue
			}
			if d.Extra == nil {
				d.Extra = map[string]any{}
			}
			d.Extra[k] = val
		}
	}
	d.ID = strings.TrimSpace(d.ID)
	return nil
}

// Core returns a copy without the Extra map, i.e. exactly what the
// record store can hold.
func (d Dish) Core() Dish {
	c := d
	c.Extra = nil
	return c
}

// ExtraValue reads a pass-through key.
func (d Dish) ExtraValue(key string) (any, bool) {
	if v, ok := d.Extra[key]; ok {
		return v, true
	}
	return nil, false
}

func emptySlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
