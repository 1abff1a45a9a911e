package rule

import (
	"github.com/matzehuels/tilesim/pkg/errors"
)

// Class is the kind of thing a rule symbol names.
type Class uint8

const (
	ClassUnknown Class = iota
	ClassObject
	ClassGlue
	ClassTile
	ClassProtein
)

// String returns the lowercase class name.
func (c Class) String() string {
	switch c {
	case ClassObject:
		return "object"
	case ClassGlue:
		return "glue"
	case ClassTile:
		return "tile"
	case ClassProtein:
		return "protein"
	}
	return "unknown"
}

// Catalog classifies the names a rule may use. A name belongs to one class only.
type Catalog struct {
	classes map[string]Class
}

// NewCatalog builds a catalog from the declared names of each class.
func NewCatalog(objects, glues, tiles, proteins []string) (*Catalog, error) {
	c := &Catalog{classes: make(map[string]Class)}
	var ve errors.ValidationError
	add := func(names []string, class Class) {
		for _, n := range names {
			if n == "" {
				ve.Add(errors.ErrCodeInvalidRule, "empty %s name", class)
				continue
			}
			if prev, ok := c.classes[n]; ok && prev != class {
				ve.Add(errors.ErrCodeDuplicateName, "name %q is both a %s and a %s", n, prev, class)
				continue
			}
			c.classes[n] = class
		}
	}
	add(objects, ClassObject)
	add(glues, ClassGlue)
	add(tiles, ClassTile)
	add(proteins, ClassProtein)
	if err := ve.Err(); err != nil {
		return nil, err
	}
	return c, nil
}

// Classify returns the class of name, or ClassUnknown.
func (c *Catalog) Classify(name string) Class {
	return c.classes[name]
}
