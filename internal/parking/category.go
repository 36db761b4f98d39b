package parking

import (
	"fmt"
	"strings"
)

// Category is the vehicle class a spot accepts. It selects the hourly rate.
type Category string

const (
	Car  Category = "CAR"
	Bike Category = "BIKE"
)

// Menu selections offered to the driver when a vehicle enters.
const (
	SelectCar  = 1
	SelectBike = 2
)

var Categories = []Category{Car, Bike}

func (c Category) Valid() bool {
	return c == Car || c == Bike
}

func (c Category) String() string {
	return string(c)
}

// CategoryFromSelection maps a menu selection to a category.
func CategoryFromSelection(selection int) (Category, error) {
	switch selection {
	case SelectCar:
		return Car, nil
	case SelectBike:
		return Bike, nil
	default:
		return "", fmt.Errorf("%w: selection %d", ErrInvalidCategory, selection)
	}
}

// ParseCategory accepts the persisted form ("CAR", "BIKE") in any case.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToUpper(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
	}
	return c, nil
}
