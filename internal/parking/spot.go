package parking

// NoSpotAvailable is what a SpotStore reports when every spot of the
// requested category is occupied. Real spot ids are always positive.
const NoSpotAvailable = -1

type Spot struct {
	ID        int
	Category  Category
	Available bool
}

func NewSpot(id int, category Category) *Spot {
	return &Spot{
		ID:        id,
		Category:  category,
		Available: true,
	}
}

func (s *Spot) Occupy() {
	s.Available = false
}

func (s *Spot) Release() {
	s.Available = true
}
