package expense

// Category is the closed set of spending categories accepted by /add.
type Category string

const (
	CategoryTransport Category = "transport"
	CategoryFood      Category = "food"
	CategoryMisc      Category = "misc"
	CategoryBill      Category = "bill"
)

// Mode is the closed set of travel modes accepted by /add.
type Mode string

const (
	ModeMotorcycle Mode = "motorcycle"
	ModeCar        Mode = "car"
	ModeNone       Mode = "none"
)

// categories keeps the column order used by tabular exports.
var categories = []Category{CategoryTransport, CategoryFood, CategoryMisc, CategoryBill}

var modes = []Mode{ModeMotorcycle, ModeCar, ModeNone}

// Categories returns all known categories in a stable order.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// Modes returns all known modes in a stable order.
func Modes() []Mode {
	out := make([]Mode, len(modes))
	copy(out, modes)
	return out
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	for _, known := range categories {
		if c == known {
			return true
		}
	}
	return false
}

// Valid reports whether m is one of the known modes.
func (m Mode) Valid() bool {
	for _, known := range modes {
		if m == known {
			return true
		}
	}
	return false
}
