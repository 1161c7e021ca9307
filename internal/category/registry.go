// Package category holds the static set of topics a fact can be filed under.
package category

// All is the synthetic filter that disables category filtering.
const All = "all"

// FallbackColor is used when a fact carries a category the registry does not know.
const FallbackColor = "#78716c"

// Category is a named topic with its display color.
type Category struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

var registry = []Category{
	{Name: "technology", Color: "#3b82f6"},
	{Name: "science", Color: "#16a34a"},
	{Name: "finance", Color: "#ef4444"},
	{Name: "society", Color: "#eab308"},
	{Name: "entertainment", Color: "#db2777"},
	{Name: "health", Color: "#14b8a6"},
	{Name: "history", Color: "#f97316"},
	{Name: "news", Color: "#8b5cf6"},
	{Name: "singapore", Color: "#7074b7"},
}

var byName = func() map[string]Category {
	out := make(map[string]Category, len(registry))
	for _, item := range registry {
		out[item.Name] = item
	}
	return out
}()

// Categories returns the registry in display order.
func Categories() []Category {
	out := make([]Category, len(registry))
	copy(out, registry)
	return out
}

// Names returns the category names in display order.
func Names() []string {
	out := make([]string, 0, len(registry))
	for _, item := range registry {
		out = append(out, item.Name)
	}
	return out
}

// Filters returns one filter value per control: All first, then every category.
func Filters() []string {
	return append([]string{All}, Names()...)
}

func Lookup(name string) (Category, bool) {
	item, ok := byName[name]
	return item, ok
}

func Contains(name string) bool {
	_, ok := byName[name]
	return ok
}

// IsFilter reports whether name can be used as the current category.
func IsFilter(name string) bool {
	return name == All || Contains(name)
}

// ColorOK resolves the display color and reports whether the category was known.
func ColorOK(name string) (string, bool) {
	item, ok := byName[name]
	if !ok {
		return FallbackColor, false
	}
	return item.Color, true
}

// Color resolves the display color, falling back to FallbackColor on a miss.
func Color(name string) string {
	color, _ := ColorOK(name)
	return color
}
