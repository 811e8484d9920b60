package models

// City is the fixed place every tool is scoped to.
type City struct {
	Name    string
	Country string
}

// Scope is the suffix appended to free-text locations, e.g. "Liepāja, Latvia".
func (c City) Scope() string {
	if c.Country == "" {
		return c.Name
	}
	return c.Name + ", " + c.Country
}

// Qualify appends the city scope to a location so the geocoder stays in town.
func (c City) Qualify(location string) string {
	return location + ", " + c.Scope()
}
